package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chitedze/agroadvisor/internal/advisor"
	"github.com/chitedze/agroadvisor/internal/pkg/errcode"
	"github.com/chitedze/agroadvisor/internal/pkg/response"
)

type AskHandler struct {
	advisor *advisor.Advisor
}

func NewAskHandler(adv *advisor.Advisor) *AskHandler {
	return &AskHandler{advisor: adv}
}

type askRequest struct {
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
}

// Ask answers one farmer question. Requests without a conversation id fall
// back to the client IP so casual callers still get multi-turn context.
func (h *AskHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		response.Error(c, errcode.ErrInvalid, "query is required")
		return
	}
	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = c.ClientIP()
	}
	result := h.advisor.Answer(c.Request.Context(), conversationID, query)
	response.Success(c, gin.H{
		"answer": result.Text,
		"source": result.Source,
	})
}
