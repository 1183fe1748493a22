package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/chitedze/agroadvisor/internal/pkg/response"
)

// StatusProbe reports readiness of one optional subsystem.
type StatusProbe func() bool

type StatusHandler struct {
	knowledge StatusProbe
	search    StatusProbe
}

func NewStatusHandler(knowledge StatusProbe, search StatusProbe) *StatusHandler {
	return &StatusHandler{knowledge: knowledge, search: search}
}

// Status reports which degraded modes are currently active. The service
// keeps answering either way, so this never returns an error status.
func (h *StatusHandler) Status(c *gin.Context) {
	knowledgeOK := h.knowledge != nil && h.knowledge()
	searchOK := h.search != nil && h.search()
	response.Success(c, gin.H{
		"knowledge_base": knowledgeOK,
		"search_api":     searchOK,
	})
}
