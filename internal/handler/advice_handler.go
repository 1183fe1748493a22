package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chitedze/agroadvisor/internal/pkg/errcode"
	"github.com/chitedze/agroadvisor/internal/pkg/response"
	"github.com/chitedze/agroadvisor/internal/repo"
)

type AdviceHandler struct {
	advice *repo.AdviceRepo
}

func NewAdviceHandler(advice *repo.AdviceRepo) *AdviceHandler {
	return &AdviceHandler{advice: advice}
}

// Lookup serves the curated advice table directly, without touching the
// AI pipeline. Extension workers use it to check what farmers get offline.
func (h *AdviceHandler) Lookup(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		response.Error(c, errcode.ErrInvalid, "query is required")
		return
	}
	item, err := h.advice.Lookup(c.Request.Context(), query)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, item)
}

type adviceSaveRequest struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

func (h *AdviceHandler) Save(c *gin.Context) {
	var req adviceSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.Query) == "" || strings.TrimSpace(req.Response) == "" {
		response.Error(c, errcode.ErrInvalid, "query and response are required")
		return
	}
	if err := h.advice.Save(c.Request.Context(), req.Query, req.Response); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{})
}

func (h *AdviceHandler) Popular(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	items, err := h.advice.Popular(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}
