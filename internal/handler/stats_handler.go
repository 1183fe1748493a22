package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chitedze/agroadvisor/internal/pkg/response"
	"github.com/chitedze/agroadvisor/internal/repo"
)

type StatsHandler struct {
	logs *repo.QueryLogRepo
}

func NewStatsHandler(logs *repo.QueryLogRepo) *StatsHandler {
	return &StatsHandler{logs: logs}
}

func (h *StatsHandler) RecentQueries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.logs.List(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}
