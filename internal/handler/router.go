package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chitedze/agroadvisor/internal/middleware"
)

type RouterDeps struct {
	Ask       *AskHandler
	Advice    *AdviceHandler
	Stats     *StatsHandler
	Status    *StatusHandler
	AskWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	askGroup := api.Group("")
	askGroup.Use(middleware.RateLimit(deps.AskWindow))
	askGroup.POST("/ask", deps.Ask.Ask)

	api.GET("/advice/lookup", deps.Advice.Lookup)
	api.GET("/advice/popular", deps.Advice.Popular)
	api.POST("/advice", deps.Advice.Save)

	api.GET("/queries/recent", deps.Stats.RecentQueries)
	api.GET("/status", deps.Status.Status)
}
