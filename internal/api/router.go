package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"maintenance-planner-backend/config"
	"maintenance-planner-backend/internal/metrics"
	"maintenance-planner-backend/internal/mw"
)

// RouterOptions carries the router's collaborators.
type RouterOptions struct {
	Server   config.ServerConfig
	Log      *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.Logger(opts.Log, opts.Metrics))

	r.GET("/healthz", handler.Health)
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	// API group
	api := r.Group("/api")
	if opts.Server.RateLimitPerSec > 0 {
		api.Use(mw.RateLimiter(rate.Limit(opts.Server.RateLimitPerSec), opts.Server.RateLimitBurst))
	}
	var caching gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if opts.Server.CacheTTLSeconds > 0 {
		responseCache := mw.NewResponseCache(time.Duration(opts.Server.CacheTTLSeconds) * time.Second)
		caching = responseCache.Cache()
		api.Use(responseCache.FlushOnWrite())
	}

	anyRole := mw.RequireRole(mw.AllRoles...)
	planners := mw.RequireRole(mw.RoleAdmin, mw.RolePlanner)
	completers := mw.RequireRole(mw.RoleAdmin, mw.RolePlanner, mw.RoleSupervisor)

	{
		plans := api.Group("/maintenance-plans")
		plans.GET("", anyRole, caching, handler.ListSchedules)
		plans.POST("", planners, handler.CreateSchedule)
		plans.GET("/:id", anyRole, caching, handler.GetSchedule)
		plans.PUT("/:id", planners, handler.UpdateSchedule)
		plans.DELETE("/:id", planners, handler.DeleteSchedule)
		plans.POST("/:id/complete", completers, handler.CompleteSchedule)
		plans.POST("/:id/checksheet", completers, handler.UploadChecksheet)
		plans.GET("/:id/checksheet", anyRole, handler.DownloadChecksheet)
		plans.DELETE("/:id/checksheet", planners, handler.DeleteChecksheet)
		plans.GET("/:id/completion-attachment", anyRole, handler.DownloadCompletionAttachment)

		api.GET("/yearly-maintenance-plans", anyRole, caching, handler.ListYearlyPlans)
		api.POST("/yearly-maintenance-plans", planners, handler.SaveYearlyPlans)

		api.GET("/machines/:id/allowed-months", anyRole, caching, handler.GetAllowedMonths)
	}

	return r
}
