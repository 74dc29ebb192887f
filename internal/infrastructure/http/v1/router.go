// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"pcp/internal/domain/auth"
	"pcp/internal/infrastructure/http/v1/handlers"
	"pcp/internal/infrastructure/http/v1/middleware"
	"pcp/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// DB backs the readiness and info probes.
	DB handlers.DBProbe

	// Version is reported by /health/info.
	Version string

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator validates bearer tokens. Nil disables authentication,
	// role checks included; meant for local runs only.
	JWTValidator middleware.JWTValidator

	Plans        handlers.PlanService
	Requisitions handlers.RequisitionService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	var supervisor gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.JWTValidator != nil {
		v1.Use(middleware.Auth(cfg.JWTValidator))
		supervisor = middleware.RequireRole(auth.RoleSupervisor)
	}

	base := handlers.NewBaseHandler()
	registerPlanRoutes(v1, handlers.NewPlanHandler(base, cfg.Plans), supervisor)
	registerRequisitionRoutes(v1, handlers.NewRequisitionHandler(base, cfg.Requisitions))

	return router
}

func registerPlanRoutes(rg *gin.RouterGroup, h *handlers.PlanHandler, supervisor gin.HandlerFunc) {
	plans := rg.Group("/plans")
	{
		plans.POST("", h.Create)
		plans.GET("", h.List)
		plans.GET("/:id", h.Get)
		plans.GET("/:id/status", h.Status)
		plans.GET("/:id/audit", h.History)

		plans.POST("/:id/freeze", supervisor, h.Freeze)
		plans.POST("/:id/unfreeze", supervisor, h.Unfreeze)
		plans.POST("/:id/release", supervisor, h.Release)

		plans.PUT("/:id/forecast", h.ReplaceForecast)
		plans.POST("/:id/forecast/import", h.ImportForecast)
		plans.POST("/:id/stock-snapshot", h.CaptureStock)
		plans.POST("/:id/adjustments", h.AddAdjustments)

		plans.GET("/:id/results/production", h.ProductionResults)
		plans.GET("/:id/results/materials", h.MaterialResults)
		plans.GET("/:id/results/materials/export", h.ExportMaterials)
	}

	rg.POST("/mrp/recalculate/:id", h.Recalculate)
}

func registerRequisitionRoutes(rg *gin.RouterGroup, h *handlers.RequisitionHandler) {
	rg.POST("/requisitions", h.Create)
	rg.GET("/requisitions/:id", h.Get)
	rg.GET("/plans/:id/requisitions", h.ListByPlan)
}
