package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/facility-maintenance-api/internal/handler"
	"github.com/noah-isme/facility-maintenance-api/internal/lifecycle"
	"github.com/noah-isme/facility-maintenance-api/internal/middleware"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
	"github.com/noah-isme/facility-maintenance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/facility-maintenance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/facility-maintenance-api/pkg/middleware/requestid"
)

type routerDeps struct {
	Logger         *zap.Logger
	AllowedOrigins []string
	APIPrefix      string
	ServeDocs      bool

	Tokens  middleware.TokenValidator
	Audit   middleware.AuditWriter
	Metrics middleware.HTTPObserver

	Maintenance *handler.MaintenanceHandler
	Drafts      *handler.DraftHandler
	Technicians *handler.TechnicianHandler
	Ops         *handler.MetricsHandler
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.Logger))
	r.Use(corsmiddleware.New(d.AllowedOrigins))
	r.Use(middleware.Metrics(d.Metrics))

	r.GET("/health", d.Ops.Health)
	r.GET("/ready", d.Ops.Ready)
	r.GET("/metrics", d.Ops.Prometheus)
	if d.ServeDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(d.APIPrefix)
	api.Use(middleware.WithResponseMeta(), middleware.JWT(d.Tokens))

	coordinate := middleware.RequireCapability(lifecycle.CapCoordinate)
	service := middleware.RequireCapability(lifecycle.CapService)

	m := api.Group("/maintenance")
	m.GET("", d.Maintenance.List)
	m.GET("/mine", d.Maintenance.ListMine)
	m.GET("/assigned", service, d.Maintenance.ListAssigned)
	m.GET("/summary", coordinate, d.Maintenance.Summary)
	m.GET("/export", coordinate, middleware.Audit(d.Audit, models.AuditActionMaintenanceExport, "maintenance_requests"), d.Maintenance.Export)

	m.GET("/my-drafts", d.Drafts.ListMine)
	m.POST("/draft", d.Drafts.Save)
	m.PUT("/draft/:id", d.Drafts.Update)
	m.POST("/draft/:id/submit", d.Drafts.Submit)
	m.DELETE("/draft/:id", d.Drafts.Delete)

	m.POST("", d.Maintenance.Create)
	m.GET("/:id", d.Maintenance.Get)
	m.GET("/:id/history", d.Maintenance.History)
	m.PUT("/:id", d.Maintenance.Update)
	m.DELETE("/:id", d.Maintenance.Delete)
	m.PUT("/:id/assign", coordinate, d.Maintenance.Assign)
	m.PUT("/:id/status", d.Maintenance.UpdateStatus)
	m.POST("/:id/cancel", coordinate, d.Maintenance.Cancel)

	api.GET("/users/technicians", d.Technicians.List)

	return r
}
