package main

import (
	"database/sql"
	"net/http"
	"time"

	"callpower/internal/callflow"
	"callpower/internal/httpapi"
	"callpower/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Keep this file free of business logic. Handlers should delegate to internal modules.

func registerHealthRoutes(r *gin.Engine, db *sql.DB) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// registerCallRoutes mounts the call flow at the root so callback URLs match
// ApplicationRoot + path. webhookMW (signature checks) only wraps the
// provider callbacks; /create is called by campaign clients.
func registerCallRoutes(r *gin.Engine, flow *callflow.Flow, webhookMW ...gin.HandlerFunc) {
	flow.RegisterAPI(r)
	flow.RegisterWebhooks(r.Group("/", webhookMW...))
}

func registerAdminRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers) {
	r.POST("/v1/auth/refresh", h.Refresh)

	v1 := r.Group("/v1")
	v1.Use(authMW)

	targets := v1.Group("/targets", httpapi.ImportRoles()...)
	{
		targets.POST("/import", h.ImportTargets)
	}

	campaigns := v1.Group("/campaigns/:campaign_id", httpapi.ReportRoles()...)
	{
		campaigns.GET("/calls/summary", h.CallsSummary)
		campaigns.GET("/calls/chart", h.CallChart)
	}
}
