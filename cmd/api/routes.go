package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/auth"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/device"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/httpapi"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/pkg/utils"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	db      *sql.DB
	authMgr *auth.Manager

	identity  *httpapi.IdentityHandler
	queue     *httpapi.QueueHandler
	calls     *httpapi.CallHandler
	devices   *httpapi.DeviceHandler
	tokens    *httpapi.TokenHandler
	websocket *httpapi.WSHandler
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), d.db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.POST("/auth/token", d.tokens.Issue)

	authed := v1.Group("", auth.RequireAccessToken(d.authMgr), device.RequireAccount())

	// Only the phone owns a SIM; registration is gated accordingly.
	authed.POST("/identity/register", device.RequireAnyPlatform(device.PlatformPhone), d.identity.Register)
	authed.GET("/identity/resolve/:phoneNumber", d.identity.Resolve)

	authed.POST("/queue/:kind", d.queue.Enqueue)
	authed.GET("/queue/:kind", d.queue.ListPending)
	authed.PUT("/queue/:kind/:id/status", d.queue.UpdateStatus)

	authed.POST("/calls", d.calls.Create)
	authed.GET("/calls/:id", d.calls.Get)
	authed.PUT("/calls/:id/status", d.calls.UpdateStatus)
	authed.POST("/calls/:id/signaling", d.calls.SendSignal)
	authed.GET("/calls/:id/signaling", d.calls.PollSignals)
	authed.DELETE("/calls/:id/signaling", d.calls.ClearSignals)

	authed.POST("/devices/push-token", d.devices.RegisterPushToken)
	authed.DELETE("/devices/push-token", d.devices.UnregisterPushToken)

	authed.GET("/ws", d.websocket.Serve)
}
