package httpapi

import (
	"net/http"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/push"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	pushSvc *push.Service
}

func NewDeviceHandler(pushSvc *push.Service) *DeviceHandler {
	return &DeviceHandler{pushSvc: pushSvc}
}

type registerPushTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RegisterPushToken stores the device's push token. Re-registering replaces
// the previous token; clients call this on every app start.
func (h *DeviceHandler) RegisterPushToken(c *gin.Context) {
	accountID, deviceID, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req registerPushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if err := h.pushSvc.RegisterToken(c.Request.Context(), accountID, deviceID, req.Token); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UnregisterPushToken drops the device's push token, e.g. on logout.
func (h *DeviceHandler) UnregisterPushToken(c *gin.Context) {
	accountID, deviceID, ok := mustIdentity(c)
	if !ok {
		return
	}
	if err := h.pushSvc.UnregisterToken(c.Request.Context(), accountID, deviceID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
