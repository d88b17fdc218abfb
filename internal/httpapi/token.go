package httpapi

import (
	"net/http"
	"time"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/auth"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/device"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/pkg/logger"

	"github.com/gin-gonic/gin"
)

type TokenHandler struct {
	mgr *auth.Manager
}

func NewTokenHandler(mgr *auth.Manager) *TokenHandler {
	return &TokenHandler{mgr: mgr}
}

type issueTokenRequest struct {
	AccountID string `json:"accountId" binding:"required"`
	DeviceID  string `json:"deviceId" binding:"required"`
	Platform  string `json:"platform" binding:"required"`
}

// Issue mints a token pair for a device. This is the skeleton login: account
// verification (password, OAuth, pairing QR) happens upstream and is not part
// of the relay.
func (h *TokenHandler) Issue(c *gin.Context) {
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "accountId, deviceId and platform are required"})
		return
	}
	if !device.IsValidPlatform(req.Platform) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "platform must be one of phone, desktop, web"})
		return
	}

	pair, err := h.mgr.IssuePair(time.Now(), req.AccountID, req.DeviceID, req.Platform)
	if err != nil {
		logger.FromGin(c).Error("token issuance failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}
