package httpapi

import (
	"errors"
	"net/http"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/call"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/command"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/identity"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/push"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/pkg/logger"

	"github.com/gin-gonic/gin"
)

// fail maps service sentinel errors onto HTTP statuses. Anything unmapped is a
// 500 with a generic body; the real error goes to the request log only.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidArgument),
		errors.Is(err, command.ErrInvalidArgument),
		errors.Is(err, command.ErrInvalidStatus),
		errors.Is(err, call.ErrInvalidArgument),
		errors.Is(err, call.ErrInvalidTransition),
		errors.Is(err, push.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, call.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, identity.ErrNotFound),
		errors.Is(err, command.ErrNotFound),
		errors.Is(err, call.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, call.ErrTooManyCalls):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many open calls"})
	default:
		logger.FromGin(c).Error("internal error", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// mustIdentity pulls the authenticated account and device out of the request
// context. The auth middleware guarantees both; a miss means a wiring bug.
func mustIdentity(c *gin.Context) (accountID, deviceID string, ok bool) {
	accountID = c.GetString("account_id")
	deviceID = c.GetString("device_id")
	if accountID == "" || deviceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return "", "", false
	}
	return accountID, deviceID, true
}
