package device

import (
	"net/http"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAccount enforces the per-account isolation invariant: account_id must
// exist in context before any queue, call or registry operation runs.
func RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		aid, err := auth.AccountID(c.Request.Context())
		if err != nil || aid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyPlatform allows access if the calling device runs any of the given
// platforms. Queue consumption routes use this so that only a kind's designated
// consumer (typically the phone) can drain and ack its records.
func RequireAnyPlatform(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, p := range allowed {
		allowedSet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		platform, err := auth.Platform(c.Request.Context())
		if err != nil || platform == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "platform required"})
			return
		}
		if !IsValidPlatform(platform) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		if _, ok := allowedSet[platform]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
