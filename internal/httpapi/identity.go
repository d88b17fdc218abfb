package httpapi

import (
	"net/http"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/identity"

	"github.com/gin-gonic/gin"
)

type IdentityHandler struct {
	svc *identity.Service
}

func NewIdentityHandler(svc *identity.Service) *IdentityHandler {
	return &IdentityHandler{svc: svc}
}

type registerPhoneRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

// Register claims the phone number for the calling account. The response
// carries the canonical form actually stored, which may differ from the raw
// input (formatting stripped).
func (h *IdentityHandler) Register(c *gin.Context) {
	accountID, _, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req registerPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "phoneNumber is required"})
		return
	}

	canonical, err := h.svc.Register(c.Request.Context(), accountID, req.PhoneNumber)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"phoneNumber": canonical})
}

// Resolve maps a phone number to the owning account.
func (h *IdentityHandler) Resolve(c *gin.Context) {
	if _, _, ok := mustIdentity(c); !ok {
		return
	}

	accountID, err := h.svc.Resolve(c.Request.Context(), c.Param("phoneNumber"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accountId": accountID})
}
