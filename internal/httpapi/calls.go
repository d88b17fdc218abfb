package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/call"

	"github.com/gin-gonic/gin"
)

type CallHandler struct {
	svc *call.Service
}

func NewCallHandler(svc *call.Service) *CallHandler {
	return &CallHandler{svc: svc}
}

type createCallRequest struct {
	CalleeIdentifier string `json:"calleeIdentifier" binding:"required"`
	CalleeName       string `json:"calleeName"`
	CallType         string `json:"callType"`
}

// Create starts a call attempt. The response reports success regardless of
// whether anything could actually be woken; `_debug` tells the client (and
// support staff) what routing saw.
func (h *CallHandler) Create(c *gin.Context) {
	accountID, deviceID, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req createCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "calleeIdentifier is required"})
		return
	}

	sess, debug, err := h.svc.Create(c.Request.Context(), accountID, deviceID, call.CreateRequest{
		CalleeIdentifier: req.CalleeIdentifier,
		CalleeName:       req.CalleeName,
		CallType:         req.CallType,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"callId": sess.ID,
		"status": sess.Status,
		"_debug": debug,
	})
}

func (h *CallHandler) Get(c *gin.Context) {
	accountID, _, ok := mustIdentity(c)
	if !ok {
		return
	}
	sess, err := h.svc.Get(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

type updateCallStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *CallHandler) UpdateStatus(c *gin.Context) {
	accountID, _, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req updateCallStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	status, valid := call.ParseStatus(req.Status)
	if !valid {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown call status"})
		return
	}

	if _, err := h.svc.UpdateStatus(c.Request.Context(), accountID, c.Param("id"), status); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type sendSignalRequest struct {
	SignalType string          `json:"signalType" binding:"required"`
	Payload    json.RawMessage `json:"payload" binding:"required"`
	ToDeviceID string          `json:"toDeviceId"`
}

func (h *CallHandler) SendSignal(c *gin.Context) {
	accountID, deviceID, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req sendSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "signalType and payload are required"})
		return
	}
	sigType, valid := call.ParseSignalType(req.SignalType)
	if !valid {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown signal type"})
		return
	}

	if err := h.svc.SendSignal(c.Request.Context(), accountID, deviceID, c.Param("id"), sigType, req.Payload, req.ToDeviceID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *CallHandler) PollSignals(c *gin.Context) {
	accountID, deviceID, ok := mustIdentity(c)
	if !ok {
		return
	}
	signals, err := h.svc.PollSignals(c.Request.Context(), accountID, deviceID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals})
}

func (h *CallHandler) ClearSignals(c *gin.Context) {
	accountID, _, ok := mustIdentity(c)
	if !ok {
		return
	}
	if err := h.svc.ClearSignals(c.Request.Context(), accountID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
