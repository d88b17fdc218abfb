package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/command"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/presence"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/push"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/pkg/logger"

	"github.com/gin-gonic/gin"
)

type QueueHandler struct {
	svc      *command.Service
	hub      *presence.Hub
	notifier *push.Service
}

func NewQueueHandler(svc *command.Service, hub *presence.Hub, notifier *push.Service) *QueueHandler {
	return &QueueHandler{svc: svc, hub: hub, notifier: notifier}
}

type enqueueRequest struct {
	Payload json.RawMessage `json:"payload" binding:"required"`
}

type commandHintPayload struct {
	ID   string       `json:"id"`
	Kind command.Kind `json:"kind"`
}

// Enqueue inserts a queue record and nudges the kind's consumer twice: a live
// broadcast on the kind's topic and a push wake. Both nudges are best-effort;
// the record is the source of truth and the consumer's next poll finds it.
func (h *QueueHandler) Enqueue(c *gin.Context) {
	accountID, deviceID, ok := mustIdentity(c)
	if !ok {
		return
	}
	kind, ok := parseKind(c)
	if !ok {
		return
	}

	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "payload is required"})
		return
	}

	cmd, err := h.svc.Enqueue(c.Request.Context(), accountID, kind, req.Payload)
	if err != nil {
		fail(c, err)
		return
	}

	ev := presence.Event{Type: presence.EventCommandPending, Data: commandHintPayload{ID: cmd.ID, Kind: cmd.Kind}}
	if err := h.hub.BroadcastExcept(c.Request.Context(), accountID, deviceID, kind.Topic(), ev); err != nil {
		logger.FromGin(c).Warn("queue wake broadcast failed", "command_id", cmd.ID, "err", err)
	}

	pushKind := push.KindCommandPending
	if kind == command.KindFindPhone {
		pushKind = push.KindFindPhone
	}
	h.notifier.Notify(c.Request.Context(), accountID, pushKind, map[string]any{
		"command_id": cmd.ID,
		"kind":       string(cmd.Kind),
	}, deviceID)

	c.JSON(http.StatusCreated, gin.H{"id": cmd.ID, "status": cmd.Status})
}

// ListPending drains the queue for the calling device. Only a kind's designated
// consumer platform may read it; a web client cannot impersonate the phone.
func (h *QueueHandler) ListPending(c *gin.Context) {
	accountID, _, ok := mustIdentity(c)
	if !ok {
		return
	}
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	if !requireConsumer(c, kind) {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	items, err := h.svc.ListPending(c.Request.Context(), accountID, kind, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type updateCommandStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus is the consumer's ack/progress report. "processed" acks the
// record; richer statuses are only accepted for kinds that track them. The
// producer side learns of the change via a status event on the kind's topic.
func (h *QueueHandler) UpdateStatus(c *gin.Context) {
	accountID, deviceID, ok := mustIdentity(c)
	if !ok {
		return
	}
	kind, ok := parseKind(c)
	if !ok {
		return
	}
	if !requireConsumer(c, kind) {
		return
	}

	var req updateCommandStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	id := c.Param("id")
	status := command.Status(req.Status)
	if status == command.StatusProcessed {
		if err := h.svc.MarkProcessed(c.Request.Context(), accountID, id, kind); err != nil {
			fail(c, err)
			return
		}
	} else {
		if _, err := h.svc.UpdateStatus(c.Request.Context(), accountID, id, kind, status); err != nil {
			fail(c, err)
			return
		}
	}

	ev := presence.Event{Type: presence.EventCommandStatus, Data: gin.H{"id": id, "kind": kind, "status": status}}
	if err := h.hub.BroadcastExcept(c.Request.Context(), accountID, deviceID, kind.Topic(), ev); err != nil {
		logger.FromGin(c).Warn("queue status broadcast failed", "command_id", id, "err", err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func parseKind(c *gin.Context) (command.Kind, bool) {
	kind, ok := command.ParseKind(c.Param("kind"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown queue kind"})
		return "", false
	}
	return kind, true
}

// requireConsumer gates queue consumption to the kind's designated platform.
func requireConsumer(c *gin.Context, kind command.Kind) bool {
	platform := c.GetString("platform")
	for _, p := range kind.Consumers() {
		if platform == p {
			return true
		}
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	return false
}
