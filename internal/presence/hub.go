package presence

import (
	"context"
	"log/slog"
	"sync"
)

// Channel is one device's live connection. Send must be safe for concurrent use.
type Channel interface {
	Send(topic string, ev Event) error
	Close() error
}

// Hub tracks which devices of an account currently hold a live channel and
// exposes the account-wide broadcast primitive.
//
// Invariants:
// - At most one channel per device id; reconnecting replaces (and closes) the
//   previous channel.
// - Broadcast with zero connected devices is a silent no-op. Callers that need
//   a guaranteed wake must also go through the push fallback.
// - All broadcasts travel through the Bus so the hub stays correct when more
//   than one relay process is running.
type Hub struct {
	bus Bus
	log *slog.Logger

	mu    sync.RWMutex
	conns map[string]map[string]Channel // accountID -> deviceID -> channel
}

func NewHub(ctx context.Context, bus Bus, log *slog.Logger) (*Hub, error) {
	h := &Hub{
		bus:   bus,
		log:   log,
		conns: make(map[string]map[string]Channel),
	}
	if err := bus.Subscribe(ctx, h.deliver); err != nil {
		return nil, err
	}
	return h, nil
}

// Connect registers a device's live channel, replacing any previous one.
func (h *Hub) Connect(accountID, deviceID string, ch Channel) {
	h.mu.Lock()
	devices, ok := h.conns[accountID]
	if !ok {
		devices = make(map[string]Channel)
		h.conns[accountID] = devices
	}
	prev := devices[deviceID]
	devices[deviceID] = ch
	h.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
		h.log.Debug("presence: replaced live channel", "account_id", accountID, "device_id", deviceID)
	}
}

// Disconnect removes the device's entry. It only removes the given channel's
// registration; a reconnect that already replaced the entry is left alone.
func (h *Hub) Disconnect(accountID, deviceID string, ch Channel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	devices, ok := h.conns[accountID]
	if !ok {
		return
	}
	if cur, ok := devices[deviceID]; ok && (ch == nil || cur == ch) {
		delete(devices, deviceID)
	}
	if len(devices) == 0 {
		delete(h.conns, accountID)
	}
}

// ConnectedDeviceCount reports how many devices of the account are connected
// to this process. In a multi-process deployment this is a local view only;
// call responses expose it as a diagnostic, not a guarantee.
func (h *Hub) ConnectedDeviceCount(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[accountID])
}

// Broadcast fans an event out to every live device of the account.
func (h *Hub) Broadcast(ctx context.Context, accountID, topic string, ev Event) error {
	return h.bus.Publish(ctx, Envelope{AccountID: accountID, Topic: topic, Event: ev})
}

// BroadcastExcept fans an event out to every live device of the account except
// one, so an originating device does not receive its own echo.
func (h *Hub) BroadcastExcept(ctx context.Context, accountID, excludeDeviceID, topic string, ev Event) error {
	return h.bus.Publish(ctx, Envelope{
		AccountID:       accountID,
		ExcludeDeviceID: excludeDeviceID,
		Topic:           topic,
		Event:           ev,
	})
}

// deliver hands a bus envelope to the locally connected sockets.
func (h *Hub) deliver(env Envelope) {
	h.mu.RLock()
	targets := make(map[string]Channel)
	for deviceID, ch := range h.conns[env.AccountID] {
		if deviceID == env.ExcludeDeviceID {
			continue
		}
		targets[deviceID] = ch
	}
	h.mu.RUnlock()

	for deviceID, ch := range targets {
		if err := ch.Send(env.Topic, env.Event); err != nil {
			// A dead socket is unregistered here; its reader goroutine will
			// also notice the close and call Disconnect again, which is a no-op.
			h.log.Debug("presence: dropping dead channel", "account_id", env.AccountID, "device_id", deviceID, "err", err)
			h.Disconnect(env.AccountID, deviceID, ch)
			_ = ch.Close()
		}
	}
}
