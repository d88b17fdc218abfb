package command

import (
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/device"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/presence"
)

// Kind identifies one asynchronous feature riding on the shared queue.
type Kind string

const (
	KindSMSSend            Kind = "sms_send"
	KindCallRequest        Kind = "call_request"
	KindCallControl        Kind = "call_control"
	KindDND                Kind = "dnd"
	KindMedia              Kind = "media"
	KindHotspot            Kind = "hotspot"
	KindFindPhone          Kind = "find_phone"
	KindScheduledSend      Kind = "scheduled_send"
	KindKeyExchangeRequest Kind = "key_exchange_request"
	KindKeyExchangeReply   Kind = "key_exchange_response"
)

// kindSpec declares, per kind, which platform drains the queue, which live
// topic carries the wake hint, and which statuses beyond pending/processed the
// kind tracks. The registry replaces a loosely typed payload column: a kind not
// present here does not exist.
type kindSpec struct {
	Consumers []string
	Topic     string
	Extra     []Status
}

var deliveryStatuses = []Status{StatusSending, StatusSent, StatusDelivered, StatusFailed}

var kinds = map[Kind]kindSpec{
	KindSMSSend:            {Consumers: []string{device.PlatformPhone}, Topic: presence.TopicMessages, Extra: deliveryStatuses},
	KindScheduledSend:      {Consumers: []string{device.PlatformPhone}, Topic: presence.TopicMessages, Extra: deliveryStatuses},
	KindCallRequest:        {Consumers: []string{device.PlatformPhone}, Topic: presence.TopicPhone},
	KindCallControl:        {Consumers: []string{device.PlatformPhone}, Topic: presence.TopicPhone},
	KindDND:                {Consumers: []string{device.PlatformPhone}, Topic: presence.TopicPhone},
	KindMedia:              {Consumers: []string{device.PlatformPhone}, Topic: presence.TopicPhone},
	KindHotspot:            {Consumers: []string{device.PlatformPhone}, Topic: presence.TopicPhone},
	KindFindPhone:          {Consumers: []string{device.PlatformPhone}, Topic: presence.TopicPhone},
	KindKeyExchangeRequest: {Consumers: []string{device.PlatformPhone}, Topic: presence.TopicCommands},
	// The reply travels the other way: the paired desktop or web client picks it up.
	KindKeyExchangeReply: {Consumers: []string{device.PlatformDesktop, device.PlatformWeb}, Topic: presence.TopicCommands},
}

// ParseKind returns the Kind for a wire string, or false for unknown kinds.
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	_, ok := kinds[k]
	return k, ok
}

// Consumers lists the platforms allowed to drain and ack this kind.
func (k Kind) Consumers() []string {
	return kinds[k].Consumers
}

// Topic is the live-channel topic used for this kind's wake hint.
func (k Kind) Topic() string {
	return kinds[k].Topic
}

// AllowsStatus reports whether the kind tracks the given status. Every kind
// allows pending and processed; delivery-tracking kinds add their own.
func (k Kind) AllowsStatus(s Status) bool {
	if s == StatusPending || s == StatusProcessed {
		return true
	}
	for _, extra := range kinds[k].Extra {
		if s == extra {
			return true
		}
	}
	return false
}

// AllKinds returns the registered kinds; order is unspecified.
func AllKinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	return out
}
