package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
)

type fakeChannel struct {
	mu     sync.Mutex
	got    []Event
	topics []string
	fail   bool
	closed bool
}

func (f *fakeChannel) Send(topic string, ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("socket gone")
	}
	f.got = append(f.got, ev)
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.got))
	copy(out, f.got)
	return out
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h, err := NewHub(context.Background(), NewMemoryBus(), slog.Default())
	if err != nil {
		t.Fatalf("hub: %v", err)
	}
	return h
}

func TestBroadcast_ReachesAllAccountDevices(t *testing.T) {
	h := newTestHub(t)
	d1 := &fakeChannel{}
	d2 := &fakeChannel{}
	other := &fakeChannel{}
	h.Connect("acct-b", "d1", d1)
	h.Connect("acct-b", "d2", d2)
	h.Connect("acct-x", "d3", other)

	if err := h.Broadcast(context.Background(), "acct-b", TopicCalls, Event{Type: EventCallIncoming}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	if len(d1.events()) != 1 || len(d2.events()) != 1 {
		t.Fatalf("expected both devices of acct-b to receive the event")
	}
	if d1.events()[0].Type != EventCallIncoming {
		t.Fatalf("unexpected event type %q", d1.events()[0].Type)
	}
	if len(other.events()) != 0 {
		t.Fatalf("expected no cross-account delivery")
	}
}

func TestBroadcastExcept_SkipsOriginator(t *testing.T) {
	h := newTestHub(t)
	origin := &fakeChannel{}
	peer1 := &fakeChannel{}
	peer2 := &fakeChannel{}
	h.Connect("a", "origin", origin)
	h.Connect("a", "p1", peer1)
	h.Connect("a", "p2", peer2)

	if err := h.BroadcastExcept(context.Background(), "a", "origin", TopicMessages, Event{Type: EventCommandPending}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	if len(origin.events()) != 0 {
		t.Fatalf("originator must not receive its own echo")
	}
	if len(peer1.events()) != 1 || len(peer2.events()) != 1 {
		t.Fatalf("expected every other device to receive the event")
	}
}

func TestBroadcast_NoDevicesIsNoOp(t *testing.T) {
	h := newTestHub(t)
	if err := h.Broadcast(context.Background(), "nobody-home", TopicCalls, Event{Type: EventCallStatus}); err != nil {
		t.Fatalf("broadcast to empty account must not fail: %v", err)
	}
}

func TestConnect_ReplacesPriorChannelForDevice(t *testing.T) {
	h := newTestHub(t)
	old := &fakeChannel{}
	fresh := &fakeChannel{}
	h.Connect("a", "d", old)
	h.Connect("a", "d", fresh)

	if !old.closed {
		t.Fatalf("expected replaced channel to be closed")
	}
	if got := h.ConnectedDeviceCount("a"); got != 1 {
		t.Fatalf("expected 1 connected device, got %d", got)
	}

	_ = h.Broadcast(context.Background(), "a", TopicCalls, Event{Type: EventCallStatus})
	if len(old.events()) != 0 || len(fresh.events()) != 1 {
		t.Fatalf("expected delivery only to the fresh channel")
	}
}

func TestDisconnect_LeavesReplacementAlone(t *testing.T) {
	h := newTestHub(t)
	old := &fakeChannel{}
	fresh := &fakeChannel{}
	h.Connect("a", "d", old)
	h.Connect("a", "d", fresh)

	// Late disconnect from the old reader goroutine must not evict the new channel.
	h.Disconnect("a", "d", old)
	if got := h.ConnectedDeviceCount("a"); got != 1 {
		t.Fatalf("expected replacement to survive, got %d devices", got)
	}

	h.Disconnect("a", "d", fresh)
	if got := h.ConnectedDeviceCount("a"); got != 0 {
		t.Fatalf("expected 0 devices, got %d", got)
	}
}

func TestDeliver_EvictsDeadChannels(t *testing.T) {
	h := newTestHub(t)
	dead := &fakeChannel{fail: true}
	live := &fakeChannel{}
	h.Connect("a", "dead", dead)
	h.Connect("a", "live", live)

	_ = h.Broadcast(context.Background(), "a", TopicCalls, Event{Type: EventCallStatus})

	if got := h.ConnectedDeviceCount("a"); got != 1 {
		t.Fatalf("expected dead channel evicted, got %d devices", got)
	}
	if !dead.closed {
		t.Fatalf("expected dead channel closed")
	}
	if len(live.events()) != 1 {
		t.Fatalf("expected live channel to still receive")
	}
}
