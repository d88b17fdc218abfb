package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
)

type fakeSender struct {
	mu     sync.Mutex
	sent   []string // tokens
	failOn map[string]error
}

func (f *fakeSender) Send(_ context.Context, token, kind string, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failOn[token]; ok {
		return err
	}
	f.sent = append(f.sent, token)
	return nil
}

func TestNotify_SendsToAllExceptExcluded(t *testing.T) {
	store := NewMemoryTokenStore()
	sender := &fakeSender{}
	svc := NewService(store, sender, slog.Default())
	ctx := context.Background()

	_ = svc.RegisterToken(ctx, "a", "phone-1", "tok-phone")
	_ = svc.RegisterToken(ctx, "a", "desktop-1", "tok-desktop")
	_ = svc.RegisterToken(ctx, "b", "phone-2", "tok-other")

	sent := svc.Notify(ctx, "a", KindIncomingCall, map[string]any{"call_id": "c1"}, "desktop-1")
	if !sent {
		t.Fatalf("expected at least one signal sent")
	}
	if len(sender.sent) != 1 || sender.sent[0] != "tok-phone" {
		t.Fatalf("expected only tok-phone, got %v", sender.sent)
	}
}

func TestNotify_DisabledSenderIsSilentNoOp(t *testing.T) {
	svc := NewService(NewMemoryTokenStore(), nil, slog.Default())
	if sent := svc.Notify(context.Background(), "a", KindFindPhone, nil, ""); sent {
		t.Fatalf("disabled sender must report not-sent")
	}
}

func TestNotify_SwallowsSendFailures(t *testing.T) {
	store := NewMemoryTokenStore()
	sender := &fakeSender{failOn: map[string]error{"tok-bad": errors.New("boom")}}
	svc := NewService(store, sender, slog.Default())
	ctx := context.Background()

	_ = svc.RegisterToken(ctx, "a", "d1", "tok-bad")
	_ = svc.RegisterToken(ctx, "a", "d2", "tok-good")

	if sent := svc.Notify(ctx, "a", KindCommandPending, nil, ""); !sent {
		t.Fatalf("healthy token must still be notified")
	}
}

func TestNotify_EvictsUnregisteredTokens(t *testing.T) {
	store := NewMemoryTokenStore()
	sender := &fakeSender{failOn: map[string]error{"tok-stale": ErrUnregistered}}
	svc := NewService(store, sender, slog.Default())
	ctx := context.Background()

	_ = svc.RegisterToken(ctx, "a", "d1", "tok-stale")
	_ = svc.Notify(ctx, "a", KindIncomingCall, nil, "")

	left, err := store.ListByAccount(ctx, "a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("expected stale token evicted, got %v", left)
	}
}

func TestRegisterToken_Validation(t *testing.T) {
	svc := NewService(NewMemoryTokenStore(), nil, slog.Default())
	if err := svc.RegisterToken(context.Background(), "a", "d", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
