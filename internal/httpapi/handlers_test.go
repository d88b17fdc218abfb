package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/auth"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/call"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/command"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/identity"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/presence"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/push"

	"github.com/gin-gonic/gin"
)

type recChannel struct {
	mu  sync.Mutex
	got []presence.Event
}

func (r *recChannel) Send(_ string, ev presence.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
	return nil
}

func (r *recChannel) Close() error { return nil }

func (r *recChannel) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

type testEnv struct {
	hub         *presence.Hub
	identitySvc *identity.Service
	identityMem *identity.MemoryStore
	commandRepo *command.MemoryRepo
	callRepo    *call.MemoryRepo
	pushTokens  *push.MemoryTokenStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub, err := presence.NewHub(context.Background(), presence.NewMemoryBus(), slog.Default())
	if err != nil {
		t.Fatalf("hub: %v", err)
	}
	return &testEnv{
		hub:         hub,
		identityMem: identity.NewMemoryStore(),
		commandRepo: command.NewMemoryRepo(),
		callRepo:    call.NewMemoryRepo(),
		pushTokens:  push.NewMemoryTokenStore(),
	}
}

// router builds the v1 surface as seen by one authenticated device.
func (e *testEnv) router(accountID, deviceID, platform string) *gin.Engine {
	log := slog.Default()
	e.identitySvc = identity.NewService(e.identityMem)
	pushSvc := push.NewService(e.pushTokens, nil, log)
	callSvc := call.NewService(e.callRepo, e.identitySvc, e.hub, pushSvc, nil, log)

	idh := NewIdentityHandler(e.identitySvc)
	qh := NewQueueHandler(command.NewService(e.commandRepo), e.hub, pushSvc)
	ch := NewCallHandler(callSvc)
	dh := NewDeviceHandler(pushSvc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("account_id", accountID)
		c.Set("device_id", deviceID)
		c.Set("platform", platform)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), accountID, deviceID, platform))
		c.Next()
	})

	v1 := r.Group("/v1")
	v1.POST("/identity/register", idh.Register)
	v1.GET("/identity/resolve/:phoneNumber", idh.Resolve)
	v1.POST("/queue/:kind", qh.Enqueue)
	v1.GET("/queue/:kind", qh.ListPending)
	v1.PUT("/queue/:kind/:id/status", qh.UpdateStatus)
	v1.POST("/calls", ch.Create)
	v1.GET("/calls/:id", ch.Get)
	v1.PUT("/calls/:id/status", ch.UpdateStatus)
	v1.POST("/calls/:id/signaling", ch.SendSignal)
	v1.GET("/calls/:id/signaling", ch.PollSignals)
	v1.DELETE("/calls/:id/signaling", ch.ClearSignals)
	v1.POST("/devices/push-token", dh.RegisterPushToken)
	v1.DELETE("/devices/push-token", dh.UnregisterPushToken)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestIdentityEndpoints(t *testing.T) {
	env := newTestEnv(t)
	phone := env.router("acct-a", "phone-1", "phone")

	w := do(t, phone, http.MethodPost, "/v1/identity/register", gin.H{"phoneNumber": "+1 (555) 123-4567"})
	if w.Code != http.StatusOK {
		t.Fatalf("register: got %d: %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["phoneNumber"]; got != "+15551234567" {
		t.Fatalf("expected canonical number, got %v", got)
	}

	w = do(t, phone, http.MethodGet, "/v1/identity/resolve/+15551234567", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve: got %d", w.Code)
	}
	if got := decode(t, w)["accountId"]; got != "acct-a" {
		t.Fatalf("expected acct-a, got %v", got)
	}

	w = do(t, phone, http.MethodGet, "/v1/identity/resolve/+19990000000", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown number must 404, got %d", w.Code)
	}

	w = do(t, phone, http.MethodPost, "/v1/identity/register", gin.H{"phoneNumber": "---"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty canonical must 400, got %d", w.Code)
	}
}

func TestQueueEnqueueBroadcastsHint(t *testing.T) {
	env := newTestEnv(t)
	desktop := env.router("acct-a", "desktop-1", "desktop")

	phoneCh := &recChannel{}
	desktopCh := &recChannel{}
	env.hub.Connect("acct-a", "phone-1", phoneCh)
	env.hub.Connect("acct-a", "desktop-1", desktopCh)

	w := do(t, desktop, http.MethodPost, "/v1/queue/sms_send", gin.H{"payload": gin.H{"to": "+15550001111", "body": "hi"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("enqueue: got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["status"] != "pending" {
		t.Fatalf("expected pending, got %v", resp["status"])
	}
	if resp["id"] == "" {
		t.Fatalf("expected an id")
	}

	if phoneCh.count() != 1 {
		t.Fatalf("phone must receive the wake hint")
	}
	if desktopCh.count() != 0 {
		t.Fatalf("producer must not receive its own hint")
	}
}

func TestQueueConsumerGating(t *testing.T) {
	env := newTestEnv(t)
	desktop := env.router("acct-a", "desktop-1", "desktop")
	phone := env.router("acct-a", "phone-1", "phone")

	w := do(t, desktop, http.MethodPost, "/v1/queue/sms_send", gin.H{"payload": gin.H{"body": "hi"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("enqueue: got %d", w.Code)
	}
	id := decode(t, w)["id"].(string)

	// The desktop produced the record but may not drain the phone's queue.
	if w := do(t, desktop, http.MethodGet, "/v1/queue/sms_send", nil); w.Code != http.StatusForbidden {
		t.Fatalf("non-consumer list must 403, got %d", w.Code)
	}

	w = do(t, phone, http.MethodGet, "/v1/queue/sms_send", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("consumer list: got %d", w.Code)
	}
	items := decode(t, w)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 pending item, got %d", len(items))
	}

	if w := do(t, desktop, http.MethodPut, "/v1/queue/sms_send/"+id+"/status", gin.H{"status": "processed"}); w.Code != http.StatusForbidden {
		t.Fatalf("non-consumer ack must 403, got %d", w.Code)
	}
	if w := do(t, phone, http.MethodPut, "/v1/queue/sms_send/"+id+"/status", gin.H{"status": "processed"}); w.Code != http.StatusOK {
		t.Fatalf("consumer ack: got %d", w.Code)
	}

	w = do(t, phone, http.MethodGet, "/v1/queue/sms_send", nil)
	if items := decode(t, w)["items"].([]any); len(items) != 0 {
		t.Fatalf("acked record must not reappear, got %d", len(items))
	}
}

func TestQueueAckCannotCrossKinds(t *testing.T) {
	env := newTestEnv(t)
	desktop := env.router("acct-a", "desktop-1", "desktop")
	phone := env.router("acct-a", "phone-1", "phone")

	w := do(t, desktop, http.MethodPost, "/v1/queue/sms_send", gin.H{"payload": gin.H{"body": "hi"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("enqueue: got %d", w.Code)
	}
	id := decode(t, w)["id"].(string)

	// The desktop consumes key_exchange_response, so the platform gate passes;
	// the ack must still fail because the record belongs to another kind.
	w = do(t, desktop, http.MethodPut, "/v1/queue/key_exchange_response/"+id+"/status", gin.H{"status": "processed"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("cross-kind ack must 404, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, phone, http.MethodGet, "/v1/queue/sms_send", nil)
	if items := decode(t, w)["items"].([]any); len(items) != 1 {
		t.Fatalf("record must remain pending for the phone, got %d", len(items))
	}
}

func TestQueueRejectsUnknownKindAndStatus(t *testing.T) {
	env := newTestEnv(t)
	phone := env.router("acct-a", "phone-1", "phone")

	if w := do(t, phone, http.MethodPost, "/v1/queue/telepathy", gin.H{"payload": gin.H{}}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown kind must 400, got %d", w.Code)
	}

	w := do(t, phone, http.MethodPost, "/v1/queue/dnd", gin.H{"payload": gin.H{"enabled": true}})
	if w.Code != http.StatusCreated {
		t.Fatalf("enqueue: got %d", w.Code)
	}
	id := decode(t, w)["id"].(string)

	// dnd does not track delivery statuses.
	if w := do(t, phone, http.MethodPut, "/v1/queue/dnd/"+id+"/status", gin.H{"status": "delivered"}); w.Code != http.StatusBadRequest {
		t.Fatalf("disallowed status must 400, got %d", w.Code)
	}
}

func TestCallLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.identityMem.AddContact("buddy", "acct-b")

	caller := env.router("acct-a", "phone-1", "phone")
	callee := env.router("acct-b", "desktop-9", "desktop")
	stranger := env.router("acct-z", "web-1", "web")

	calleeCh := &recChannel{}
	env.hub.Connect("acct-b", "desktop-9", calleeCh)

	w := do(t, caller, http.MethodPost, "/v1/calls", gin.H{"calleeIdentifier": "buddy", "callType": "video"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	callID := resp["callId"].(string)
	debug := resp["_debug"].(map[string]any)
	if debug["calleeResolved"] != true {
		t.Fatalf("expected resolved debug, got %v", debug)
	}
	if calleeCh.count() != 1 {
		t.Fatalf("callee device must be rung")
	}

	w = do(t, caller, http.MethodPost, "/v1/calls/"+callID+"/signaling", gin.H{"signalType": "offer", "payload": gin.H{"sdp": "v=0"}})
	if w.Code != http.StatusOK {
		t.Fatalf("send signal: got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, callee, http.MethodGet, "/v1/calls/"+callID+"/signaling", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("poll: got %d", w.Code)
	}
	if signals := decode(t, w)["signals"].([]any); len(signals) != 1 {
		t.Fatalf("callee must see the offer, got %d signals", len(signals))
	}

	if w := do(t, stranger, http.MethodGet, "/v1/calls/"+callID+"/signaling", nil); w.Code != http.StatusForbidden {
		t.Fatalf("stranger poll must 403, got %d", w.Code)
	}

	if w := do(t, callee, http.MethodPut, "/v1/calls/"+callID+"/status", gin.H{"status": "hold"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status must 400, got %d", w.Code)
	}
	if w := do(t, callee, http.MethodPut, "/v1/calls/"+callID+"/status", gin.H{"status": "ended"}); w.Code != http.StatusBadRequest {
		t.Fatalf("ringing->ended must 400, got %d", w.Code)
	}
	if w := do(t, callee, http.MethodPut, "/v1/calls/"+callID+"/status", gin.H{"status": "active"}); w.Code != http.StatusOK {
		t.Fatalf("pickup: got %d", w.Code)
	}
	if w := do(t, callee, http.MethodPut, "/v1/calls/"+callID+"/status", gin.H{"status": "ended"}); w.Code != http.StatusOK {
		t.Fatalf("hangup: got %d", w.Code)
	}

	if w := do(t, caller, http.MethodDelete, "/v1/calls/"+callID+"/signaling", nil); w.Code != http.StatusOK {
		t.Fatalf("clear: got %d", w.Code)
	}
	w = do(t, caller, http.MethodGet, "/v1/calls/"+callID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: got %d", w.Code)
	}
	if decode(t, w)["status"] != "ended" {
		t.Fatalf("expected ended session")
	}
}

func TestCallUnknownID(t *testing.T) {
	env := newTestEnv(t)
	caller := env.router("acct-a", "phone-1", "phone")

	if w := do(t, caller, http.MethodGet, "/v1/calls/nope", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown call must 404, got %d", w.Code)
	}
}

func TestPushTokenEndpoints(t *testing.T) {
	env := newTestEnv(t)
	phone := env.router("acct-a", "phone-1", "phone")

	if w := do(t, phone, http.MethodPost, "/v1/devices/push-token", gin.H{}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing token must 400, got %d", w.Code)
	}
	if w := do(t, phone, http.MethodPost, "/v1/devices/push-token", gin.H{"token": "tok-1"}); w.Code != http.StatusOK {
		t.Fatalf("register token: got %d", w.Code)
	}

	tokens, err := env.pushTokens.ListByAccount(context.Background(), "acct-a")
	if err != nil || len(tokens) != 1 || tokens[0].Token != "tok-1" {
		t.Fatalf("expected stored token, got %v (%v)", tokens, err)
	}

	if w := do(t, phone, http.MethodDelete, "/v1/devices/push-token", nil); w.Code != http.StatusOK {
		t.Fatalf("unregister token: got %d", w.Code)
	}
	tokens, _ = env.pushTokens.ListByAccount(context.Background(), "acct-a")
	if len(tokens) != 0 {
		t.Fatalf("token must be gone, got %v", tokens)
	}
}
