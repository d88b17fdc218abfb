package call

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/presence"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/push"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("call: not found")
	ErrInvalidArgument   = errors.New("call: invalid argument")
	ErrForbidden         = errors.New("call: not a participant")
	ErrInvalidTransition = errors.New("call: invalid status transition")
	ErrTooManyCalls      = errors.New("call: open session limit reached")
)

// Repository is the persistence contract for sessions and signal messages.
type Repository interface {
	InsertSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	UpdateSessionStatus(ctx context.Context, id string, status Status, endedAt *time.Time) error
	AppendSignal(ctx context.Context, m SignalMessage) error
	ListSignals(ctx context.Context, callID, excludeDeviceID string) ([]SignalMessage, error)
	ClearSignals(ctx context.Context, callID string) error
}

// TargetResolver maps a dialed identifier to an account id. An error means
// unresolved; the call is still created and routed best-effort.
type TargetResolver interface {
	ResolveTarget(ctx context.Context, identifier string) (string, error)
}

// Broadcaster is the PresenceHub subset the call flow needs.
type Broadcaster interface {
	Broadcast(ctx context.Context, accountID, topic string, ev presence.Event) error
	BroadcastExcept(ctx context.Context, accountID, excludeDeviceID, topic string, ev presence.Event) error
	ConnectedDeviceCount(accountID string) int
}

// WakeNotifier is the push fallback. Its result is advisory only.
type WakeNotifier interface {
	Notify(ctx context.Context, accountID, kind string, payload map[string]any, excludeDeviceID string) bool
}

// SessionLimiter bounds concurrently open call attempts per account.
// A nil limiter means unbounded.
type SessionLimiter interface {
	Acquire(ctx context.Context, accountID string) (bool, error)
	Release(ctx context.Context, accountID string)
}

type Service struct {
	repo     Repository
	resolver TargetResolver
	hub      Broadcaster
	notifier WakeNotifier
	limiter  SessionLimiter
	log      *slog.Logger
	clock    func() time.Time
}

func NewService(repo Repository, resolver TargetResolver, hub Broadcaster, notifier WakeNotifier, limiter SessionLimiter, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		hub:      hub,
		notifier: notifier,
		limiter:  limiter,
		log:      log,
		clock:    time.Now,
	}
}

type CreateRequest struct {
	CalleeIdentifier string
	CalleeName       string
	CallType         string
}

// CreateDebug reports how the attempt was routed. Reachability is advisory:
// the call is accepted even when nothing could be woken, and these fields are
// what operators look at when a callee claims the phone never rang.
type CreateDebug struct {
	CalleeResolved   bool `json:"calleeResolved"`
	SameAccount      bool `json:"sameAccount"`
	ConnectedDevices int  `json:"connectedDevices"`
	PushSent         bool `json:"pushSent"`
}

type incomingCallPayload struct {
	CallID           string `json:"call_id"`
	CallerAccountID  string `json:"caller_account_id"`
	CalleeIdentifier string `json:"callee_identifier"`
	CalleeName       string `json:"callee_name,omitempty"`
	CallType         string `json:"call_type"`
	Status           Status `json:"status"`
}

// Create starts a call attempt and routes the ring to the target device set.
//
// Routing, per resolution outcome:
//   - different account: broadcast to every device of that account
//   - same account (desktop dialing its paired phone): broadcast to the
//     caller's other devices only
//   - unresolved: fall back to the caller's own other devices, since the
//     dialed string may still name one of them
//
// A push wake always goes out alongside the broadcast: a live socket does not
// guarantee a foregrounded app.
func (s *Service) Create(ctx context.Context, callerAccountID, callerDeviceID string, req CreateRequest) (Session, CreateDebug, error) {
	if callerAccountID == "" || callerDeviceID == "" {
		return Session{}, CreateDebug{}, ErrInvalidArgument
	}
	if req.CalleeIdentifier == "" {
		return Session{}, CreateDebug{}, ErrInvalidArgument
	}
	callType := req.CallType
	if callType == "" {
		callType = "audio"
	}

	capHeld := false
	if s.limiter != nil {
		ok, err := s.limiter.Acquire(ctx, callerAccountID)
		if err != nil {
			// The limiter is a guard rail, not a dependency; a broken limiter
			// must not block calling.
			s.log.Warn("call limiter unavailable", "err", err)
		} else if !ok {
			return Session{}, CreateDebug{}, ErrTooManyCalls
		} else {
			capHeld = true
		}
	}

	debug := CreateDebug{}
	calleeAccountID := ""
	if resolved, err := s.resolver.ResolveTarget(ctx, req.CalleeIdentifier); err == nil {
		calleeAccountID = resolved
		debug.CalleeResolved = true
		debug.SameAccount = resolved == callerAccountID
	} else {
		s.log.Debug("callee identifier unresolved", "identifier", req.CalleeIdentifier, "err", err)
	}

	sess := Session{
		ID:               uuid.NewString(),
		CallerAccountID:  callerAccountID,
		CallerDeviceID:   callerDeviceID,
		CalleeIdentifier: req.CalleeIdentifier,
		CalleeAccountID:  calleeAccountID,
		CalleeName:       req.CalleeName,
		CallType:         callType,
		Status:           StatusRinging,
		StartedAt:        s.clock().UTC(),
		CapHeld:          capHeld,
	}
	if err := s.repo.InsertSession(ctx, sess); err != nil {
		if capHeld {
			s.limiter.Release(ctx, callerAccountID)
		}
		return Session{}, CreateDebug{}, err
	}

	ev := presence.Event{Type: presence.EventCallIncoming, Data: incomingCallPayload{
		CallID:           sess.ID,
		CallerAccountID:  sess.CallerAccountID,
		CalleeIdentifier: sess.CalleeIdentifier,
		CalleeName:       sess.CalleeName,
		CallType:         sess.CallType,
		Status:           sess.Status,
	}}

	// Broadcast and push target the resolved account; both fall back to the
	// caller's own account when resolution failed.
	targetAccountID := calleeAccountID
	if targetAccountID == "" {
		targetAccountID = callerAccountID
	}

	var broadcastErr error
	if targetAccountID == callerAccountID {
		broadcastErr = s.hub.BroadcastExcept(ctx, callerAccountID, callerDeviceID, presence.TopicCalls, ev)
	} else {
		broadcastErr = s.hub.Broadcast(ctx, targetAccountID, presence.TopicCalls, ev)
	}
	if broadcastErr != nil {
		// Fan-out failure never fails the call attempt.
		s.log.Warn("incoming call broadcast failed", "call_id", sess.ID, "err", broadcastErr)
	}
	debug.ConnectedDevices = s.hub.ConnectedDeviceCount(targetAccountID)

	pushPayload := map[string]any{
		"call_id":   sess.ID,
		"call_type": sess.CallType,
		"caller":    sess.CallerAccountID,
	}
	excludeDevice := ""
	if targetAccountID == callerAccountID {
		excludeDevice = callerDeviceID
	}
	debug.PushSent = s.notifier.Notify(ctx, targetAccountID, push.KindIncomingCall, pushPayload, excludeDevice)

	return sess, debug, nil
}

type statusChangePayload struct {
	CallID string `json:"call_id"`
	Status Status `json:"status"`
}

// UpdateStatus moves the session along the transition graph. Either side of
// the call may drive it; everyone else gets ErrForbidden. The new status is
// broadcast to both parties' accounts.
func (s *Service) UpdateStatus(ctx context.Context, accountID, callID string, next Status) (Session, error) {
	if accountID == "" || callID == "" {
		return Session{}, ErrInvalidArgument
	}
	sess, err := s.repo.GetSession(ctx, callID)
	if err != nil {
		return Session{}, err
	}
	if !sess.participant(accountID) {
		return Session{}, ErrForbidden
	}
	if !sess.Status.CanTransitionTo(next) {
		return Session{}, ErrInvalidTransition
	}

	var endedAt *time.Time
	if next.Terminal() {
		now := s.clock().UTC()
		endedAt = &now
	}
	if err := s.repo.UpdateSessionStatus(ctx, callID, next, endedAt); err != nil {
		return Session{}, err
	}
	sess.Status = next
	sess.EndedAt = endedAt

	if next.Terminal() && s.limiter != nil && sess.CapHeld {
		s.limiter.Release(ctx, sess.CallerAccountID)
	}

	ev := presence.Event{Type: presence.EventCallStatus, Data: statusChangePayload{CallID: sess.ID, Status: next}}
	for _, acct := range s.partyAccounts(sess) {
		if err := s.hub.Broadcast(ctx, acct, presence.TopicCalls, ev); err != nil {
			s.log.Warn("call status broadcast failed", "call_id", sess.ID, "account_id", acct, "err", err)
		}
	}
	return sess, nil
}

// partyAccounts lists the distinct accounts on the call.
func (s *Service) partyAccounts(sess Session) []string {
	accounts := []string{sess.CallerAccountID}
	if sess.CalleeAccountID != "" && sess.CalleeAccountID != sess.CallerAccountID {
		accounts = append(accounts, sess.CalleeAccountID)
	}
	return accounts
}

type signalPayload struct {
	CallID     string     `json:"call_id"`
	SignalType SignalType `json:"signal_type"`
}

// SendSignal stores a negotiation message and nudges the other side twice:
// a broadcast to the peer account when it differs, plus a broadcast to the
// sender's own other devices for same-account calls. Polling remains the
// source of truth; the nudges are hints. toDeviceID is an optional addressing
// hint carried through to pollers; it does not restrict delivery.
func (s *Service) SendSignal(ctx context.Context, accountID, deviceID, callID string, sigType SignalType, payload json.RawMessage, toDeviceID string) error {
	if accountID == "" || deviceID == "" || callID == "" {
		return ErrInvalidArgument
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return ErrInvalidArgument
	}
	sess, err := s.repo.GetSession(ctx, callID)
	if err != nil {
		return err
	}
	if !sess.participant(accountID) {
		return ErrForbidden
	}

	msg := SignalMessage{
		ID:           uuid.NewString(),
		CallID:       callID,
		SignalType:   sigType,
		Payload:      payload,
		FromDeviceID: deviceID,
		ToDeviceID:   toDeviceID,
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.repo.AppendSignal(ctx, msg); err != nil {
		return err
	}

	ev := presence.Event{Type: presence.EventCallSignal, Data: signalPayload{CallID: callID, SignalType: sigType}}
	if peer := s.peerAccount(sess, accountID); peer != "" {
		if err := s.hub.Broadcast(ctx, peer, presence.TopicCalls, ev); err != nil {
			s.log.Warn("signal broadcast failed", "call_id", callID, "err", err)
		}
	}
	if err := s.hub.BroadcastExcept(ctx, accountID, deviceID, presence.TopicCalls, ev); err != nil {
		s.log.Warn("signal broadcast failed", "call_id", callID, "err", err)
	}
	return nil
}

// peerAccount returns the account on the other side of the call when it
// differs from the sender's own.
func (s *Service) peerAccount(sess Session, accountID string) string {
	if accountID == sess.CallerAccountID {
		if sess.CalleeAccountID != "" && sess.CalleeAccountID != accountID {
			return sess.CalleeAccountID
		}
		return ""
	}
	if sess.CallerAccountID != accountID {
		return sess.CallerAccountID
	}
	return ""
}

// PollSignals returns every signal on the call not authored by the requesting
// device. The filter is by device identity, not call side: any participant
// device sees all traffic but its own. Messages survive polling; Clear removes
// them once the call ends.
func (s *Service) PollSignals(ctx context.Context, accountID, deviceID, callID string) ([]SignalMessage, error) {
	if accountID == "" || deviceID == "" || callID == "" {
		return nil, ErrInvalidArgument
	}
	sess, err := s.repo.GetSession(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !sess.participant(accountID) {
		return nil, ErrForbidden
	}
	return s.repo.ListSignals(ctx, callID, deviceID)
}

// ClearSignals removes the call's negotiation backlog; either party may do it.
func (s *Service) ClearSignals(ctx context.Context, accountID, callID string) error {
	if accountID == "" || callID == "" {
		return ErrInvalidArgument
	}
	sess, err := s.repo.GetSession(ctx, callID)
	if err != nil {
		return err
	}
	if !sess.participant(accountID) {
		return ErrForbidden
	}
	return s.repo.ClearSignals(ctx, callID)
}

// Get returns the session; participants only.
func (s *Service) Get(ctx context.Context, accountID, callID string) (Session, error) {
	if accountID == "" || callID == "" {
		return Session{}, ErrInvalidArgument
	}
	sess, err := s.repo.GetSession(ctx, callID)
	if err != nil {
		return Session{}, err
	}
	if !sess.participant(accountID) {
		return Session{}, ErrForbidden
	}
	return sess, nil
}
