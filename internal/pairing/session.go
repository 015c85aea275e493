package pairing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State is the lifecycle position of a pairing session.
type State string

const (
	StateInitializing  State = "initializing"
	StateAwaitingScan  State = "awaiting_scan"
	StateAuthenticated State = "authenticated"
	StateDisconnected  State = "disconnected"
)

func (s State) rank() int {
	switch s {
	case StateInitializing:
		return 0
	case StateAwaitingScan:
		return 1
	case StateAuthenticated:
		return 2
	case StateDisconnected:
		return 3
	}
	return -1
}

// ClientInfo is what the bridge reports once the messaging client is ready.
type ClientInfo struct {
	WID      string `json:"wid,omitempty"`
	Pushname string `json:"pushname,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// Client is the exclusive handle on one external messaging client.
type Client interface {
	// Info returns nil until the client reports ready.
	Info() *ClientInfo
	Destroy(ctx context.Context) error
}

// EventSink receives client events. Implementations must expect calls from
// the client's own goroutine, one at a time, in emission order.
type EventSink interface {
	HandleQR(payload string)
	HandleAuthenticated()
	HandleDisconnected(reason string)
}

// ClientFactory opens a client for the given identifiers and wires its events into sink.
type ClientFactory interface {
	Open(ctx context.Context, sessionID, ownerID, accountID string, sink EventSink) (Client, error)
}

// LifecycleObserver is notified when a session authenticates or disconnects.
type LifecycleObserver interface {
	OnAuthenticated(sessionID string)
	OnDisconnected(sessionID, reason string)
}

// Session is one handshake attempt with an external messaging client.
type Session struct {
	id        string
	ownerID   string
	accountID string
	createdAt time.Time

	// dispatchMu serializes transition+notify so observers see signals in emission order.
	dispatchMu sync.Mutex

	mu               sync.Mutex
	state            State
	qrPayload        string
	client           Client
	boundAccount     *int64
	disconnectReason string
	disconnectedAt   time.Time
	observers        []LifecycleObserver
}

func newSession(id, ownerID, accountID string, createdAt time.Time) *Session {
	return &Session{
		id:        id,
		ownerID:   ownerID,
		accountID: accountID,
		createdAt: createdAt,
		state:     StateInitializing,
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) OwnerID() string      { return s.ownerID }
func (s *Session) AccountID() string    { return s.accountID }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// QRPayload returns the latest QR payload, if one has arrived.
func (s *Session) QRPayload() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qrPayload, s.qrPayload != ""
}

// Attach hands the client handle to the session. The session owns it from now on.
func (s *Session) Attach(c Client) {
	s.mu.Lock()
	s.client = c
	s.mu.Unlock()
}

func (s *Session) Client() Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// BindAccount records the persisted Account row that mirrors this session,
// replacing any earlier binding.
func (s *Session) BindAccount(accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boundAccount = &accountID
}

func (s *Session) BoundAccount() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boundAccount == nil {
		return 0, false
	}
	return *s.boundAccount, true
}

func (s *Session) DisconnectedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnectedAt, s.state == StateDisconnected
}

// Observe registers o. If the session already authenticated or disconnected,
// o is told immediately so a signal that raced ahead of registration is not lost.
func (s *Session) Observe(o LifecycleObserver) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	s.observers = append(s.observers, o)
	state := s.state
	reason := s.disconnectReason
	s.mu.Unlock()

	switch state {
	case StateAuthenticated:
		s.notify(o, func() { o.OnAuthenticated(s.id) })
	case StateDisconnected:
		s.notify(o, func() { o.OnDisconnected(s.id, reason) })
	}
}

// HandleQR stores a (possibly refreshed) QR payload. Ignored once authenticated.
func (s *Session) HandleQR(payload string) {
	if payload == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.rank() > StateAwaitingScan.rank() {
		return
	}
	s.qrPayload = payload
	s.state = StateAwaitingScan

	log.Debug().Str("sessionId", s.id).Msg("qr code received")
}

func (s *Session) HandleAuthenticated() {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if s.state.rank() >= StateAuthenticated.rank() {
		s.mu.Unlock()
		return
	}
	s.state = StateAuthenticated
	observers := append([]LifecycleObserver(nil), s.observers...)
	s.mu.Unlock()

	log.Info().Str("sessionId", s.id).Msg("client authenticated")

	for _, o := range observers {
		o := o
		s.notify(o, func() { o.OnAuthenticated(s.id) })
	}
}

func (s *Session) HandleDisconnected(reason string) {
	s.MarkDisconnected(reason)
}

// MarkDisconnected moves the session to its terminal state. It reports false
// when the session was already disconnected.
func (s *Session) MarkDisconnected(reason string) bool {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return false
	}
	s.state = StateDisconnected
	s.disconnectReason = reason
	s.disconnectedAt = time.Now()
	observers := append([]LifecycleObserver(nil), s.observers...)
	s.mu.Unlock()

	log.Info().Str("sessionId", s.id).Str("reason", reason).Msg("client disconnected")

	for _, o := range observers {
		o := o
		s.notify(o, func() { o.OnDisconnected(s.id, reason) })
	}
	return true
}

// notify runs one observer callback; a panic in it must not take down the
// client's event goroutine.
func (s *Session) notify(o LifecycleObserver, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().
				Str("sessionId", s.id).
				Interface("panic", p).
				Msgf("lifecycle observer %T panicked", o)
		}
	}()
	fn()
}

// Summary is the lightweight listing view of a session.
type Summary struct {
	SessionID string    `json:"sessionId"`
	State     State     `json:"state"`
	Timestamp int64     `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Session) Summary() Summary {
	return Summary{
		SessionID: s.id,
		State:     s.State(),
		Timestamp: s.createdAt.UnixMilli(),
		CreatedAt: s.createdAt,
	}
}
