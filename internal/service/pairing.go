package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SanketOodles/wa-automation-backend/internal/audit"
	apperrors "github.com/SanketOodles/wa-automation-backend/internal/errors"
	"github.com/SanketOodles/wa-automation-backend/internal/metrics"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/pairing"
	"github.com/SanketOodles/wa-automation-backend/internal/qr"
)

const (
	StatusNoClients = "no_clients"
	StatusClients   = "clients_active"

	ConnectionConnected  = "connected"
	ConnectionConnecting = "connecting"

	explicitDisconnectReason = "explicit disconnect"
	expiredReason            = "pairing expired"
)

// PairingAccountStore is the part of the account repository pairing needs.
type PairingAccountStore interface {
	pairing.AccountStore
	Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error)
}

type PairingConfig struct {
	DefaultOrgID     int64
	DefaultLocation  string
	DialTimeout      time.Duration
	TeardownTimeout  time.Duration
	ReconcileTimeout time.Duration
}

type StartPairingParams struct {
	OrgID       int64
	RequesterIP string
	Location    string
	Initialize  bool
	RequestedBy *int64
}

// StartPairingResult is returned whenever a QR was produced. Stored is false
// when the Account row could not be written; the QR is still usable.
type StartPairingResult struct {
	SessionID   string
	QRImage     string
	QRData      string
	Account     *model.Account
	Reused      bool
	Stored      bool
	StoreError  error
	LiveClients int
}

type SessionStatus struct {
	SessionID string              `json:"sessionId"`
	Status    string              `json:"status"`
	State     pairing.State       `json:"state"`
	CreatedAt time.Time           `json:"createdAt"`
	AccountID *int64              `json:"accountId,omitempty"`
	Info      *pairing.ClientInfo `json:"info,omitempty"`
}

type StatusReport struct {
	Status  string          `json:"status"`
	Clients []SessionStatus `json:"clients"`
}

type DisconnectResult struct {
	SessionID           string            `json:"sessionId,omitempty"`
	AlreadyDisconnected bool              `json:"alreadyDisconnected,omitempty"`
	Sessions            []pairing.Summary `json:"activeClients"`
}

// PairingService drives the QR handshake between the bridge and the accounts table.
type PairingService struct {
	registry *pairing.Registry
	clients  pairing.ClientFactory
	waiter   *pairing.Waiter
	accounts PairingAccountStore
	events   *PairingEvents
	render   func(string) (string, error)
	cfg      PairingConfig
}

func NewPairingService(
	registry *pairing.Registry,
	clients pairing.ClientFactory,
	waiter *pairing.Waiter,
	accounts PairingAccountStore,
	events *PairingEvents,
	cfg PairingConfig,
) *PairingService {
	if cfg.DefaultOrgID <= 0 {
		cfg.DefaultOrgID = 1
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.TeardownTimeout <= 0 {
		cfg.TeardownTimeout = 10 * time.Second
	}
	return &PairingService{
		registry: registry,
		clients:  clients,
		waiter:   waiter,
		accounts: accounts,
		events:   events,
		render:   qr.RenderDataURL,
		cfg:      cfg,
	}
}

func (s *PairingService) StartPairing(ctx context.Context, p StartPairingParams) (*StartPairingResult, error) {
	orgID := p.OrgID
	if orgID <= 0 {
		orgID = s.cfg.DefaultOrgID
	}
	location := p.Location
	if location == "" {
		location = s.cfg.DefaultLocation
	}

	var session *pairing.Session
	if p.Initialize {
		var err error
		session, err = s.openSession(ctx, orgID, p.RequestedBy)
		if err != nil {
			return nil, err
		}
	} else {
		session = s.registry.Current()
		if session == nil {
			return nil, apperrors.NotFound("Active pairing session")
		}
		if state := session.State(); state == pairing.StateAuthenticated || state == pairing.StateDisconnected {
			return nil, apperrors.New(apperrors.ErrCodeConflict,
				fmt.Sprintf("Current pairing session is already %s", state)).
				WithDetails(map[string]any{"sessionId": session.ID(), "state": state})
		}
	}

	started := time.Now()
	payload, err := s.waiter.Wait(ctx, session)
	metrics.ObserveQRWait(time.Since(started))
	if err != nil {
		if errors.Is(err, pairing.ErrQRTimeout) {
			metrics.ObservePairing("timeout")
			log.Warn().
				Str("sessionId", session.ID()).
				Int("attempts", s.waiter.MaxAttempts).
				Msg("qr not generated in time")
			return nil, apperrors.QRTimeout(s.waiter.MaxAttempts)
		}
		return nil, fmt.Errorf("wait for qr: %w", err)
	}

	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		if art, err := qr.Terminal(payload); err == nil {
			log.Debug().Str("sessionId", session.ID()).Msg("scan to pair\n" + art)
		}
	}

	image, err := s.render(payload)
	if err != nil {
		metrics.ObservePairing("render_error")
		return nil, apperrors.Internal("Failed to render QR code").WithCause(err)
	}

	result := &StartPairingResult{
		SessionID:   session.ID(),
		QRImage:     image,
		QRData:      payload,
		LiveClients: s.registry.Len(),
	}

	if boundID, ok := session.BoundAccount(); ok {
		account, err := s.accounts.FindByID(ctx, boundID)
		if err != nil {
			return s.partial(ctx, orgID, result, err), nil
		}
		if account != nil {
			result.Account = account
			result.Reused = true
			result.Stored = true
			metrics.ObservePairing("success")
			s.events.QRGenerated(ctx, orgID, QRGeneratedEvent{SessionID: session.ID(), AccountID: &account.ID, QRImage: image})
			return result, nil
		}
	}

	account, err := s.accounts.Create(ctx, model.CreateAccountParams{
		OrgID:       orgID,
		QRSession:   &image,
		Status:      model.AccountStatusPending,
		IPAddress:   optionalString(p.RequesterIP),
		Location:    optionalString(location),
		CreatedByID: p.RequestedBy,
	})
	if err != nil {
		return s.partial(ctx, orgID, result, err), nil
	}

	session.BindAccount(account.ID)
	session.Observe(pairing.NewReconciler(s.accounts, s.events, account.ID, p.RequestedBy).
		WithTimeout(s.cfg.ReconcileTimeout))

	result.Account = account
	result.Stored = true
	metrics.ObservePairing("success")

	log.Info().
		Str("sessionId", session.ID()).
		Int64("accountId", account.ID).
		Int64("orgId", orgID).
		Msg("qr generated and account stored")

	s.events.QRGenerated(ctx, orgID, QRGeneratedEvent{SessionID: session.ID(), AccountID: &account.ID, QRImage: image})
	return result, nil
}

// partial records a persistence failure after a QR was produced. The session
// stays registered so the handshake can still complete.
func (s *PairingService) partial(ctx context.Context, orgID int64, result *StartPairingResult, err error) *StartPairingResult {
	metrics.ObservePairing("partial")
	log.Error().Err(err).
		Str("sessionId", result.SessionID).
		Msg("qr generated but account could not be stored")

	result.Stored = false
	result.StoreError = apperrors.PersistenceFailed(err)
	s.events.QRGenerated(ctx, orgID, QRGeneratedEvent{SessionID: result.SessionID, QRImage: result.QRImage})
	return result
}

func (s *PairingService) openSession(ctx context.Context, orgID int64, requestedBy *int64) (*pairing.Session, error) {
	ownerID := fmt.Sprintf("org_%d", orgID)
	accountID := "user_anonymous"
	if requestedBy != nil {
		accountID = fmt.Sprintf("user_%d", *requestedBy)
	}

	session := s.registry.Create(ownerID, accountID)
	session.Observe(&sessionEventObserver{events: s.events, orgID: orgID})
	metrics.SetLiveSessions(s.registry.Len())

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	defer cancel()

	client, err := s.clients.Open(dialCtx, session.ID(), ownerID, accountID, session)
	if err != nil {
		s.registry.Remove(session.ID())
		metrics.SetLiveSessions(s.registry.Len())
		metrics.ObservePairing("client_error")
		log.Error().Err(err).Str("sessionId", session.ID()).Msg("failed to open bridge client")
		return nil, apperrors.External("bridge", err)
	}
	session.Attach(client)

	log.Info().
		Str("sessionId", session.ID()).
		Int("liveSessions", s.registry.Len()).
		Msg("pairing session created")

	return session, nil
}

// GetStatus reports every live session; "connected" once the bridge client is ready.
func (s *PairingService) GetStatus() StatusReport {
	sessions := s.registry.Sessions()
	if len(sessions) == 0 {
		return StatusReport{Status: StatusNoClients, Clients: []SessionStatus{}}
	}

	report := StatusReport{Status: StatusClients, Clients: make([]SessionStatus, 0, len(sessions))}
	for _, session := range sessions {
		st := SessionStatus{
			SessionID: session.ID(),
			Status:    ConnectionConnecting,
			State:     session.State(),
			CreatedAt: session.CreatedAt(),
		}
		if id, ok := session.BoundAccount(); ok {
			st.AccountID = &id
		}
		if client := session.Client(); client != nil {
			if info := client.Info(); info != nil {
				st.Status = ConnectionConnected
				st.Info = info
			}
		}
		report.Clients = append(report.Clients, st)
	}
	return report
}

func (s *PairingService) ListSessions() []pairing.Summary {
	return s.registry.List()
}

func (s *PairingService) GetSession(id string) (*pairing.Summary, error) {
	session, ok := s.registry.Get(id)
	if !ok {
		return nil, apperrors.NotFound("Session").WithDetails(map[string]any{"activeClients": s.registry.List()})
	}
	summary := session.Summary()
	return &summary, nil
}

// Disconnect tears down one session. Without an id it only lists what could be disconnected.
func (s *PairingService) Disconnect(ctx context.Context, id string) (*DisconnectResult, error) {
	if id == "" {
		return &DisconnectResult{Sessions: s.registry.List()}, nil
	}

	session, ok := s.registry.Get(id)
	if !ok {
		return nil, apperrors.NotFound("Session").
			WithDetails(map[string]any{"activeClients": s.registry.List()})
	}

	if session.State() == pairing.StateDisconnected {
		s.release(ctx, session)
		s.registry.Remove(id)
		metrics.SetLiveSessions(s.registry.Len())
		return &DisconnectResult{SessionID: id, AlreadyDisconnected: true, Sessions: s.registry.List()}, nil
	}

	if err := s.teardown(ctx, session, explicitDisconnectReason); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{
		Type:      audit.EventSessionDisconnect,
		SessionID: id,
		Success:   true,
	})

	return &DisconnectResult{SessionID: id, Sessions: s.registry.List()}, nil
}

// DisconnectAccount tears down the live session bound to accountID, if any.
func (s *PairingService) DisconnectAccount(ctx context.Context, accountID int64) error {
	session := s.registry.FindByAccount(accountID)
	if session == nil {
		return nil
	}
	if session.State() == pairing.StateDisconnected {
		s.release(ctx, session)
		s.registry.Remove(session.ID())
		metrics.SetLiveSessions(s.registry.Len())
		return nil
	}
	return s.teardown(ctx, session, explicitDisconnectReason)
}

// release closes the client of a session that already disconnected. The
// bridge may keep the socket open after reporting a disconnect, so the handle
// is closed before the session is dropped. Failures are logged only.
func (s *PairingService) release(ctx context.Context, session *pairing.Session) {
	client := session.Client()
	if client == nil {
		return
	}

	destroyCtx, cancel := context.WithTimeout(ctx, s.cfg.TeardownTimeout)
	defer cancel()

	if err := client.Destroy(destroyCtx); err != nil {
		log.Warn().Err(err).Str("sessionId", session.ID()).Msg("failed to release bridge client")
	}
}

// teardown destroys the client, then marks and removes the session. On
// failure the session is kept so the live handle is not orphaned.
func (s *PairingService) teardown(ctx context.Context, session *pairing.Session, reason string) error {
	if client := session.Client(); client != nil {
		destroyCtx, cancel := context.WithTimeout(ctx, s.cfg.TeardownTimeout)
		defer cancel()

		if err := client.Destroy(destroyCtx); err != nil {
			log.Error().Err(err).Str("sessionId", session.ID()).Msg("failed to destroy bridge client")
			return apperrors.TeardownFailed(session.ID(), err)
		}
	}

	session.MarkDisconnected(reason)
	s.registry.Remove(session.ID())
	metrics.SetLiveSessions(s.registry.Len())

	log.Info().
		Str("sessionId", session.ID()).
		Str("reason", reason).
		Int("remaining", s.registry.Len()).
		Msg("pairing session disconnected")
	return nil
}

// SweepDisconnected drops sessions that disconnected on their own before
// cutoff and closes their clients.
func (s *PairingService) SweepDisconnected(ctx context.Context, cutoff time.Time) int {
	removed := s.registry.RemoveDisconnected(cutoff)
	if len(removed) == 0 {
		return 0
	}
	metrics.SetLiveSessions(s.registry.Len())

	ids := make([]string, 0, len(removed))
	for _, session := range removed {
		s.release(ctx, session)
		ids = append(ids, session.ID())
	}
	log.Info().Strs("sessionIds", ids).Msg("swept disconnected sessions")
	return len(removed)
}

// ExpireUnpaired tears down sessions created before cutoff that never authenticated.
func (s *PairingService) ExpireUnpaired(ctx context.Context, cutoff time.Time) (int, error) {
	var expired int
	var errs []error
	for _, session := range s.registry.Sessions() {
		state := session.State()
		if state == pairing.StateAuthenticated || state == pairing.StateDisconnected {
			continue
		}
		if !session.CreatedAt().Before(cutoff) {
			continue
		}
		if err := s.teardown(ctx, session, expiredReason); err != nil {
			errs = append(errs, err)
			continue
		}
		expired++
	}
	return expired, errors.Join(errs...)
}

// LiveAccountIDs lists accounts bound to a session that is not disconnected.
func (s *PairingService) LiveAccountIDs() []int64 {
	var ids []int64
	for _, session := range s.registry.Sessions() {
		if session.State() == pairing.StateDisconnected {
			continue
		}
		if id, ok := session.BoundAccount(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// sessionEventObserver publishes session_disconnected for every session.
type sessionEventObserver struct {
	events *PairingEvents
	orgID  int64
}

func (o *sessionEventObserver) OnAuthenticated(string) {}

func (o *sessionEventObserver) OnDisconnected(sessionID, reason string) {
	o.events.SessionDisconnected(context.Background(), o.orgID, SessionDisconnectedEvent{
		SessionID: sessionID,
		Reason:    reason,
	})
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
