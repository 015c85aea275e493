package pairing

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SanketOodles/wa-automation-backend/internal/metrics"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
)

const DefaultReconcileTimeout = 10 * time.Second

// AccountStore is the slice of the account repository the reconciler needs.
type AccountStore interface {
	FindByID(ctx context.Context, id int64) (*model.Account, error)
	UpdateStatus(ctx context.Context, id int64, status model.AccountStatus, updatedBy *int64) (*model.Account, error)
}

// Notifier fans out account status changes to interested listeners.
type Notifier interface {
	AccountStatusChanged(ctx context.Context, account *model.Account)
}

// Reconciler mirrors session lifecycle signals onto one persisted Account.
// It runs outside any request, so every write gets its own deadline and all
// failures are logged and swallowed.
type Reconciler struct {
	store     AccountStore
	notifier  Notifier
	accountID int64
	actorID   *int64
	timeout   time.Duration
}

// NewReconciler binds a reconciler to an account. actorID is stamped as
// updated_by on disconnect and may be nil.
func NewReconciler(store AccountStore, notifier Notifier, accountID int64, actorID *int64) *Reconciler {
	return &Reconciler{
		store:     store,
		notifier:  notifier,
		accountID: accountID,
		actorID:   actorID,
		timeout:   DefaultReconcileTimeout,
	}
}

// WithTimeout overrides the per-write deadline.
func (r *Reconciler) WithTimeout(d time.Duration) *Reconciler {
	if d > 0 {
		r.timeout = d
	}
	return r
}

func (r *Reconciler) OnAuthenticated(sessionID string) {
	r.apply("authenticated", sessionID, model.AccountStatusActive, nil)
}

func (r *Reconciler) OnDisconnected(sessionID, reason string) {
	log.Info().
		Str("sessionId", sessionID).
		Int64("accountId", r.accountID).
		Str("reason", reason).
		Msg("reconciling disconnect")
	r.apply("disconnected", sessionID, model.AccountStatusDisconnected, r.actorID)
}

func (r *Reconciler) apply(event, sessionID string, status model.AccountStatus, updatedBy *int64) {
	defer func() {
		if p := recover(); p != nil {
			metrics.ObserveReconcile(event, "panic")
			log.Error().
				Str("sessionId", sessionID).
				Int64("accountId", r.accountID).
				Interface("panic", p).
				Msg("account reconciliation panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	account, err := r.store.FindByID(ctx, r.accountID)
	if err != nil {
		metrics.ObserveReconcile(event, "error")
		log.Error().Err(err).
			Str("sessionId", sessionID).
			Int64("accountId", r.accountID).
			Msg("failed to load account for reconciliation")
		return
	}
	if account == nil {
		metrics.ObserveReconcile(event, "missing")
		log.Warn().
			Str("sessionId", sessionID).
			Int64("accountId", r.accountID).
			Msg("account gone, skipping reconciliation")
		return
	}

	updated, err := r.store.UpdateStatus(ctx, r.accountID, status, updatedBy)
	if err != nil {
		metrics.ObserveReconcile(event, "error")
		log.Error().Err(err).
			Str("sessionId", sessionID).
			Int64("accountId", r.accountID).
			Str("status", string(status)).
			Msg("failed to update account status")
		return
	}
	if updated == nil {
		metrics.ObserveReconcile(event, "missing")
		return
	}

	metrics.ObserveReconcile(event, "ok")
	log.Info().
		Str("sessionId", sessionID).
		Int64("accountId", r.accountID).
		Str("status", string(status)).
		Msg("account status reconciled")

	if r.notifier != nil {
		r.notifier.AccountStatusChanged(ctx, updated)
	}
}
