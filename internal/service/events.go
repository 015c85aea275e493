package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/sse"
)

const publishTimeout = 5 * time.Second

// EventPublisher is satisfied by *sse.Broker.
type EventPublisher interface {
	Publish(ctx context.Context, topic, eventType string, payload any) error
}

// PairingEvents publishes pairing and account status events to organisation
// topics. A nil publisher turns every call into a no-op.
type PairingEvents struct {
	publisher EventPublisher
}

func NewPairingEvents(publisher EventPublisher) *PairingEvents {
	return &PairingEvents{publisher: publisher}
}

type QRGeneratedEvent struct {
	SessionID string `json:"sessionId"`
	AccountID *int64 `json:"accountId,omitempty"`
	QRImage   string `json:"qrImage"`
}

type SessionDisconnectedEvent struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason,omitempty"`
}

type AccountStatusEvent struct {
	AccountID int64               `json:"accountId"`
	Status    model.AccountStatus `json:"status"`
}

func (e *PairingEvents) QRGenerated(ctx context.Context, orgID int64, ev QRGeneratedEvent) {
	e.publish(ctx, orgID, sse.EventQRGenerated, ev)
}

func (e *PairingEvents) SessionDisconnected(ctx context.Context, orgID int64, ev SessionDisconnectedEvent) {
	e.publish(ctx, orgID, sse.EventSessionDisconnected, ev)
}

// AccountStatusChanged implements pairing.Notifier.
func (e *PairingEvents) AccountStatusChanged(ctx context.Context, account *model.Account) {
	if account == nil {
		return
	}
	e.publish(ctx, account.OrgID, sse.EventAccountStatus, AccountStatusEvent{
		AccountID: account.ID,
		Status:    account.Status,
	})
}

func (e *PairingEvents) publish(ctx context.Context, orgID int64, eventType string, payload any) {
	if e == nil || e.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := e.publisher.Publish(ctx, sse.OrgTopic(orgID), eventType, payload); err != nil {
		log.Warn().Err(err).
			Int64("orgId", orgID).
			Str("type", eventType).
			Msg("failed to publish event")
	}
}
