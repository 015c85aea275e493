package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SanketOodles/wa-automation-backend/internal/httputil"
)

type EventType string

const (
	EventLoginSuccess      EventType = "login_success"
	EventLoginFailure      EventType = "login_failure"
	EventSignup            EventType = "signup"
	EventAuthFailure       EventType = "auth_failure"
	EventAdminDenied       EventType = "admin_denied"
	EventRateLimitExceed   EventType = "rate_limit_exceeded"
	EventPairingStart      EventType = "pairing_start"
	EventSessionDisconnect EventType = "session_disconnect"
	EventAccountDelete     EventType = "account_delete"
	EventUserCreate        EventType = "user_create"
	EventUserDelete        EventType = "user_delete"
	EventRoleChange        EventType = "role_change"
)

type Event struct {
	Type      EventType
	UserID    *int64
	AccountID *int64
	SessionID string
	IP        string
	UserAgent string
	Success   bool
	Details   map[string]interface{}
}

func Log(ctx context.Context, event Event) {
	logger := log.Ctx(ctx).With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Bool("success", event.Success).
		Time("timestamp", time.Now()).
		Logger()

	if event.UserID != nil {
		logger = logger.With().Int64("user_id", *event.UserID).Logger()
	}
	if event.AccountID != nil {
		logger = logger.With().Int64("account_id", *event.AccountID).Logger()
	}
	if event.SessionID != "" {
		logger = logger.With().Str("session_id", event.SessionID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		logger = logger.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = httputil.ClientIP(r)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}
