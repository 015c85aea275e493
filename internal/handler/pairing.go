package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SanketOodles/wa-automation-backend/internal/audit"
	apperrors "github.com/SanketOodles/wa-automation-backend/internal/errors"
	"github.com/SanketOodles/wa-automation-backend/internal/httputil"
	"github.com/SanketOodles/wa-automation-backend/internal/middleware"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/pairing"
	"github.com/SanketOodles/wa-automation-backend/internal/service"
)

// PairingManager is implemented by *service.PairingService.
type PairingManager interface {
	StartPairing(ctx context.Context, p service.StartPairingParams) (*service.StartPairingResult, error)
	GetStatus() service.StatusReport
	ListSessions() []pairing.Summary
	GetSession(id string) (*pairing.Summary, error)
	Disconnect(ctx context.Context, id string) (*service.DisconnectResult, error)
}

type PairingHandler struct {
	pairing   PairingManager
	pairGuard []func(http.Handler) http.Handler
}

// NewPairingHandler wires the pairing endpoints. pairGuard wraps only the QR
// generation route.
func NewPairingHandler(pairing PairingManager, pairGuard ...func(http.Handler) http.Handler) *PairingHandler {
	return &PairingHandler{
		pairing:   pairing,
		pairGuard: pairGuard,
	}
}

func (h *PairingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	pair := r.With(h.pairGuard...)
	pair.Post("/pair", h.StartPairing)
	pair.Get("/pair", h.StartPairing)

	r.Get("/pair/status", h.GetStatus)
	r.Get("/pair/sessions", h.ListSessions)
	r.Get("/pair/sessions/{sessionId}", h.GetSession)

	r.Get("/pair/session", h.Disconnect)
	r.Delete("/pair/session", h.Disconnect)
	r.Get("/pair/session/{sessionId}", h.Disconnect)
	r.Delete("/pair/session/{sessionId}", h.Disconnect)

	return r
}

type startPairingRequest struct {
	OrgID    *int64 `json:"org_id"`
	Location string `json:"location"`
}

type pairingResponse struct {
	SessionID   string         `json:"sessionId"`
	QRImage     string         `json:"qrImage"`
	QRData      string         `json:"qrData"`
	AccountID   *int64         `json:"accountId,omitempty"`
	Account     *model.Account `json:"account,omitempty"`
	Reused      bool           `json:"reused,omitempty"`
	LiveClients int            `json:"totalActiveClients"`
}

// POST|GET /api/auths/pair
func (h *PairingHandler) StartPairing(w http.ResponseWriter, r *http.Request) {
	var body startPairingRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	orgID, err := optionalInt64Query(r, "org_id")
	if err != nil {
		writeError(w, err)
		return
	}
	if orgID == nil {
		orgID = body.OrgID
	}

	location := r.URL.Query().Get("location")
	if location == "" {
		location = body.Location
	}

	params := service.StartPairingParams{
		RequesterIP: httputil.ClientIP(r),
		Location:    location,
		Initialize:  r.URL.Query().Get("initialize") != "false",
		RequestedBy: middleware.GetUserID(r.Context()),
	}
	if orgID != nil {
		params.OrgID = *orgID
	}

	result, err := h.pairing.StartPairing(r.Context(), params)
	if err != nil {
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventPairingStart,
			UserID:  params.RequestedBy,
			Success: false,
			Details: map[string]interface{}{"error": err.Error()},
		})
		writeError(w, err)
		return
	}

	resp := pairingResponse{
		SessionID:   result.SessionID,
		QRImage:     result.QRImage,
		QRData:      result.QRData,
		Account:     result.Account,
		Reused:      result.Reused,
		LiveClients: result.LiveClients,
	}
	if result.Account != nil {
		resp.AccountID = &result.Account.ID
	}

	audit.LogFromRequest(r, audit.Event{
		Type:      audit.EventPairingStart,
		UserID:    params.RequestedBy,
		AccountID: resp.AccountID,
		SessionID: result.SessionID,
		Success:   result.Stored,
	})

	if !result.Stored {
		appErr, ok := apperrors.AsAppError(result.StoreError)
		if !ok {
			appErr = apperrors.PersistenceFailed(result.StoreError)
		}
		writeJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: resp,
		})
		return
	}

	writeSuccess(w, http.StatusOK, "QR code generated and stored in accounts", resp)
}

// GET /api/auths/pair/status
func (h *PairingHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	report := h.pairing.GetStatus()
	message := fmt.Sprintf("%d active client(s)", len(report.Clients))
	if report.Status == service.StatusNoClients {
		message = "No WhatsApp clients initialized"
	}
	writeSuccess(w, http.StatusOK, message, report)
}

// GET /api/auths/pair/sessions
func (h *PairingHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.pairing.ListSessions()
	writeSuccess(w, http.StatusOK, "", map[string]any{
		"totalClients":  len(sessions),
		"activeClients": sessions,
	})
}

// GET /api/auths/pair/sessions/{sessionId}
func (h *PairingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	summary, err := h.pairing.GetSession(chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", summary)
}

// GET|DELETE /api/auths/pair/session/{sessionId}
func (h *PairingHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")

	result, err := h.pairing.Disconnect(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	var message string
	switch {
	case id == "":
		message = "No session id provided. Specify a sessionId to disconnect."
	case result.AlreadyDisconnected:
		message = fmt.Sprintf("Session %s was already disconnected", id)
	default:
		message = fmt.Sprintf("Session %s disconnected successfully", id)
	}

	writeSuccess(w, http.StatusOK, message, result)
}
