package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/SanketOodles/wa-automation-backend/internal/errors"
	"github.com/SanketOodles/wa-automation-backend/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	httputil.WriteSuccess(w, status, message, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// decodeJSON reads the request body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.ValidationError("Invalid request body")
	}
	return nil
}

// idParam parses a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput(name, "must be a positive integer")
	}
	return id, nil
}

// optionalInt64Query parses an integer query parameter; missing yields nil.
func optionalInt64Query(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperrors.InvalidInput(name, "must be an integer")
	}
	return &v, nil
}

// Guards are the middleware chains handlers attach to protected routes.
type Guards struct {
	Authenticated []func(http.Handler) http.Handler
	// Admin runs after Authenticated.
	Admin []func(http.Handler) http.Handler
}

func (g Guards) authenticated() []func(http.Handler) http.Handler {
	return g.Authenticated
}

func (g Guards) admin() []func(http.Handler) http.Handler {
	chain := make([]func(http.Handler) http.Handler, 0, len(g.Authenticated)+len(g.Admin))
	chain = append(chain, g.Authenticated...)
	return append(chain, g.Admin...)
}
