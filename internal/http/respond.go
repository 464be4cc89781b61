package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"ai-script-editor-service/internal/schema"
	"ai-script-editor-service/internal/service/document"
	"ai-script-editor-service/internal/service/external"
	"ai-script-editor-service/internal/service/patch"
	"ai-script-editor-service/internal/service/render"
	"ai-script-editor-service/internal/service/session"
	"ai-script-editor-service/internal/store"
)

const maxBodyBytes = 1 << 20

// errorBody is the JSON error envelope.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var errUnavailable = errors.New("feature not configured")

type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func invalid(format string, args ...any) error {
	return badRequest{fmt.Errorf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func decode(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return invalid("request body required")
		}
		return invalid("decode body: %v", err)
	}
	return nil
}

// statusFor maps domain errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	var (
		se *external.ServiceError
		br badRequest
	)
	switch {
	case errors.As(err, &br), schema.IsValidationError(err):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, render.ErrNothingToRender):
		return http.StatusBadRequest, "nothing_to_render"
	case errors.Is(err, document.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, document.ErrNoCorrection):
		return http.StatusNotFound, "no_correction"
	case errors.Is(err, session.ErrStaleResponse):
		return http.StatusConflict, "stale_response"
	case errors.Is(err, patch.ErrInvalidPatch):
		return http.StatusUnprocessableEntity, "invalid_patch"
	case errors.Is(err, external.ErrMissingCredential):
		return http.StatusUnauthorized, "missing_credential"
	case errors.As(err, &se):
		if se.Retryable() {
			return http.StatusBadGateway, "retryable"
		}
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, errUnavailable), errors.Is(err, session.ErrNoAssistant),
		errors.Is(err, session.ErrNoRenderer), errors.Is(err, session.ErrNoStore):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeJSON(w, status, errorBody{Error: code, Message: err.Error()})
}
