package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian-server/internal/autherr"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a failure onto a response. Any failure the guard can
// emit clears the session cookies so a browser holding a dead or rejected
// token stops presenting it; the taxonomy's skip-logging marker keeps the
// routine ones (missing, expired, malformed, revoked, bad CSRF) at debug
// level while privilege violations and unexpected errors stay loud.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	authErr, ok := autherr.AsError(err)
	if !ok {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal server error"})
		return
	}

	s.logAuthFailure(r, authErr)
	if clearsSession(authErr.Kind) {
		s.clearSessionCookies(w)
	}
	writeJSON(w, statusForKind(authErr.Kind), errorResponse{Detail: authErr.Message})
}

// clearsSession reports whether a failure kind ends the browser session.
// Every kind the guard emits does, including the 403s (bad CSRF, missing
// scope): once the guard rejects a session the cookies are dead weight.
// Handler-level validation failures from an already-authenticated request
// (invalid data, conflicts) and upstream IdP outages keep the session.
func clearsSession(kind autherr.Kind) bool {
	switch kind {
	case autherr.KindIdpConnection, autherr.KindInvalidData, autherr.KindConflict:
		return false
	}
	return true
}

func statusForKind(kind autherr.Kind) int {
	switch kind {
	case autherr.KindAuthorization:
		return http.StatusForbidden
	case autherr.KindInvalidCsrfToken:
		return http.StatusForbidden
	case autherr.KindIdpConnection:
		return http.StatusServiceUnavailable
	case autherr.KindInvalidData:
		return http.StatusUnprocessableEntity
	case autherr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusUnauthorized
	}
}

func (s *Server) logAuthFailure(r *http.Request, authErr *autherr.Error) {
	level := zerolog.WarnLevel
	if autherr.SkipLogging(authErr) {
		level = zerolog.DebugLevel
	}
	s.log.WithLevel(level).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("detail", authErr.Message).
		Msg("authentication failure")
}
