package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/veridianhq/veridian-server/accounts"
	"github.com/veridianhq/veridian-server/authn"
	"github.com/veridianhq/veridian-server/internal/autherr"
	"github.com/veridianhq/veridian-server/token"
)

// handleMe returns the authenticated account's own record.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	account, ok := authn.AccountFromContext(r.Context())
	if !ok {
		s.writeError(w, r, autherr.ErrAuthentication)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type createAPITokenRequest struct {
	Name       string    `json:"name"`
	Scopes     []string  `json:"scopes"`
	Expiration time.Time `json:"expiration"`
}

type createAPITokenResponse struct {
	Token  string             `json:"token"`
	Record *token.AccessToken `json:"record"`
}

// handleCreateAPIToken mints a long-lived api token for the caller. The raw
// token appears in this response only; afterwards the server knows just its
// fingerprint.
func (s *Server) handleCreateAPIToken(w http.ResponseWriter, r *http.Request) {
	account, ok := authn.AccountFromContext(r.Context())
	if !ok {
		s.writeError(w, r, autherr.ErrAuthentication)
		return
	}

	var req createAPITokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, autherr.New(autherr.KindInvalidData, "invalid request body"))
		return
	}

	scopes := accounts.ParsePermissions(req.Scopes)
	if len(scopes) != len(req.Scopes) {
		s.writeError(w, r, autherr.New(autherr.KindInvalidData, "request contains unknown scopes"))
		return
	}

	record, rawToken, err := s.manager.CreateAPIToken(r.Context(), account, req.Name, scopes, req.Expiration)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createAPITokenResponse{Token: rawToken, Record: record})
}

// handleListAPITokens lists the caller's api token records. User session
// records are never exposed here; their fingerprints double as CSRF
// secrets.
func (s *Server) handleListAPITokens(w http.ResponseWriter, r *http.Request) {
	account, ok := authn.AccountFromContext(r.Context())
	if !ok {
		s.writeError(w, r, autherr.ErrAuthentication)
		return
	}

	tokens, err := s.manager.ListAPITokens(r.Context(), account.ID)
	if err != nil {
		s.writeError(w, r, errors.Wrap(err, "[handleListAPITokens] ListAPITokens"))
		return
	}
	if tokens == nil {
		tokens = []*token.AccessToken{}
	}
	writeJSON(w, http.StatusOK, tokens)
}

// handleRevokeAPIToken revokes one of the caller's own api tokens. Records
// owned by other accounts are indistinguishable from absent ones.
func (s *Server) handleRevokeAPIToken(w http.ResponseWriter, r *http.Request) {
	account, ok := authn.AccountFromContext(r.Context())
	if !ok {
		s.writeError(w, r, autherr.ErrAuthentication)
		return
	}

	tokenID := chi.URLParam(r, "tokenID")
	if err := s.manager.RevokeToken(r.Context(), account, tokenID); err != nil {
		if errors.Is(err, token.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Detail: "access token not found"})
			return
		}
		s.writeError(w, r, errors.Wrap(err, "[handleRevokeAPIToken] RevokeToken"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "access token revoked"})
}
