package server

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/veridianhq/veridian-server/authn"
	"github.com/veridianhq/veridian-server/internal/autherr"
	"github.com/veridianhq/veridian-server/token"
)

// handleRedirectLogin starts a login: mint a state value, pin it to the
// browser and send it to the provider's authorization page.
func (s *Server) handleRedirectLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	s.setStateCookie(w, state)
	http.Redirect(w, r, s.idp.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// handleCallback completes a login. The provider redirects the browser here
// with a code and the state we minted; a state mismatch aborts before any
// provider traffic.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if errCode := query.Get("error"); errCode != "" {
		s.log.Warn().
			Str("error", errCode).
			Str("description", query.Get("error_description")).
			Msg("identity provider returned an error on callback")
		s.loginFailure(w, r, autherr.ErrAuthentication)
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != query.Get("state") {
		s.loginFailure(w, r, autherr.New(autherr.KindAuthentication, "login state mismatch"))
		return
	}
	s.clearStateCookie(w)

	code := query.Get("code")
	if code == "" {
		s.loginFailure(w, r, autherr.New(autherr.KindAuthentication, "authorization code is missing"))
		return
	}

	claim, err := s.idp.Login(r.Context(), code)
	if err != nil {
		s.loginFailure(w, r, err)
		return
	}

	rawToken, record, err := s.manager.CreateTokenForAccount(r.Context(), claim)
	if err != nil {
		s.loginFailure(w, r, err)
		return
	}

	s.setSessionCookies(w, rawToken, record.Fingerprint, record.Expiration)
	http.Redirect(w, r, s.config.GetBaseURL(), http.StatusSeeOther)
}

// loginFailure sends the browser back to the SPA with a generic message.
// The specific failure is logged server-side; the user never sees provider
// responses or taxonomy details beyond the sentinel message.
func (s *Server) loginFailure(w http.ResponseWriter, r *http.Request, err error) {
	message := "login failed"
	if authErr, ok := autherr.AsError(err); ok {
		s.logAuthFailure(r, authErr)
		if authErr.Kind == autherr.KindIdpConnection {
			message = authErr.Message
		}
	} else {
		s.log.Error().Err(err).Msg("login failed")
	}
	s.clearSessionCookies(w)
	http.Redirect(w, r, s.config.GetBaseURL()+"/?msg="+url.QueryEscape(message), http.StatusSeeOther)
}

// handleLogout revokes the account's user session and clears the cookies.
// An anonymous or expired caller still gets its cookies cleared; logout is
// idempotent from the browser's point of view.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	defer s.clearSessionCookies(w)

	rawToken, bearer := rawTokenFromRequest(r)
	account, err := s.guard.Authenticate(r.Context(), authn.Request{
		RawToken: rawToken,
		Bearer:   bearer,
		Method:   r.Method,
	})
	if err != nil {
		if autherr.IsAuthFailure(err) {
			writeJSON(w, http.StatusOK, map[string]string{"detail": "logged out"})
			return
		}
		s.writeError(w, r, err)
		return
	}

	if err := s.manager.RevokeAllForAccount(r.Context(), account.ID, token.TypeUser); err != nil {
		s.writeError(w, r, errors.Wrap(err, "[handleLogout] RevokeAllForAccount"))
		return
	}
	s.log.Info().Str("email", account.Email).Msg("account logged out")
	writeJSON(w, http.StatusOK, map[string]string{"detail": "logged out"})
}
