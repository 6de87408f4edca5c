package server

import (
	"net/http"
	"time"
)

// Cookie names. The session cookie is HttpOnly and scoped to the API; the
// CSRF cookie is deliberately script-readable so the SPA can echo its value
// in the X-Token header on state-changing requests (double-submit cookie).
const (
	SessionCookieName = "access-token"
	CsrfCookieName    = "x-token"
	CsrfHeaderName    = "X-Token"
	stateCookieName   = "oauth-state"
)

// setSessionCookies installs the pair of cookies that represent a logged-in
// browser session: the raw signed token and its fingerprint.
func (s *Server) setSessionCookies(w http.ResponseWriter, rawToken, fingerprint string, expires time.Time) {
	secure := s.config.GetHTTPSEnabled()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    rawToken,
		Path:     "/api",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CsrfCookieName,
		Value:    fingerprint,
		Path:     "/",
		Expires:  expires,
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearSessionCookies expires both session cookies. Called on logout and on
// every authentication failure so a browser holding a dead token stops
// presenting it.
func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	secure := s.config.GetHTTPSEnabled()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/api",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CsrfCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// setStateCookie pins the OIDC state parameter to the browser for the
// duration of one login round trip.
func (s *Server) setStateCookie(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/api",
		MaxAge:   int((5 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   s.config.GetHTTPSEnabled(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/api",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.GetHTTPSEnabled(),
		SameSite: http.SameSiteLaxMode,
	})
}
