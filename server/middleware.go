package server

import (
	"net/http"
	"strings"

	"github.com/veridianhq/veridian-server/accounts"
	"github.com/veridianhq/veridian-server/authn"
)

// requireScopes wraps a route with the full verification sequence. The raw
// token comes from the session cookie or, for api-token callers, a bearer
// Authorization header; the cookie wins when both are present. On success
// the account is attached to the request context.
func (s *Server) requireScopes(requiredScopes ...accounts.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, bearer := rawTokenFromRequest(r)
			account, err := s.guard.Authenticate(r.Context(), authn.Request{
				RawToken:  rawToken,
				Bearer:    bearer,
				Method:    r.Method,
				CSRFToken: r.Header.Get(CsrfHeaderName),
			}, requiredScopes...)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(authn.ContextWithAccount(r.Context(), account)))
		})
	}
}

func rawTokenFromRequest(r *http.Request) (rawToken string, bearer bool) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, false
	}
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1]), true
		}
	}
	return "", false
}
