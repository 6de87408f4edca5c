// Package server is the HTTP boundary. It extracts authentication material
// from requests, hands it to the guard, and maps the failure taxonomy onto
// status codes and cookie clearing. Handlers stay thin; all policy lives in
// the token manager and the guard.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian-server/accounts"
	"github.com/veridianhq/veridian-server/authn"
	"github.com/veridianhq/veridian-server/idp"
	"github.com/veridianhq/veridian-server/internal/config"
	"github.com/veridianhq/veridian-server/token"
)

type Server struct {
	router  chi.Router
	config  config.Config
	manager *token.Manager
	guard   *authn.Guard
	idp     *idp.Adapter
	log     zerolog.Logger
}

type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

func New(cfg config.Config, manager *token.Manager, guard *authn.Guard, adapter *idp.Adapter, options ...Option) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		manager: manager,
		guard:   guard,
		idp:     adapter,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/redirect-login", s.handleRedirectLogin)
		r.Get("/callback", s.handleCallback)
		r.Get("/logout", s.handleLogout)
		r.Get("/healthz", s.handleHealth)

		r.Route("/v1/accounts/me", func(r chi.Router) {
			r.With(s.requireScopes(accounts.PermissionAccountMeRead)).
				Get("/", s.handleMe)

			r.Route("/access-tokens", func(r chi.Router) {
				r.With(s.requireScopes(accounts.PermissionAccessTokenRead)).
					Get("/", s.handleListAPITokens)
				r.With(s.requireScopes(accounts.PermissionAccessTokenCreate)).
					Post("/", s.handleCreateAPIToken)
				r.With(s.requireScopes(accounts.PermissionAccessTokenDelete)).
					Delete("/{tokenID}", s.handleRevokeAPIToken)
			})
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger records one line per request at debug level; failures are
// logged where they are mapped to responses, with the taxonomy deciding the
// level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}
