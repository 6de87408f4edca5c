package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/veridianhq/veridian-server/authn"
	"github.com/veridianhq/veridian-server/idp"
	"github.com/veridianhq/veridian-server/internal/config"
	"github.com/veridianhq/veridian-server/server"
	"github.com/veridianhq/veridian-server/store/postgres"
	"github.com/veridianhq/veridian-server/token"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	if err := config.Validate(c); err != nil {
		return errors.Wrap(err, "config.Validate")
	}
	logger := newLogger(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := postgres.Connect(ctx, c.GetDatabaseURL())
	if err != nil {
		return errors.Wrap(err, "postgres.Connect")
	}
	defer store.Close()

	signer, err := token.NewHMACSigner(c.GetSigningSecret(), c.GetSigningAlgorithm())
	if err != nil {
		return errors.Wrap(err, "token.NewHMACSigner")
	}
	fingerprinter := token.NewFingerprinter(c.GetFingerprintKey())

	manager, err := token.NewManager(store.Accounts(), store.Tokens(), signer, fingerprinter,
		token.WithSessionTTL(c.GetSessionTTL()),
		token.WithLogger(logger))
	if err != nil {
		return errors.Wrap(err, "token.NewManager")
	}

	guard, err := authn.NewGuard(signer, fingerprinter, store.Accounts(), store.Tokens(),
		authn.WithLogger(logger))
	if err != nil {
		return errors.Wrap(err, "authn.NewGuard")
	}

	adapter, err := newIdpAdapter(ctx, c, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    c.GetPort(),
		Handler: server.New(c, manager, guard, adapter, server.WithLogger(logger)),
	}
	go listenAndServe(httpServer, logger)
	waitForStopSignal()
	return shutdown(httpServer)
}

func newIdpAdapter(ctx context.Context, c config.Config, logger zerolog.Logger) (*idp.Adapter, error) {
	kind, err := idp.ParseKind(c.GetIdpType())
	if err != nil {
		return nil, errors.Wrap(err, "idp.ParseKind")
	}

	verifierOptions := []idp.VerifierOption{}
	if issuer := c.GetIssuer(); issuer != "" {
		verifierOptions = append(verifierOptions, idp.WithIssuer(issuer))
	}
	if audience := c.GetAudience(); audience != "" {
		verifierOptions = append(verifierOptions, idp.WithAudience(audience))
	}
	verifier, err := idp.NewVerifier(ctx, c.GetJWKSURL(), verifierOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "idp.NewVerifier")
	}

	adapter, err := idp.NewAdapter(kind, idp.Config{
		ClientID:         c.GetClientID(),
		ClientSecret:     c.GetClientSecret(),
		RedirectURI:      c.GetRedirectURI(),
		AuthorizationURL: c.GetAuthorizationURL(),
		TokenURL:         c.GetTokenURL(),
		JWKSURL:          c.GetJWKSURL(),
		Issuer:           c.GetIssuer(),
		Audience:         c.GetAudience(),
	}, verifier, idp.WithAdapterLogger(logger))
	if err != nil {
		return nil, errors.Wrap(err, "idp.NewAdapter")
	}
	return adapter, nil
}

func newLogger(c config.Config) zerolog.Logger {
	if c.GetEnv() == "DEV" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
}

func listenAndServe(httpServer *http.Server, logger zerolog.Logger) {
	logger.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
