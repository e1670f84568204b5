package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArowuTest/bmd-member-registry/api/routes"
	"github.com/ArowuTest/bmd-member-registry/internal/config"
	"github.com/ArowuTest/bmd-member-registry/internal/handlers"
	"github.com/ArowuTest/bmd-member-registry/internal/services"
	"github.com/ArowuTest/bmd-member-registry/internal/store"
	"github.com/ArowuTest/bmd-member-registry/internal/utils"
	"github.com/ArowuTest/bmd-member-registry/pkg/jwt"
	"github.com/ArowuTest/bmd-member-registry/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Options{Format: "console"})
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, IsDev: cfg.IsDev()})

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid display timezone")
	}
	display := utils.DisplayOptions{YearOffset: cfg.Display.YearOffset, Location: loc}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open member store")
	}

	sessionStore, closeSessions, err := store.OpenSessions(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Session.Driver).Msg("failed to open session store")
	}

	sessionTTL := time.Duration(cfg.JWT.ExpiresIn) * time.Second
	reconciler := services.NewReconciler(repo, time.Now, loc, cfg.Store.WriteTimeout, log)
	directory := services.NewDirectory(repo, reconciler, log)
	sessionService := services.NewSessionService(directory, repo, sessionStore, display, time.Now, sessionTTL, log)
	tokens := jwt.NewSessionTokenService(cfg.JWT.Secret, sessionTTL)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := directory.Run(ctx); err != nil {
			log.Error().Err(err).Msg("member directory stopped, serving stale data")
		}
	}()

	go sessionService.RunSweeper(ctx, cfg.Session.SweepInterval)

	handlerDeps := routes.HandlerDependencies{
		HealthHandler:  handlers.NewHealthHandler(sessionService, cfg.Store.Driver),
		MemberHandler:  handlers.NewMemberHandler(sessionService),
		SessionHandler: handlers.NewSessionHandler(sessionService, tokens, log),
		Tokens:         tokens,
	}
	router := routes.SetupRouter(cfg, handlerDeps, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with ctx so open event streams return on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("store", cfg.Store.Driver).Str("sessions", cfg.Session.Driver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("listen failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	<-runDone
	reconciler.Wait()
	closeSessions()
	closeStore(shutdownCtx)

	log.Info().Msg("server exiting")
}
