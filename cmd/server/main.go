package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"chainlead/internal/app"
	"chainlead/internal/chain/handler"
	jwttoken "chainlead/internal/jwt_token"
	"chainlead/internal/platform/config"
	"chainlead/internal/platform/httpserver"
	"chainlead/internal/platform/logger"
	"chainlead/internal/platform/metrics"
	"chainlead/internal/platform/tracing"
	authmw "chainlead/pkg/platform/middleware/auth"
)

const shutdownTimeout = 15 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/chain.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		log.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	application, err := app.Build(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		log.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	var validator authmw.JWTValidator
	if cfg.Server.JWTSigningKey != "" {
		jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, jwttoken.Issuer, jwttoken.Audience)
		validator = jwttoken.NewJWTServiceAdapter(jwtService)
	}

	router := app.NewRouter(app.RouterDeps{
		Server:  cfg.Server,
		Chains:  handler.New(application.Service, log),
		Metrics: metrics.New(prometheus.DefaultRegisterer),
		Auth:    validator,
		Health:  application.Health,
		Logger:  log,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting chainlead", "addr", cfg.Server.Addr, "auth", validator != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return shutdownTracing(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		application.Close()
		os.Exit(1)
	}
}
