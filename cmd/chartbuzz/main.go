package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bakkerme/chartbuzz/internal/api"
	"github.com/bakkerme/chartbuzz/internal/collector"
	"github.com/bakkerme/chartbuzz/internal/config"
	"github.com/bakkerme/chartbuzz/internal/filter"
	"github.com/bakkerme/chartbuzz/internal/observability/otelx"
	"github.com/bakkerme/chartbuzz/internal/twitter/scraperimpl"
)

func main() {
	env := config.LoadEnv()
	configPath := flag.String("config", env.DocumentPath, "path to chartbuzz document")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	doc, err := config.LoadDocument(*configPath)
	if err != nil {
		log.Fatalf("failed to load document: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otelx.Init(ctx, logger, env.OTel)
	if err != nil {
		log.Fatalf("failed to init otel: %v", err)
	}
	if shutdownTracing != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				logger.Warn("otel shutdown failed", slog.String("error", err.Error()))
			}
		}()
	}

	source := scraperimpl.New(logger, scraperimpl.Credentials{
		Username: env.Twitter.Username,
		Password: env.Twitter.Password,
	}, env.Twitter.CookiesPath)

	// Warm the session at startup so the first search doesn't pay for the
	// login. Failure is not fatal; searches retry lazily and degrade to
	// empty results until the session comes up.
	loginCtx, cancelLogin := context.WithTimeout(ctx, env.Twitter.LoginTimeout)
	if err := source.EnsureSession(loginCtx); err != nil {
		logger.Warn("startup twitter login failed", slog.String("error", err.Error()))
	}
	cancelLogin()

	rules, err := filter.NewChain(doc.Filters, logger)
	if err != nil {
		log.Fatalf("failed to compile filter rules: %v", err)
	}

	search := collector.New(source, rules, logger, collector.Config{
		TargetCount:         doc.Collector.TargetCount,
		PageSize:            doc.Collector.PageSize,
		MaxAttempts:         doc.Collector.MaxAttempts,
		PageDelay:           doc.Collector.PageDelay.Std(),
		PageTimeout:         doc.Collector.PageTimeout.Std(),
		SimilarityThreshold: doc.Collector.SimilarityThreshold,
	})

	server := api.NewServer(logger, search)

	host := doc.Server.Host
	if env.Server.Host != "" {
		host = env.Server.Host
	}
	port := doc.Server.Port
	if env.Server.Port != 0 {
		port = env.Server.Port
	}
	addr := fmt.Sprintf("%s:%d", host, port)

	go func() {
		logger.Info("starting server", slog.String("addr", addr))
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}
}
