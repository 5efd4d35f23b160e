package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/paperscape-layout/internal/api"
	"github.com/onnwee/paperscape-layout/internal/cache"
	"github.com/onnwee/paperscape-layout/internal/config"
	"github.com/onnwee/paperscape-layout/internal/errorreporting"
	"github.com/onnwee/paperscape-layout/internal/logger"
	"github.com/onnwee/paperscape-layout/internal/middleware"
	"github.com/onnwee/paperscape-layout/internal/server"
	"github.com/onnwee/paperscape-layout/internal/store"
	"github.com/onnwee/paperscape-layout/internal/tracing"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	logger.Info("starting layout engine", "version", cfg.SentryRelease, "log_level", cfg.LogLevel)

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		logger.Warn("sentry init failed, continuing without error reporting", "error", err)
	} else if errorreporting.IsSentryEnabled() {
		defer errorreporting.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init("paperscape-layout")
	if err != nil {
		logger.Warn("tracing init failed, continuing without tracing", "error", err)
	} else if cfg.OTELEnabled {
		defer shutdownTracing(ctx)
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open paper store: %v", err)
	}
	defer db.Close()

	keywords, err := db.LoadKeywords(ctx)
	if err != nil {
		log.Fatalf("failed to load keywords: %v", err)
	}
	papers, err := db.LoadPapers(ctx, keywords)
	if err != nil {
		log.Fatalf("failed to load papers: %v", err)
	}
	logger.Info("loaded paper catalog", "papers", len(papers), "keywords", len(keywords))

	engine := server.NewEngine(rand.New(rand.NewSource(time.Now().UnixNano())))
	if err := engine.SetPapers(ctx, papers, keywords); err != nil {
		log.Fatalf("failed to seed engine: %v", err)
	}

	go engine.Run(ctx, 50*time.Millisecond)

	c, err := cache.NewLRU(64, 10000, cfg.CacheTTL)
	if err != nil {
		log.Fatalf("failed to initialize cache: %v", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	defer limiter.Stop()

	router := api.NewRouter(engine, c, limiter)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
