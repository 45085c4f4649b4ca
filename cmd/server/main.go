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

	"mortality/internal/api"
	"mortality/internal/cache"
	"mortality/internal/config"
	"mortality/internal/engine"
	"mortality/internal/logger"
	"mortality/internal/metrics"
)

func main() {
	config.LoadEnvFile()
	cfg := config.Load()

	log := logger.InitGlobal(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, WithCaller: cfg.LogCaller})
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}
	m := metrics.New(prometheus.DefaultRegisterer)

	// 1. Initialize Echo (Starts Instantly)
	// The API is "live" but data routes return 503 until the ETL finishes.
	h := api.NewHandler(log, m, cfg.DonutTopN)
	e := api.NewServer(h, log, prometheus.DefaultGatherer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	// 2. Launch ETL in Background
	g.Go(func() error {
		return runETL(gctx, cfg, log, m, h)
	})

	// 3. Start Server
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Server ready (data loading in background...)")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 4. Graceful shutdown on signal or failure
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("Shutting down server...")
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

func runETL(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics, h *api.Handler) error {
	etl := log.WithComponent("etl")
	etl.Info().Str("path", cfg.DataPath).Msg("BACKGROUND: Starting ETL Pipeline...")
	t0 := time.Now()

	store, err := engine.LoadColumnar(cfg.DataPath)
	m.RecordLoad(storeLen(store), time.Since(t0), err)
	if err != nil {
		return err
	}

	w, err := cache.New(cfg.CacheFormat, cfg.CachePath)
	if err != nil {
		return err
	}
	if w != nil {
		err := w.Write(ctx, store)
		m.RecordCacheWrite(w.Format(), err)
		if err != nil {
			// The API can still serve from memory.
			etl.Warn().Err(err).Str("format", w.Format()).Msg("Cleaned-copy write failed")
		} else {
			etl.Info().Str("format", w.Format()).Str("path", cfg.CachePath).Msg("Cleaned copy written")
		}
	}

	// Update the live API with the fresh data
	h.SetData(store)
	etl.Info().Dur("elapsed", time.Since(t0)).Msg("BACKGROUND: ETL Complete. API is fully ready.")
	return nil
}

func storeLen(cs *engine.ColumnStore) int {
	if cs == nil {
		return 0
	}
	return cs.Len()
}
