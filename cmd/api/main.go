package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/seanblong/kbsearch/internal/api"
	"github.com/seanblong/kbsearch/internal/auth"
	"github.com/seanblong/kbsearch/internal/bm25"
	"github.com/seanblong/kbsearch/internal/config"
	"github.com/seanblong/kbsearch/internal/ingest"
	"github.com/seanblong/kbsearch/internal/search"
	"github.com/seanblong/kbsearch/internal/store"
)

func main() {
	// Create flagset for configuration
	fs := pflag.NewFlagSet("kbsearch-api", pflag.ExitOnError)

	// Load configuration
	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	// Set up logging
	logger, err := setupLogging(cfg.LogLevel, os.Stdout)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger.Info().Str("store", cfg.Store).Str("log_level", cfg.LogLevel).Bool("auth_enabled", cfg.Auth.Enabled).Msg("starting kbsearch api")

	authn, err := auth.New(cfg.Auth.JwtSecret, cfg.Auth.Enabled, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid auth configuration")
	}
	if !authn.Enabled() {
		logger.Warn().Msg("authentication is DISABLED - document changes are open to every client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store, cfg.DSN())
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.Store).Msg("failed to open store")
	}
	defer st.Close()
	if sq, ok := st.(*store.SQLite); ok {
		logger.Info().Str("path", sq.Path()).Msg("using sqlite database")
	}

	var rankOpts []bm25.Option
	if cfg.Workers > 0 {
		rankOpts = append(rankOpts, bm25.WithParallelism(cfg.Workers))
	}

	srv := &api.Server{
		Store:          st,
		Ingester:       ingest.NewIngester(st, cfg.ChunkSize),
		Search:         search.NewService(st, bm25.New(rankOpts...), cfg.SearchLimit, cfg.MaxSearchLimit),
		Auth:           authn,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	}

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{
		Addr:              address,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("api server stopped")
}

// setupLogging builds the process logger and installs it as the global and
// default context logger, so request handlers and the ingest pipeline share
// one level.
func setupLogging(levelName string, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return zerolog.Logger{}, err
	}
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	zlog.Logger = logger
	zerolog.DefaultContextLogger = &zlog.Logger
	return logger, nil
}
