package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/seanblong/kbsearch/internal/config"
	"github.com/seanblong/kbsearch/internal/ingest"
	"github.com/seanblong/kbsearch/internal/store"
)

func main() {
	fs := pflag.NewFlagSet("kbsearch-indexer", pflag.ExitOnError)
	category := fs.String("category", "", "Category for newly indexed documents (default general)")

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	zlog.Logger = zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	if cfg.Store == store.BackendMemory {
		zlog.Fatal().Msg("the memory store does not persist; use sqlite or postgres for indexing")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store, cfg.DSN())
	if err != nil {
		zlog.Fatal().Err(err).Str("store", cfg.Store).Msg("failed to open store")
	}
	defer st.Close()
	if sq, ok := st.(*store.SQLite); ok {
		zlog.Info().Str("path", sq.Path()).Msg("using sqlite database")
	}

	ix := ingest.NewIndexer(ingest.NewIngester(st, cfg.ChunkSize), cfg.DocsRoot, cfg.Workers)
	ix.Category = *category

	sum, err := ix.Run(ctx)
	if err != nil {
		zlog.Error().Err(err).Msg("indexing failed")
		st.Close()
		os.Exit(1)
	}
	if sum.Failed > 0 {
		zlog.Warn().Int64("failed", sum.Failed).Msg("some files could not be indexed")
	}
}
