// Command intelliemail runs the hybrid search and embedding service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/intelliemail/intelliemail/internal/api"
	"github.com/intelliemail/intelliemail/internal/config"
	"github.com/intelliemail/intelliemail/internal/db"
	"github.com/intelliemail/intelliemail/internal/db/migrations"
	"github.com/intelliemail/intelliemail/internal/dbpool"
	"github.com/intelliemail/intelliemail/internal/models"
	"github.com/intelliemail/intelliemail/internal/service"
	"github.com/intelliemail/intelliemail/internal/store"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited with error")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return err
	}

	hnsw := db.HNSWParams{M: cfg.HNSWM, EfConstruction: cfg.HNSWEfConstruction}
	if err := db.EnsureVectorDimensions(ctx, pool, log, cfg.EmbeddingDimensions, hnsw); err != nil {
		return err
	}

	base := store.Base{Pool: pool, Log: log}
	vectors := store.NewVectorStore(base, cfg.EmbeddingDimensions)
	lexical := store.NewLexicalStore(base)

	provider := service.NewEmbeddingProviderFromConfig(cfg, log)
	engine := service.NewSearchEngine(lexical, vectors, provider, log, cfg.SearchTimeout)
	backfiller := service.NewBackfiller(vectors, vectors, provider, log, cfg.EmbedItemTimeout, cfg.EmbeddingDimensions)
	reindexer := service.NewReindexer(vectors, log)

	router := api.NewRouter(&api.RouterDeps{
		Log:                 log,
		Pool:                pool,
		Engine:              engine,
		Backfill:            backfiller,
		Reindex:             reindexer,
		Embedder:            provider,
		CORSOrigins:         cfg.CORSOrigins,
		Version:             version,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		BackfillBatchSize:   cfg.BackfillBatchSize,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go runBackfillLoop(ctx, backfiller, cfg, log)

	errCh := make(chan error, 1)

	go func() {
		log.WithFields(logrus.Fields{
			"addr":       cfg.Addr(),
			"version":    version,
			"dimensions": cfg.EmbeddingDimensions,
			"provider":   cfg.EmbeddingProvider,
		}).Info("server starting")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// runBackfillLoop periodically triggers one backfill batch per entity type.
// The backfiller's own guard makes overlapping invocations a no-op.
func runBackfillLoop(ctx context.Context, backfiller *service.Backfiller, cfg *config.Config, log *logrus.Logger) {
	ticker := time.NewTicker(cfg.BackfillInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, entityType := range models.AllEntityTypes {
				if _, err := backfiller.RunBatch(ctx, entityType, 0, cfg.BackfillBatchSize); err != nil {
					log.WithError(err).WithField("entity_type", entityType).
						Warn("scheduled backfill batch failed")
				}
			}
		}
	}
}
