// Package app wires the record store, the search index and the services on
// top of them. The server and the operator commands share it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BorisDmv/blog-cms/internal/auth"
	"github.com/BorisDmv/blog-cms/internal/config"
	"github.com/BorisDmv/blog-cms/internal/db"
	"github.com/BorisDmv/blog-cms/internal/indexsync"
	"github.com/BorisDmv/blog-cms/internal/logging"
	"github.com/BorisDmv/blog-cms/internal/posts"
	"github.com/BorisDmv/blog-cms/internal/search"
)

const startupTimeout = 10 * time.Second

type App struct {
	Store *db.Store
	// Index is nil when search is not configured or was unreachable at
	// startup with health checks disabled.
	Index *search.Index
	Posts *posts.Service
	Auth  *auth.Service
}

// Open migrates the schema, connects to Postgres and, when configured, to
// Elasticsearch. A failing database is fatal; a failing search cluster is
// fatal only when cfg.Search.HealthCheck is set.
func Open(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*App, error) {
	log := logging.Component(logger, "app")

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return nil, err
	}
	log.Info("database schema is up to date")

	connectCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	store, err := db.NewStore(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	index, err := connectSearch(connectCtx, cfg.Search, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	var (
		indexer  indexsync.Indexer
		searcher posts.Searcher
	)
	if index != nil {
		indexer, searcher = index, index
	}
	bridge := indexsync.New(indexer, logging.Component(logger, "indexsync"), cfg.Search.IndexTimeout)

	return &App{
		Store: store,
		Index: index,
		Posts: posts.NewService(store, bridge, searcher, logging.Component(logger, "posts")),
		Auth:  auth.NewService(store, cfg.JWTSecret, cfg.JWTExpiresIn),
	}, nil
}

func (a *App) Close() {
	a.Store.Close()
}

func connectSearch(ctx context.Context, cfg config.SearchConfig, log *logrus.Entry) (*search.Index, error) {
	if !cfg.Enabled() {
		log.Warn("ELASTICSEARCH_URL is not set; search is disabled")
		return nil, nil
	}
	index, err := search.New(search.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Index:     cfg.Index,
	})
	if err != nil {
		return nil, err
	}

	err = index.Ping(ctx)
	if err == nil {
		var created bool
		if created, err = index.EnsureIndex(ctx); created {
			log.WithField("index", index.Name()).Info("search index created")
		}
	}
	if err != nil {
		if cfg.HealthCheck {
			return nil, fmt.Errorf("search startup check: %w", err)
		}
		log.WithError(err).Warn("search cluster not ready; continuing without a verified index")
	}
	return index, nil
}
