// Package backend opens the league store selected by the configuration.
package backend

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/strategium/internal/changefeed"
	"github.com/mauv0809/strategium/internal/config"
	"github.com/mauv0809/strategium/internal/database"
	"github.com/mauv0809/strategium/internal/docstore"
	"github.com/mauv0809/strategium/internal/kv"
	"github.com/mauv0809/strategium/internal/pubsub"
	"github.com/mauv0809/strategium/internal/session"
	"github.com/mauv0809/strategium/internal/store"
)

// Backend holds the opened store. Exactly one of Snapshot and Live is set.
type Backend struct {
	// DB is the local or Turso database. It is always opened and also
	// holds the lifetime counters.
	DB       *sql.DB
	Snapshot *store.Snapshot
	Live     *store.Live
	// Remote is set when change events travel over Pub/Sub.
	Remote *changefeed.Remote

	closers []func()
}

// Open connects the backend described by cfg.
func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	b := &Backend{DB: db}
	b.onClose(dbTeardown)

	switch cfg.Backend {
	case config.BackendLive:
		err = b.openLive(ctx, cfg)
	default:
		err = b.openSnapshot(cfg)
	}
	if err != nil {
		b.Close()
		return nil, err
	}
	log.Info("League store ready", "backend", cfg.Backend)
	return b, nil
}

func (b *Backend) openSnapshot(cfg config.Config) error {
	var kvStore kv.Store
	switch cfg.KV.Driver {
	case "bolt":
		bolt, err := kv.NewBolt(cfg.KV.BoltPath)
		if err != nil {
			return fmt.Errorf("failed to open bolt store: %w", err)
		}
		kvStore = bolt
	default:
		kvStore = kv.NewSQLite(b.DB)
	}
	b.onClose(func() {
		if err := kvStore.Close(); err != nil {
			log.Error("Failed to close key-value store", "error", err)
		}
	})
	b.Snapshot = store.NewSnapshot(kvStore)
	return nil
}

func (b *Backend) openLive(ctx context.Context, cfg config.Config) error {
	docs := docstore.NewSQL(b.DB, database.DialectSQLite)
	if cfg.Docstore.Driver == "postgres" {
		pg, pgTeardown, err := database.InitPostgres(cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		b.onClose(pgTeardown)
		docs = docstore.NewSQL(pg, database.DialectPostgres)
	}

	var feed changefeed.Feed
	if cfg.PubSub.Topic == "" {
		feed = changefeed.NewLocal()
	} else {
		client, err := pubsub.New(ctx, cfg.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to create pubsub client: %w", err)
		}
		b.onClose(func() {
			if err := client.Close(); err != nil {
				log.Error("Failed to close pubsub client", "error", err)
			}
		})
		b.Remote = changefeed.NewRemote(client, cfg.PubSub.Topic, cfg.PubSub.Subscription)
		feed = b.Remote
	}
	// the feed stops before the pubsub client closes
	b.onClose(func() { feed.Close() })
	b.Live = store.NewLive(docs, feed)
	return nil
}

// NewSession returns a coordinator on the opened store.
func (b *Backend) NewSession(opts ...session.Option) *session.Coordinator {
	if b.Live != nil {
		return session.NewLive(b.Live, opts...)
	}
	return session.NewSnapshot(b.Snapshot, opts...)
}

func (b *Backend) onClose(fn func()) {
	b.closers = append(b.closers, fn)
}

// Close releases everything in reverse opening order.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
