package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-decks/internal/config"
	"github.com/phrazzld/scry-decks/internal/domain"
	"github.com/phrazzld/scry-decks/internal/events"
	"github.com/phrazzld/scry-decks/internal/platform/logger"
	"github.com/phrazzld/scry-decks/internal/platform/memdb"
	"github.com/phrazzld/scry-decks/internal/platform/postgres"
	"github.com/phrazzld/scry-decks/internal/platform/sqlite"
	"github.com/phrazzld/scry-decks/internal/platform/sqlstore"
	"github.com/phrazzld/scry-decks/internal/redact"
	"github.com/phrazzld/scry-decks/internal/scheduler"
	"github.com/phrazzld/scry-decks/internal/service/review"
	"github.com/phrazzld/scry-decks/internal/store"
)

// application holds the configured dependencies of one command run.
type application struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *sql.DB
	store    *store.Store
	emitter  *events.InMemoryEventEmitter
	settings scheduler.Settings
}

// newApplication loads configuration, sets up logging and opens the
// configured backend. SQLite files are migrated on open.
func newApplication(ctx context.Context, opts *rootOptions) (*application, error) {
	cfg, err := config.LoadFrom(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.SetupWithWriter(cfg.Log, opts.logOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	settings, err := scheduler.SettingsFromConfig(cfg.Scheduler)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler configuration: %w", err)
	}

	app := &application{
		cfg:      cfg,
		logger:   log,
		emitter:  events.NewInMemoryEventEmitter(log),
		settings: settings,
	}

	var backend store.Backend
	switch cfg.Database.Driver {
	case "memory":
		backend = memdb.New(log)
	case "sqlite":
		app.db, err = sqlite.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if err := sqlite.Migrate(ctx, app.db, sqlstore.MigrateUp, log); err != nil {
			app.Close()
			return nil, err
		}
		backend = sqlite.NewBackend(app.db, log)
	case "postgres":
		app.db, err = postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		backend = postgres.NewBackend(app.db, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	registry, err := domain.NewRegistry()
	if err != nil {
		app.Close()
		return nil, err
	}
	if err := scheduler.Register(registry); err != nil {
		app.Close()
		return nil, err
	}
	app.store = store.New(backend, registry, log)

	log.Debug("application ready",
		slog.String("driver", cfg.Database.Driver),
		slog.String("database_url", redact.URL(cfg.Database.URL)),
		slog.String("log_level", cfg.Log.Level))
	return app, nil
}

// Close releases the database connection, if any.
func (a *application) Close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", slog.String("error", err.Error()))
	}
}

// load reads every record into the store.
func (a *application) load(ctx context.Context) (store.LoadResult, error) {
	res, err := a.store.LoadAll(ctx)
	if err != nil {
		return store.LoadResult{}, fmt.Errorf("failed to load store: %w", err)
	}
	return *res, nil
}

// persist commits pending changes, publishing progress through the emitter.
func (a *application) persist(ctx context.Context) error {
	return a.store.PersistWithProgress(ctx, events.NewProgressReporter(a.emitter, a.logger))
}

func (a *application) reviewService() review.Service {
	return review.NewService(a.store, a.settings, a.logger, review.WithEmitter(a.emitter))
}

// migrate runs a migration command on the configured SQL backend.
func (a *application) migrate(ctx context.Context, command string) error {
	switch a.cfg.Database.Driver {
	case "sqlite":
		return sqlite.Migrate(ctx, a.db, command, a.logger)
	case "postgres":
		return postgres.Migrate(ctx, a.db, command, a.logger)
	default:
		return errors.New("the memory driver has no schema to migrate")
	}
}
