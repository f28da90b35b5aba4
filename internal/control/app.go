package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/notekeep/recovery/internal/core/config"
	"github.com/notekeep/recovery/internal/core/domain"
	"github.com/notekeep/recovery/internal/core/worker"
	"github.com/notekeep/recovery/internal/engine"
	"github.com/notekeep/recovery/internal/health"
	"github.com/notekeep/recovery/internal/infra/storage"
	"github.com/notekeep/recovery/internal/infra/storage/memory"
	"github.com/notekeep/recovery/internal/infra/storage/postgres"
	"github.com/notekeep/recovery/internal/infra/telemetry"
)

// Options are the application hooks the host process provides. All fields
// are optional.
type Options struct {
	// Presenter surfaces choices and intervention prompts to the user.
	Presenter engine.Presenter
	// Components maps component names to restart functions.
	Components map[string]RestartFunc
	// LocalStoreFallback promotes the local store to primary when the
	// sync service is unavailable.
	LocalStoreFallback func(ctx context.Context) error
	// MigrationsDir overrides the default migrations directory.
	MigrationsDir string
}

// App wires the engine, storage, telemetry, and health server together
// and manages their lifecycle.
type App struct {
	cfg config.AppConfig
	log *slog.Logger

	engine   *engine.Engine
	mode     *Switch
	registry *Registry
	archive  storage.EventArchive
	db       *postgres.DB
	redis    *telemetry.RedisSink
	pruner   *worker.Pruner
	health   *health.Server

	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// New builds the application from configuration. Postgres and Redis are
// wired only when their URLs are configured; without them the archive is
// in-memory and telemetry is log-only.
func New(ctx context.Context, cfg config.AppConfig, opts Options, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	app := &App{
		cfg:      cfg,
		log:      log,
		mode:     NewSwitch(log),
		registry: NewRegistry(log),
	}
	for name, fn := range opts.Components {
		app.registry.Register(name, fn)
	}

	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		dir := opts.MigrationsDir
		if dir == "" {
			dir = "migrations"
		}
		if err := goose.SetDialect("postgres"); err != nil {
			db.Close()
			return nil, err
		}
		if err := goose.Up(db.DB.DB, dir); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		app.db = db
		app.archive = postgres.NewEventRepo(db)
		log.Info("event archive backed by postgres")
	} else {
		app.archive = memory.NewArchive()
		log.Info("event archive in memory")
	}

	sinks := []telemetry.Sink{telemetry.NewLogSink(log)}
	if cfg.Redis.URL != "" {
		rs, err := telemetry.NewRedisSink(cfg.Redis)
		if err != nil {
			app.closeStorage()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		app.redis = rs
		sinks = append(sinks, rs)
	}

	engCfg, err := cfg.Engine.EngineSettings()
	if err != nil {
		app.closeStorage()
		return nil, err
	}
	eng, err := engine.New(engCfg, engine.Deps{
		Presenter: opts.Presenter,
		Registry:  app.registry,
		Mode:      app.mode,
		Fallbacks: Fallbacks(app.mode, opts.LocalStoreFallback, log),
		Sink:      telemetry.NewMulti(log, sinks...),
		Logger:    log,
	})
	if err != nil {
		app.closeStorage()
		return nil, err
	}
	app.engine = eng
	engine.SetDefault(eng)

	retention, err := cfg.Archive.RetentionPeriod()
	if err != nil {
		app.closeStorage()
		return nil, err
	}
	if retention > 0 {
		app.pruner = worker.NewPruner(app.archive, retention, log)
	}

	monitor := health.NewMonitor(eng, app.mode)
	app.health = health.NewServer(monitor, cfg.Server.Port)

	return app, nil
}

// Engine exposes the wired engine.
func (a *App) Engine() *engine.Engine { return a.engine }

// Mode exposes the degraded-mode switch.
func (a *App) Mode() *Switch { return a.mode }

// Registry exposes the component registry so subsystems can register
// restart functions after construction.
func (a *App) Registry() *Registry { return a.registry }

// Archive exposes the event archive for diagnostics queries.
func (a *App) Archive() storage.EventArchive { return a.archive }

// Start launches the engine loop, the archive writer, the pruner, and
// the health server.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.engine.Start()

	events, unsubscribe := a.engine.Subscribe(64)
	a.unsubscribe = unsubscribe
	a.wg.Add(1)
	go a.archiveEvents(runCtx, events)

	if a.pruner != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.pruner.Start(runCtx)
		}()
	}

	go func() {
		if err := a.health.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("health server stopped", "error", err)
		}
	}()

	a.log.Info("recovery service started", "port", a.cfg.Server.Port)
	return nil
}

// archiveEvents drains the engine's event bus into the archive. Archive
// failures are logged, never retried; the ring-buffer history remains the
// source of truth for recent events.
func (a *App) archiveEvents(ctx context.Context, events <-chan domain.ErrorEvent) {
	defer a.wg.Done()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := a.archive.Save(ctx, ev); err != nil {
				a.log.Error("failed to archive event",
					"kind", ev.Failure.Kind, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stop shuts everything down in reverse order of Start.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
	}

	if err := a.health.Stop(ctx); err != nil {
		a.log.Error("health server shutdown failed", "error", err)
	}

	if err := a.engine.Stop(ctx); err != nil {
		a.log.Error("engine shutdown timed out", "error", err)
	}

	a.wg.Wait()
	a.closeStorage()

	a.log.Info("recovery service stopped")
	return nil
}

func (a *App) closeStorage() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("failed to close redis sink", "error", err)
		}
		a.redis = nil
	}
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}
