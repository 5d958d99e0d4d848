package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/yarumotors/bot/core/config"
	coredatabase "github.com/yarumotors/bot/core/database"
	"github.com/yarumotors/bot/core/kv"
	"github.com/yarumotors/bot/core/logger"
	"github.com/yarumotors/bot/core/storage"
	"github.com/yarumotors/bot/core/telemetry"
)

// Options control the bootstrap pipeline. Nil hooks fall back to the real
// implementations; tests replace them.
type Options struct {
	Config *coreconfig.Config

	LoggerInit    func(*coreconfig.Config) error
	WaitDB        func(ctx context.Context, cfg coreconfig.DatabaseConfig) error
	Connect       func(ctx context.Context, cfg coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate       func(ctx context.Context, cfg coreconfig.DatabaseConfig) error
	OpenStorage   func(ctx context.Context, cfg coreconfig.StorageConfig) (storage.Store, error)
	InitTelemetry func(cfg coreconfig.TelemetryConfig) (telemetry.ShutdownFunc, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// DB is nil when no database is configured.
	DB      *sqlx.DB
	KV      kv.Store
	Storage storage.Store

	shutdownTelemetry telemetry.ShutdownFunc
}

// Close releases the database and flushes telemetry.
func (r *Result) Close(ctx context.Context) error {
	var errs []error
	if r.DB != nil {
		errs = append(errs, r.DB.Close())
	}
	if r.shutdownTelemetry != nil {
		errs = append(errs, r.shutdownTelemetry(ctx))
	}
	return errors.Join(errs...)
}

// Run initializes the logger, telemetry, the key-value store (postgres with
// migrations, or memory) and the object store.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	initTelemetry := opts.InitTelemetry
	if initTelemetry == nil {
		initTelemetry = telemetry.Init
	}
	shutdown, err := initTelemetry(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: telemetry init failed: %w", err)
	}
	res := &Result{shutdownTelemetry: shutdown}

	if cfg.Database.Enabled() {
		if err := res.openDatabase(ctx, opts); err != nil {
			_ = res.Close(ctx)
			return nil, err
		}
	} else {
		res.KV = kv.NewMemory()
	}

	openStorage := opts.OpenStorage
	if openStorage == nil {
		openStorage = storage.New
	}
	res.Storage, err = openStorage(ctx, cfg.Storage)
	if err != nil {
		_ = res.Close(ctx)
		return nil, fmt.Errorf("bootstrap: storage initialization failed: %w", err)
	}
	return res, nil
}

func (r *Result) openDatabase(ctx context.Context, opts Options) error {
	cfg := opts.Config.Database

	wait := opts.WaitDB
	if wait == nil {
		wait = func(ctx context.Context, cfg coreconfig.DatabaseConfig) error {
			return coredatabase.WaitForPostgres(ctx, coredatabase.DSN(cfg), 30*time.Second)
		}
	}
	if err := wait(ctx, cfg); err != nil {
		return fmt.Errorf("bootstrap: database unreachable: %w", err)
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	r.DB = db

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(ctx, cfg); err != nil {
		return fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	r.KV = kv.NewPostgres(db)
	return nil
}
