package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yarumotors/bot/core/app"
	"github.com/yarumotors/bot/core/bootstrap"
	coreconfig "github.com/yarumotors/bot/core/config"
	"github.com/yarumotors/bot/core/logger"
)

// DefaultConfigPath is used when CONFIG_PATH is unset.
const DefaultConfigPath = "config.yml"

// Options describe how to load configuration, bootstrap the app, and run it.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string
	// EnvFiles are loaded before the config; missing files are ignored.
	EnvFiles []string

	Modules bootstrap.Modules

	LoadConfig func(path string) (*coreconfig.Config, error)
	Bootstrap  func(ctx context.Context, cfg *coreconfig.Config) (*bootstrap.Result, error)

	ShutdownLogger func() error
}

// LoadEnv reads .env style files into the process environment without
// overriding variables that are already set.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Printf("env file %s: %v", f, err)
		}
	}
}

// ConfigPath resolves the config file from envVar or fallback.
func ConfigPath(envVar, fallback string) string {
	if envVar == "" {
		envVar = "CONFIG_PATH"
	}
	if p := os.Getenv(envVar); p != "" {
		return p
	}
	if fallback != "" {
		return fallback
	}
	return DefaultConfigPath
}

// Run loads configuration, bootstraps infrastructure, and serves until SIGINT or SIGTERM.
func Run(opts Options) error {
	LoadEnv(opts.EnvFiles...)

	load := opts.LoadConfig
	if load == nil {
		load = coreconfig.Load
	}
	cfgPath := ConfigPath(opts.ConfigEnvVar, opts.DefaultConfigPath)
	log.Printf("loading config: %s", cfgPath)
	cfg, err := load(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	boot := opts.Bootstrap
	if boot == nil {
		boot = func(ctx context.Context, cfg *coreconfig.Config) (*bootstrap.Result, error) {
			return bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
		}
	}
	infra, err := boot(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := infra.Close(closeCtx); err != nil {
			logger.Warn(closeCtx, logger.CompApp, "infra.close", slog.String("err", err.Error()))
		}
	}()

	application, err := app.New(ctx, app.Options{
		Config:  cfg,
		Infra:   infra,
		Modules: opts.Modules,
		OnStart: func(ctx context.Context, rt app.Runtime) error {
			logger.Info(ctx, logger.CompApp, "ready",
				slog.Int("commands", len(rt.Registry.Commands())),
				slog.Bool("board", rt.Board != nil),
				slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
			)
			return nil
		},
		OnStop: func(ctx context.Context, _ app.Runtime) error {
			logger.Info(ctx, logger.CompApp, "shutdown")
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("cmd: app build failed: %w", err)
	}
	return application.Run(ctx)
}
