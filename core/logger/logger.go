package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/yarumotors/bot/core/buildinfo"
	coreconfig "github.com/yarumotors/bot/core/config"
)

// Component names attached to log lines.
const (
	CompApp     = "app"
	CompHTTP    = "http"
	CompDC      = "dc"
	CompDCWire  = "dc.wire"
	CompSender  = "dc.sender"
	CompDB      = "db"
	CompMigrate = "db.migrate"
	CompStorage = "storage"
	CompResults = "results"
	CompBoard   = "board"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	shutdowned bool

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	// base stays nil until InitLogger runs; the helpers below tolerate that.
	base       *slog.Logger
	components sync.Map // component name -> *slog.Logger
)

// settings is the logging section of the config resolved to concrete values.
type settings struct {
	format   logFormat
	order    []string
	level    slog.Level
	profile  string
	sampleN  int
	sampleD  int
	filePath string
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{
		format:  formatJSON,
		order:   append([]string(nil), defaultKeyOrder...),
		level:   slog.LevelInfo,
		profile: "prod",
		sampleN: 1,
		sampleD: 50,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.order = order
		}
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if raw := strings.TrimSpace(lc.DebugSample); raw != "" {
		switch n, d := parseRatioSpec(raw); {
		case n == 0 && d == 0:
			s.sampleN, s.sampleD = 0, 0
		case n > 0 && d > 0:
			s.sampleN, s.sampleD = n, d
		}
	}

	dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir != "" && file != "" {
		s.filePath = filepath.Join(dir, file)
	}
	return s
}

// InitLogger configures the global structured logger. It may be called only once.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		s := settingsFrom(cfg)
		levelVar.Set(s.level)
		debugSampler.Set(s.sampleN, s.sampleD)
		traceOverride = isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))

		outputs := []io.Writer{os.Stdout}
		if s.filePath != "" {
			f, err := openLogFile(s.filePath)
			if err != nil {
				// Stdout still works; report and keep going.
				fmt.Fprintf(os.Stderr, "logger: %v\n", err)
			} else {
				outputs = append(outputs, f)
				logClosers = append(logClosers, f)
			}
		}
		logWriter = newAsyncWriter(outputs, 64*1024)

		base = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   s.format,
			keyOrder: s.order,
		}))
		slog.SetDefault(base)
		logStartup(cfg, s)
	})
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func logStartup(cfg *coreconfig.Config, s settings) {
	attrs := []slog.Attr{
		slog.String("component", CompApp),
		slog.String("event", "startup"),
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", buildinfo.Version),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", s.profile),
	}
	if cfg != nil {
		attrs = append(attrs,
			slog.String("storage_driver", cfg.Storage.Driver),
			slog.Bool("db_enabled", cfg.Database.Enabled()),
		)
	}
	base.LogAttrs(context.Background(), slog.LevelInfo, "startup", attrs...)
}

// Shutdown flushes buffered log output and closes opened sinks.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutdowned {
		return nil
	}
	shutdowned = true

	var errs []error
	if logWriter != nil {
		errs = append(errs, logWriter.Flush(), logWriter.Close())
	}
	for _, c := range logClosers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// LogEvent writes an event record through logg, falling back to the context logger.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns the base logger scoped to name. Loggers are built once
// per name and reused.
func Component(name string) *slog.Logger {
	if base == nil {
		return nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return base
	}
	if l, ok := components.Load(name); ok {
		return l.(*slog.Logger)
	}
	l, _ := components.LoadOrStore(name, base.With("component", name))
	return l.(*slog.Logger)
}

// Event logs with component scope resolved automatically.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	logg := Component(component)
	if logg == nil {
		logg = FromContext(ctx)
		if logg != nil && strings.TrimSpace(component) != "" {
			logg = logg.With("component", strings.TrimSpace(component))
		}
	}
	LogEvent(ctx, logg, level, event, attrs...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether debug-level details should be logged for high-volume events.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}

// TraceEnabled indicates whether trace override is forcing full debug output.
func TraceEnabled() bool {
	return traceOverride
}
