// Package storage reads rendered session result images from an object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yarumotors/bot/core/config"
	"github.com/yarumotors/bot/core/logger"
)

// ErrUnknownDriver is returned by New for an unsupported storage.driver.
var ErrUnknownDriver = errors.New("storage: unknown driver")

// codeNoSuchKey is the S3 error code for a missing object. Every other code,
// NoSuchBucket included, is a failure.
const codeNoSuchKey = "NoSuchKey"

// Store fetches objects by key. Absence is reported through ok, not as an error.
type Store interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
}

// New builds the Store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Driver {
	case config.StorageMinio:
		store, err = NewMinio(cfg)
	case config.StorageS3:
		store, err = NewS3(ctx, cfg)
	case config.StorageMemory:
		store = NewMemory()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, logger.CompStorage, "storage.init",
		slog.String("driver", cfg.Driver),
		slog.String("bucket", cfg.Bucket),
		slog.String("host", cfg.Endpoint),
	)
	return &logged{next: store, bucket: cfg.Bucket}, nil
}

// logged records one debug line per lookup.
type logged struct {
	next   Store
	bucket string
}

func (l *logged) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	data, ok, err := l.next.Get(ctx, key)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "fail"
	case !ok:
		outcome = "not_found"
	}
	if err != nil || logger.ShouldSampleDebug() {
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		logger.Event(ctx, logger.CompStorage, level, "storage.get",
			slog.String("key", key),
			slog.String("bucket", l.bucket),
			slog.String("outcome", outcome),
			slog.Int("bytes", len(data)),
			slog.Duration("duration", logger.Took(start)),
			slog.Any("err", err),
		)
	}
	return data, ok, err
}
