package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yarumotors/bot/core/config"
)

// Minio reads objects through the minio client. Cloudflare R2 is addressed
// this way with Region "auto".
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio creates a client for cfg.Endpoint (host[:port], no scheme).
func NewMinio(cfg config.StorageConfig) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: minio client: %w", err)
	}
	return &Minio{client: client, bucket: cfg.Bucket}, nil
}

// Get implements Store.
func (m *Minio) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, classifyMinio(key, err)
	}
	defer obj.Close()
	// GetObject is lazy; a missing key only surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, false, classifyMinio(key, err)
	}
	return data, true, nil
}

func classifyMinio(key string, err error) error {
	if isMinioNotFound(err) {
		return nil
	}
	return fmt.Errorf("storage: get %q: %w", key, err)
}

func isMinioNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == codeNoSuchKey
}
