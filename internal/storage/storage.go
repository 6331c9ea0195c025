package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openpim/catalog-bulk/internal/config"
)

// ErrNotFound is returned when no object is stored under the key.
var ErrNotFound = errors.New("blob not found")

// Blob stores uploads and generated artifacts under flat keys such as
// "imports/<job id>/products.csv".
type Blob interface {
	// Put stores r under key. size may be -1 when unknown. It returns the stored size.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Stat returns the object size.
	Stat(ctx context.Context, key string) (int64, error)
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error
	Type() string
}

// BucketEnsurer is implemented by backends that need their container created up front.
type BucketEnsurer interface {
	EnsureBucket(ctx context.Context) error
}

func New(cfg *config.Config) (Blob, error) {
	switch cfg.Storage.Type {
	case "local", "":
		return NewLocal(cfg.Storage.LocalPath)
	case "minio":
		return NewMinio(
			WithEndpoint(cfg.Storage.Endpoint),
			WithBucket(cfg.Storage.Bucket),
			WithAccessKey(cfg.Storage.AccessKey),
			WithSecretKey(cfg.Storage.SecretAccessKey),
			WithSSL(cfg.Storage.UseSSL),
		)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}
