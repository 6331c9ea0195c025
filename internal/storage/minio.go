package storage

import (
	"context"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioOpts func(c *minioConfig)

type minioConfig struct {
	endpoint        string
	bucket          string
	accessKey       string
	secretAccessKey string
	useSSL          bool
}

func newConfig(opts ...MinioOpts) *minioConfig {
	cfg := &minioConfig{useSSL: false}

	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

type minioBlob struct {
	cfg    *minioConfig
	client *minio.Client
}

func NewMinio(opts ...MinioOpts) (Blob, error) {
	cfg := newConfig(opts...)

	client, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
	})
	if err != nil {
		return nil, err
	}

	return &minioBlob{cfg: cfg, client: client}, nil
}

// EnsureBucket creates the configured bucket when it is missing.
func (m *minioBlob) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.cfg.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, m.cfg.bucket, minio.MakeBucketOptions{})
}

func (m *minioBlob) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error) {
	info, err := m.client.PutObject(ctx, m.cfg.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

func (m *minioBlob) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	// GetObject is lazy, stat first so a missing key fails here and not on the first read
	if _, err := m.Stat(ctx, key); err != nil {
		return nil, err
	}
	return m.client.GetObject(ctx, m.cfg.bucket, key, minio.GetObjectOptions{})
}

func (m *minioBlob) Stat(ctx context.Context, key string) (int64, error) {
	info, err := m.client.StatObject(ctx, m.cfg.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, translateMinioError(err)
	}
	return info.Size, nil
}

func (m *minioBlob) Delete(ctx context.Context, key string) error {
	return translateMinioError(m.client.RemoveObject(ctx, m.cfg.bucket, key, minio.RemoveObjectOptions{}))
}

func (m *minioBlob) Type() string {
	return "minio"
}

func translateMinioError(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return err
}

func WithEndpoint(endpoint string) MinioOpts {
	return func(c *minioConfig) {
		c.endpoint = endpoint
	}
}

func WithBucket(bucket string) MinioOpts {
	return func(c *minioConfig) {
		c.bucket = bucket
	}
}

func WithAccessKey(accessKey string) MinioOpts {
	return func(c *minioConfig) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) MinioOpts {
	return func(c *minioConfig) {
		c.secretAccessKey = secretKey
	}
}

func WithSSL(useSSL bool) MinioOpts {
	return func(c *minioConfig) {
		c.useSSL = useSSL
	}
}
