package MinIO

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"filetree-service/internal/common"
	"filetree-service/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type Config struct {
	Endpoint      string `env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	BucketName    string `env:"MINIO_BUCKET_NAME" env-default:"storage"`
	AccessKey     string `env:"MINIO_ACCESS_KEY" env-default:"admin"`
	SecretKey     string `env:"MINIO_SECRET_KEY" env-default:""`
	UseSSL        bool   `env:"MINIO_USE_SSL" env-default:"false"`
	Region        string `env:"MINIO_REGION" env-default:"us-east-1"`
	PublicBaseURL string `env:"MINIO_PUBLIC_URL" env-default:"http://localhost:9000"`
}

type MinIOClient struct {
	Client  *minio.Client
	Bucket  string
	baseURL string
}

// New connects to MinIO and makes sure the bucket exists.
func New(ctx context.Context, cfg Config) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.BucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.BucketName, err)
		}
		logger.GetLogger(ctx).Info("bucket created", zap.String("bucket", cfg.BucketName))
	}

	return &MinIOClient{
		Client:  client,
		Bucket:  cfg.BucketName,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// PublicURL is the path-style address of key.
func (m *MinIOClient) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", m.baseURL, m.Bucket, key)
}

func (m *MinIOClient) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := m.Client.PutObject(ctx, m.Bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to put object %q: %w", key, err)
	}
	return m.PublicURL(key), nil
}

func (m *MinIOClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.Client.GetObject(ctx, m.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %q: %w", key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller starts streaming.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isNotFound(err) {
			return nil, fmt.Errorf("object %q: %w", key, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat object %q: %w", key, err)
	}
	return obj, nil
}

func (m *MinIOClient) Delete(ctx context.Context, key string) error {
	if err := m.Client.RemoveObject(ctx, m.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %q: %w", key, err)
	}
	return nil
}

// Ping is used by the health check.
func (m *MinIOClient) Ping(ctx context.Context) error {
	if _, err := m.Client.BucketExists(ctx, m.Bucket); err != nil {
		return fmt.Errorf("minio unreachable: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
