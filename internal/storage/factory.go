package storage

import (
	"context"
	"fmt"

	"github.com/rowjay/db-table-backup/internal/config"
)

func New(ctx context.Context, cfg config.UploadConfig) (Storage, error) {
	switch cfg.Backend {
	case config.BackendS3, "":
		if cfg.Bucket == "" || cfg.Region == "" {
			return nil, fmt.Errorf("s3 bucket and region are required")
		}
		return NewS3(ctx, S3Options{
			Bucket:         cfg.Bucket,
			Region:         cfg.Region,
			Endpoint:       cfg.Endpoint,
			AccessKey:      cfg.AccessKey,
			SecretKey:      cfg.SecretKey,
			SessionToken:   cfg.SessionToken,
			ForcePathStyle: cfg.ForcePathStyle,
		})
	case config.BackendMinio:
		if cfg.Endpoint == "" || cfg.Bucket == "" {
			return nil, fmt.Errorf("minio endpoint and bucket are required")
		}
		return NewMinio(cfg.Endpoint, cfg.Region, cfg.Bucket, cfg.AccessKey, cfg.SecretKey, cfg.SessionToken, cfg.UseSSL, cfg.ForcePathStyle)
	case config.BackendLocal:
		if cfg.LocalPath == "" {
			return nil, fmt.Errorf("local storage path is required")
		}
		return NewLocal(cfg.LocalPath), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
