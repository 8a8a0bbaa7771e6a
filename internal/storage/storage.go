package storage

import (
	"context"
	"io"
	"time"
)

type ObjectInfo struct {
	Key      string
	Size     int64
	Modified time.Time
	ETag     string
}

// Storage is an upload destination. A size of -1 means the length of reader
// is unknown, which happens when the upload stream is compressed or encrypted.
type Storage interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, metadata map[string]string) error
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// Location renders key as a human-readable destination such as s3://bucket/key.
	Location(key string) string
}
