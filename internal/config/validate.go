package config

import (
	"fmt"
	"strings"

	"github.com/rowjay/db-table-backup/internal/compress"
	"github.com/rowjay/db-table-backup/internal/cryptoutil"
)

const (
	DatabaseMySQL    = "mysql"
	DatabasePostgres = "postgres"

	BackendS3    = "s3"
	BackendMinio = "minio"
	BackendLocal = "local"
)

// ValidationError names the offending configuration key.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration error for '%s': %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks the configuration before any run state is created.
func (c *Config) Validate() error {
	if len(c.Databases) == 0 {
		return invalid("databases", "at least one database is required")
	}
	seen := make(map[string]struct{}, len(c.Databases))
	for i, name := range c.Databases {
		if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return invalid(fmt.Sprintf("databases[%d]", i), "%q is not a valid database name", name)
		}
		if _, dup := seen[name]; dup {
			return invalid(fmt.Sprintf("databases[%d]", i), "%q is listed more than once", name)
		}
		seen[name] = struct{}{}
	}

	switch c.Database.Type {
	case DatabaseMySQL, DatabasePostgres:
	default:
		return invalid("database.type", "unsupported database type %q", c.Database.Type)
	}

	if c.Output.Root == "" {
		return invalid("output.root", "must not be empty")
	}

	if c.Global.OperationTimeout < 0 {
		return invalid("global.operation_timeout", "must not be negative")
	}

	if c.Upload.Enabled {
		if err := c.Upload.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (u UploadConfig) validate() error {
	switch u.Backend {
	case BackendS3:
		if u.Bucket == "" {
			return invalid("upload.bucket", "required when upload is enabled")
		}
		if u.Region == "" {
			return invalid("upload.region", "required for the s3 backend")
		}
	case BackendMinio:
		if u.Endpoint == "" || u.Bucket == "" {
			return invalid("upload.endpoint", "minio endpoint and bucket are required")
		}
	case BackendLocal:
		if u.LocalPath == "" {
			return invalid("upload.local_path", "required for the local backend")
		}
	default:
		return invalid("upload.backend", "unsupported storage backend %q", u.Backend)
	}

	if !compress.Supported(u.Compression) {
		return invalid("upload.compression", "unsupported compression %q", u.Compression)
	}

	if u.Encryption {
		if _, err := cryptoutil.ParseKey(u.EncryptionKey); err != nil {
			return invalid("upload.encryption_key", "%v", err)
		}
	}
	return nil
}

// ValidateUpload checks only the upload destination. It is used by commands
// that read from the destination without running a backup.
func (c *Config) ValidateUpload() error {
	return c.Upload.validate()
}
