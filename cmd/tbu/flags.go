package main

import (
	"github.com/spf13/cobra"

	"github.com/rowjay/db-table-backup/internal/config"
)

type rootFlags struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

type overrideFlags struct {
	Databases       []string
	Output          string
	Upload          bool
	Bucket          string
	Region          string
	CredentialsFile string
	DBType          string
	Storage         string
	Endpoint        string
	LocalPath       string
	Compression     string
	Encrypt         bool
	EncryptionKey   string
	StrictExit      bool
	NoProgress      bool
}

func bindFlags(cmd *cobra.Command, root *rootFlags, o *overrideFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&root.ConfigPath, "config", "", "Path to config file (yaml/toml/json or .enc)")
	pf.StringVar(&root.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&root.LogFormat, "log-format", "", "Log format (json, console)")

	pf.StringSliceVar(&o.Databases, "databases", nil, "Databases to back up, in order")
	pf.StringVar(&o.Output, "output", "", "Directory where run directories are created")
	pf.StringVar(&o.CredentialsFile, "credentials-file", "", "Credentials file passed to the database tools")
	pf.StringVar(&o.DBType, "db-type", "", "Database type (mysql, postgres)")

	pf.BoolVar(&o.Upload, "upload", false, "Upload every dump after it is written")
	pf.StringVar(&o.Storage, "storage", "", "Upload backend (s3, minio, local)")
	pf.StringVar(&o.Bucket, "bucket", "", "Destination bucket")
	pf.StringVar(&o.Region, "region", "", "Destination region")
	pf.StringVar(&o.Endpoint, "endpoint", "", "S3-compatible endpoint")
	pf.StringVar(&o.LocalPath, "local-path", "", "Target directory for the local backend")
	pf.StringVar(&o.Compression, "compression", "", "Compress uploads (none, gzip, zstd, lz4)")
	pf.BoolVar(&o.Encrypt, "encrypt", false, "Encrypt uploads")
	pf.StringVar(&o.EncryptionKey, "encryption-key", "", "Upload encryption key (base64 or hex)")

	pf.BoolVar(&o.StrictExit, "strict-exit", true, "Exit non-zero when any table or upload failed")
	pf.BoolVar(&o.NoProgress, "no-progress", false, "Disable the progress bar")
}

// applyOverrides copies flags the user set onto cfg. changed reports whether
// a flag was given on the command line, so boolean defaults never win over
// the config file.
func applyOverrides(cfg *config.Config, root *rootFlags, o *overrideFlags, changed func(string) bool) {
	if root.LogLevel != "" {
		cfg.Global.LogLevel = root.LogLevel
	}
	if root.LogFormat != "" {
		cfg.Global.LogFormat = root.LogFormat
	}

	if len(o.Databases) > 0 {
		cfg.Databases = o.Databases
	}
	if o.Output != "" {
		cfg.Output.Root = o.Output
	}
	if o.CredentialsFile != "" {
		cfg.Database.CredentialsFile = o.CredentialsFile
	}
	if o.DBType != "" {
		if dbType := config.NormalizeType(o.DBType); dbType != config.NormalizeType(cfg.Database.Type) {
			cfg.Database.Type = dbType
			// binaries follow a different engine
			cfg.Database.ClientBin = ""
			cfg.Database.DumpBin = ""
		}
	}

	if changed("upload") {
		cfg.Upload.Enabled = o.Upload
	}
	if o.Storage != "" {
		cfg.Upload.Backend = o.Storage
	}
	if o.Bucket != "" {
		cfg.Upload.Bucket = o.Bucket
	}
	if o.Region != "" {
		cfg.Upload.Region = o.Region
	}
	if o.Endpoint != "" {
		cfg.Upload.Endpoint = o.Endpoint
	}
	if o.LocalPath != "" {
		cfg.Upload.LocalPath = o.LocalPath
	}
	if o.Compression != "" {
		cfg.Upload.Compression = o.Compression
	}
	if changed("encrypt") {
		cfg.Upload.Encryption = o.Encrypt
	}
	if o.EncryptionKey != "" {
		cfg.Upload.EncryptionKey = o.EncryptionKey
	}

	if changed("strict-exit") {
		cfg.Global.StrictExit = o.StrictExit
	}
	if o.NoProgress {
		cfg.Global.Progress = false
	}

	config.Normalize(cfg)
}

func loadConfig(cmd *cobra.Command, root *rootFlags, o *overrideFlags) (*config.Config, error) {
	cfg, err := config.Load(root.ConfigPath)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, root, o, cmd.Flags().Changed)
	return cfg, nil
}
