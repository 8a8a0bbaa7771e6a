package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rowjay/db-table-backup/internal/cryptoutil"
)

const (
	envPrefix = "TBU"
	appName   = "tbu"
)

// Load reads configuration from a file (optionally encrypted), env vars, and defaults.
func Load(path string) (*Config, error) {
	vp := viper.New()
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	setDefaults(vp)

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	if resolved != "" {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
		if isEncryptedPath(resolved) {
			vp.SetConfigType(configTypeFromPath(resolved))
			key := os.Getenv(envPrefix + "_CONFIG_KEY")
			if key == "" {
				key = vp.GetString("global.config_passphrase")
			}
			if key == "" {
				return nil, errors.New("config file is encrypted but TBU_CONFIG_KEY is not set")
			}
			plain, decErr := decryptConfig(data, key)
			if decErr != nil {
				return nil, fmt.Errorf("decrypt config: %w", decErr)
			}
			if err := vp.ReadConfig(bytes.NewReader(plain)); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		} else {
			vp.SetConfigFile(resolved)
			if err := vp.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := vp.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	expandEnv(&cfg)
	Normalize(&cfg)
	return &cfg, nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}
	if envPath := os.Getenv(envPrefix + "_CONFIG"); envPath != "" {
		return envPath, nil
	}

	candidates := []string{
		appName + ".yaml",
		appName + ".yml",
		appName + ".toml",
		appName + ".json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}

	configDir, err := os.UserConfigDir()
	if err == nil {
		base := filepath.Join(configDir, appName)
		for _, c := range candidates {
			p := filepath.Join(base, c)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
			if _, err := os.Stat(p + ".enc"); err == nil {
				return p + ".enc", nil
			}
		}
	}

	return "", nil
}

func isEncryptedPath(path string) bool {
	return strings.HasSuffix(path, ".enc") || strings.HasSuffix(path, ".encrypted")
}

func configTypeFromPath(path string) string {
	base := strings.TrimSuffix(strings.TrimSuffix(path, ".enc"), ".encrypted")
	switch filepath.Ext(base) {
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

// Every key that may come from the environment needs a default so viper
// includes it when unmarshalling.
func setDefaults(vp *viper.Viper) {
	vp.SetDefault("global.log_level", "info")
	vp.SetDefault("global.log_format", "console")
	vp.SetDefault("global.log_file", "")
	vp.SetDefault("global.lock_file", "")
	vp.SetDefault("global.operation_timeout", "0s")
	vp.SetDefault("global.config_passphrase", "")
	vp.SetDefault("global.strict_exit", true)
	vp.SetDefault("global.progress", true)

	vp.SetDefault("databases", []string{})
	vp.SetDefault("database.type", DatabaseMySQL)
	vp.SetDefault("database.credentials_file", "")
	vp.SetDefault("database.client_bin", "")
	vp.SetDefault("database.dump_bin", "")
	vp.SetDefault("database.schema", "public")

	vp.SetDefault("output.root", "dumps")

	vp.SetDefault("upload.enabled", false)
	vp.SetDefault("upload.backend", BackendS3)
	vp.SetDefault("upload.bucket", "")
	vp.SetDefault("upload.region", "")
	vp.SetDefault("upload.prefix", "backups")
	vp.SetDefault("upload.endpoint", "")
	vp.SetDefault("upload.access_key", "")
	vp.SetDefault("upload.secret_key", "")
	vp.SetDefault("upload.session_token", "")
	vp.SetDefault("upload.use_ssl", true)
	vp.SetDefault("upload.force_path_style", false)
	vp.SetDefault("upload.local_path", "")
	vp.SetDefault("upload.compression", "none")
	vp.SetDefault("upload.encryption", false)
	vp.SetDefault("upload.encryption_key", "")
}

func expandEnv(cfg *Config) {
	cfg.Database.CredentialsFile = os.ExpandEnv(cfg.Database.CredentialsFile)
	cfg.Output.Root = os.ExpandEnv(cfg.Output.Root)
	cfg.Upload.AccessKey = os.ExpandEnv(cfg.Upload.AccessKey)
	cfg.Upload.SecretKey = os.ExpandEnv(cfg.Upload.SecretKey)
	cfg.Upload.SessionToken = os.ExpandEnv(cfg.Upload.SessionToken)
	cfg.Upload.EncryptionKey = os.ExpandEnv(cfg.Upload.EncryptionKey)
	cfg.Upload.LocalPath = os.ExpandEnv(cfg.Upload.LocalPath)
	cfg.Notifications = expandNotificationEnv(cfg.Notifications)
}

func expandNotificationEnv(cfg NotificationsConfig) NotificationsConfig {
	for i := range cfg.Webhooks {
		cfg.Webhooks[i].URL = os.ExpandEnv(cfg.Webhooks[i].URL)
	}
	for i := range cfg.Mattermost {
		cfg.Mattermost[i].URL = os.ExpandEnv(cfg.Mattermost[i].URL)
	}
	for i := range cfg.Matrix {
		cfg.Matrix[i].ServerURL = os.ExpandEnv(cfg.Matrix[i].ServerURL)
		cfg.Matrix[i].AccessToken = os.ExpandEnv(cfg.Matrix[i].AccessToken)
		cfg.Matrix[i].RoomID = os.ExpandEnv(cfg.Matrix[i].RoomID)
	}
	return cfg
}

// Normalize lower-cases enum values, drops blank database entries and fills
// collaborator binaries for the configured database type. It is idempotent
// and is run again after CLI overrides are applied.
func Normalize(cfg *Config) {
	cfg.Global.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Global.LogLevel))
	cfg.Global.LogFormat = strings.ToLower(strings.TrimSpace(cfg.Global.LogFormat))
	cfg.Database.Type = NormalizeType(cfg.Database.Type)
	cfg.Upload.Backend = strings.ToLower(strings.TrimSpace(cfg.Upload.Backend))
	cfg.Upload.Compression = strings.ToLower(strings.TrimSpace(cfg.Upload.Compression))
	cfg.Upload.Prefix = strings.Trim(cfg.Upload.Prefix, "/")

	dbs := make([]string, 0, len(cfg.Databases))
	for _, name := range cfg.Databases {
		if name = strings.TrimSpace(name); name != "" {
			dbs = append(dbs, name)
		}
	}
	cfg.Databases = dbs

	if cfg.Database.ClientBin == "" || cfg.Database.DumpBin == "" {
		client, dump := defaultBinaries(cfg.Database.Type)
		if cfg.Database.ClientBin == "" {
			cfg.Database.ClientBin = client
		}
		if cfg.Database.DumpBin == "" {
			cfg.Database.DumpBin = dump
		}
	}
}

// NormalizeType maps a database type and its aliases to the canonical name.
// Unknown types are returned lower-cased for Validate to reject.
func NormalizeType(dbType string) string {
	dbType = strings.ToLower(strings.TrimSpace(dbType))
	switch dbType {
	case "", "mariadb":
		return DatabaseMySQL
	case "postgresql":
		return DatabasePostgres
	}
	return dbType
}

func defaultBinaries(dbType string) (string, string) {
	switch dbType {
	case DatabasePostgres:
		return "psql", "pg_dump"
	default:
		return "mysql", "mysqldump"
	}
}

func decryptConfig(ciphertext []byte, key string) ([]byte, error) {
	parsed, err := cryptoutil.ParseKey(key)
	if err != nil {
		return nil, err
	}
	return cryptoutil.DecryptConfig(ciphertext, parsed)
}
