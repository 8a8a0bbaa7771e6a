package config

import "time"

// Config is the root configuration schema.
type Config struct {
	Global        GlobalConfig        `mapstructure:"global"`
	Databases     []string            `mapstructure:"databases"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Output        OutputConfig        `mapstructure:"output"`
	Upload        UploadConfig        `mapstructure:"upload"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type GlobalConfig struct {
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"` // json or console
	LogFile          string        `mapstructure:"log_file"`
	LockFile         string        `mapstructure:"lock_file"` // empty disables locking
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	ConfigPassphrase string        `mapstructure:"config_passphrase"` // optional; may come from env
	StrictExit       bool          `mapstructure:"strict_exit"`
	Progress         bool          `mapstructure:"progress"`
}

// DatabaseConfig describes how the client and dump collaborators are invoked.
// The credentials file is handed to them untouched.
type DatabaseConfig struct {
	Type            string   `mapstructure:"type"` // mysql, postgres
	CredentialsFile string   `mapstructure:"credentials_file"`
	ClientBin       string   `mapstructure:"client_bin"`
	DumpBin         string   `mapstructure:"dump_bin"`
	DumpArgs        []string `mapstructure:"dump_args"`
	Schema          string   `mapstructure:"schema"` // postgres only
}

type OutputConfig struct {
	Root string `mapstructure:"root"`
}

type UploadConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Backend        string `mapstructure:"backend"` // s3, minio, local
	Bucket         string `mapstructure:"bucket"`
	Region         string `mapstructure:"region"`
	Prefix         string `mapstructure:"prefix"`
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	SessionToken   string `mapstructure:"session_token"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	LocalPath      string `mapstructure:"local_path"`
	Compression    string `mapstructure:"compression"` // none, gzip, zstd, lz4
	Encryption     bool   `mapstructure:"encryption"`
	EncryptionKey  string `mapstructure:"encryption_key"`
}

type NotificationsConfig struct {
	Webhooks   []WebhookConfig  `mapstructure:"webhooks"`
	Mattermost []MattermostHook `mapstructure:"mattermost"`
	Matrix     []MatrixConfig   `mapstructure:"matrix"`
}

type WebhookConfig struct {
	Name    string            `mapstructure:"name"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type MattermostHook struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

type MatrixConfig struct {
	Name        string `mapstructure:"name"`
	ServerURL   string `mapstructure:"server_url"`
	AccessToken string `mapstructure:"access_token"`
	RoomID      string `mapstructure:"room_id"`
}
