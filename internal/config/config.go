package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Folder backend names
const (
	FolderBackendLocal = "local"
	FolderBackendMinio = "minio"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Folders  FoldersConfig  `mapstructure:"folders"`
	Minio    MinioConfig    `mapstructure:"minio"`
	Lark     LarkConfig     `mapstructure:"lark"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// FoldersConfig selects the remote folder transport and sizes the relocation pool
type FoldersConfig struct {
	Backend    string        `mapstructure:"backend"` // local or minio
	LocalRoot  string        `mapstructure:"local_root"`
	Workers    int           `mapstructure:"workers"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

// MinioConfig holds S3-compatible storage settings
type MinioConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	Bucket          string        `mapstructure:"bucket"`
	Prefix          string        `mapstructure:"prefix"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
}

// LarkConfig holds Lark API configuration. Notifications are skipped when disabled.
type LarkConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	AppID      string        `mapstructure:"app_id"`
	AppSecret  string        `mapstructure:"app_secret"`
	APITimeout time.Duration `mapstructure:"api_timeout"`
}

// Load loads configuration from file and environment variables.
// A .env file next to the working directory is applied first when present.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.path", "data/bureau.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("folders.backend", FolderBackendLocal)
	v.SetDefault("folders.local_root", "data/folders")
	v.SetDefault("folders.workers", 4)
	v.SetDefault("folders.job_timeout", 2*time.Minute)

	v.SetDefault("minio.bucket", "contracts")
	v.SetDefault("minio.retry_attempts", 3)
	v.SetDefault("minio.retry_delay", 200*time.Millisecond)

	v.SetDefault("lark.enabled", false)
	v.SetDefault("lark.api_timeout", 30*time.Second)
}

func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"database.path":           "BUREAU_DB_PATH",
		"folders.backend":         "BUREAU_FOLDERS_BACKEND",
		"minio.endpoint":          "MINIO_ENDPOINT",
		"minio.access_key_id":     "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key": "MINIO_SECRET_ACCESS_KEY",
		"minio.bucket":            "MINIO_BUCKET",
		"lark.app_id":             "LARK_APP_ID",
		"lark.app_secret":         "LARK_APP_SECRET",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Folders.Workers <= 0 {
		return fmt.Errorf("folders.workers must be positive")
	}

	switch c.Folders.Backend {
	case FolderBackendLocal:
		if c.Folders.LocalRoot == "" {
			return fmt.Errorf("folders.local_root is required for the local backend")
		}
	case FolderBackendMinio:
		if c.Minio.Endpoint == "" {
			return fmt.Errorf("minio.endpoint is required for the minio backend")
		}
		if c.Minio.Bucket == "" {
			return fmt.Errorf("minio.bucket is required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown folders.backend %q", c.Folders.Backend)
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required")
		}
	}
	return nil
}
