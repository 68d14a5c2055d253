// Package container wires the bureau's repositories, services, workers and
// HTTP server together and owns their lifecycle.
package container

import (
	"fmt"
	"time"
)

// Folder transport backends
const (
	BackendLocal = "local"
	BackendMinio = "minio"
)

// Config holds all configuration for the Container.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Folders  FoldersConfig
	Minio    MinioConfig
	Lark     LarkConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FoldersConfig selects the folder transport and sizes the sync pool.
type FoldersConfig struct {
	// Backend is "local" or "minio"
	Backend string

	// LocalRoot is the directory that holds contract folders for the local backend
	LocalRoot string

	Workers    int
	JobTimeout time.Duration
}

// MinioConfig holds bucket settings for the minio backend.
type MinioConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Prefix        string
	UseSSL        bool
	RetryAttempts int
	RetryDelay    time.Duration
}

// LarkConfig holds messenger credentials. When disabled, notifications are
// only logged.
type LarkConfig struct {
	Enabled    bool
	AppID      string
	AppSecret  string
	APITimeout time.Duration
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}

	switch c.Folders.Backend {
	case BackendLocal:
		if c.Folders.LocalRoot == "" {
			return fmt.Errorf("local folder root is required")
		}
	case BackendMinio:
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" {
			return fmt.Errorf("minio endpoint and bucket are required")
		}
	default:
		return fmt.Errorf("unknown folder backend %q", c.Folders.Backend)
	}

	if c.Lark.Enabled && (c.Lark.AppID == "" || c.Lark.AppSecret == "") {
		return fmt.Errorf("lark app id and secret are required when lark is enabled")
	}
	return nil
}
