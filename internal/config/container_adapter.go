package config

import (
	"github.com/garyjia/design-bureau/internal/container"
)

// ToContainerConfig converts the file-based configuration into the
// container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
		Folders: container.FoldersConfig{
			Backend:    c.Folders.Backend,
			LocalRoot:  c.Folders.LocalRoot,
			Workers:    c.Folders.Workers,
			JobTimeout: c.Folders.JobTimeout,
		},
		Minio: container.MinioConfig{
			Endpoint:      c.Minio.Endpoint,
			AccessKey:     c.Minio.AccessKeyID,
			SecretKey:     c.Minio.SecretAccessKey,
			Bucket:        c.Minio.Bucket,
			Prefix:        c.Minio.Prefix,
			UseSSL:        c.Minio.UseSSL,
			RetryAttempts: c.Minio.RetryAttempts,
			RetryDelay:    c.Minio.RetryDelay,
		},
		Lark: container.LarkConfig{
			Enabled:    c.Lark.Enabled,
			AppID:      c.Lark.AppID,
			AppSecret:  c.Lark.AppSecret,
			APITimeout: c.Lark.APITimeout,
		},
	}
}
