package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *Config {
	dir := t.TempDir()
	return &Config{
		Database: DatabaseConfig{Path: filepath.Join(dir, "bureau.db")},
		Server:   ServerConfig{Host: "127.0.0.1", Port: 0},
		Folders: FoldersConfig{
			Backend:    BackendLocal,
			LocalRoot:  filepath.Join(dir, "folders"),
			Workers:    2,
			JobTimeout: 5 * time.Second,
		},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"local", func(c *Config) {}, true},
		{"no db path", func(c *Config) { c.Database.Path = "" }, false},
		{"no local root", func(c *Config) { c.Folders.LocalRoot = "" }, false},
		{"minio without endpoint", func(c *Config) { c.Folders.Backend = BackendMinio }, false},
		{"minio", func(c *Config) {
			c.Folders.Backend = BackendMinio
			c.Minio.Endpoint = "localhost:9000"
			c.Minio.Bucket = "contracts"
		}, true},
		{"unknown backend", func(c *Config) { c.Folders.Backend = "ftp" }, false},
		{"lark without secret", func(c *Config) {
			c.Lark.Enabled = true
			c.Lark.AppID = "cli_x"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewContainer_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Folders.Backend = ""
	_, err := NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_Lifecycle(t *testing.T) {
	cfg := testConfig(t)
	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()), "second start")

	health := c.Health()
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.True(t, health.Components["workers"].Healthy)

	contractDate := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	contract, err := c.Engine().CreateContract(context.Background(), &entity.Contract{
		ContractNumber:       "DP-1",
		AgentType:            "Direct",
		Classification:       entity.ClassificationTemplate,
		City:                 "Moscow",
		Address:              "Tverskaya 7",
		Area:                 120,
		ContractDate:         &contractDate,
		ContractPeriodMonths: 3,
	}, 0)
	require.NoError(t, err)

	c.FolderSync().WaitIdle()
	_, err = os.Stat(filepath.Join(cfg.Folders.LocalRoot, filepath.FromSlash(contract.FolderPath)))
	assert.NoError(t, err, "contract folder created")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	c.Server().Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "healthy"))

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close(), "second close")
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("id", 7, 42, "skipped", "odd")
	require.Len(t, fields, 1)
	assert.Equal(t, "id", fields[0].Key)
}
