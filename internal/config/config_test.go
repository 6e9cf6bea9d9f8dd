package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 9090
database:
  host: db.internal
  name: clinic
jwt:
  secret: from-file
options:
  cache_ttl: 1m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("OPD_JWT_SECRET", "from-env")
	t.Setenv("OPD_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, time.Minute, cfg.Options.CacheTTL)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiry())
	assert.Contains(t, cfg.Database.DSN(), "dbname=clinic")
}

func TestLoadConfig_RequiresSecret(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
