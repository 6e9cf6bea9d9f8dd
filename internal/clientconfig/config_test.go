package clientconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-desk/pkg/logger"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPDCTL_SESSION_FILE", filepath.Join(t.TempDir(), "s.json"))

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/v1", cfg.APIURL)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.NotEmpty(t, cfg.PrintDir)
	assert.Equal(t, logger.WarnLevel, cfg.Level())
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, "opd.env")
	require.NoError(t, os.WriteFile(env, []byte("OPDCTL_API_URL=https://opd.example.com/api/v1/\nOPDCTL_POLL_INTERVAL=15s\n"), 0o600))
	t.Setenv("OPDCTL_PRINT_DIR", dir)
	t.Setenv("OPDCTL_SESSION_FILE", filepath.Join(dir, "session.json"))
	// godotenv never overrides variables already set.
	t.Setenv("OPDCTL_LOG_LEVEL", "debug")
	t.Cleanup(func() {
		os.Unsetenv("OPDCTL_API_URL")
		os.Unsetenv("OPDCTL_POLL_INTERVAL")
	})

	cfg, err := Load(env)
	require.NoError(t, err)
	assert.Equal(t, "https://opd.example.com/api/v1", cfg.APIURL)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Equal(t, dir, cfg.PrintDir)
	assert.Equal(t, logger.DebugLevel, cfg.Level())
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("OPDCTL_API_URL", "localhost:8080")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)

	t.Setenv("OPDCTL_API_URL", "http://localhost:8080")
	t.Setenv("OPDCTL_POLL_INTERVAL", "100ms")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)

	t.Setenv("OPDCTL_POLL_INTERVAL", "soon")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
