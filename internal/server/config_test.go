package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holdemd.hcl")
	content := `
server {
  port               = 9090
  log_level          = "debug"
  mode               = "test"
  directory_url      = "http://directory.internal:8000"
  reconnect_grace_ms = 30000
}

cache {
  host = "redis.internal"
  port = 6380
  db   = 2
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Server)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "test", cfg.Server.Mode)
	assert.Equal(t, "http://directory.internal:8000", cfg.Server.DirectoryURL)
	assert.Equal(t, 30000, cfg.Server.ReconnectGraceMs)
	assert.Zero(t, cfg.Server.ActionTimeoutSeconds)

	require.NotNil(t, cfg.Cache)
	assert.Equal(t, "redis.internal", cfg.Cache.Host)
	assert.Equal(t, 6380, cfg.Cache.Port)
	assert.Equal(t, 2, cfg.Cache.DB)
}

func TestLoadConfigFileMissing(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	assert.Nil(t, cfg.Server)
	assert.Nil(t, cfg.Cache)
}

func TestLoadConfigFileEmptyName(t *testing.T) {
	cfg, err := LoadConfigFile("")
	require.NoError(t, err)
	assert.Nil(t, cfg.Server)
}

func TestLoadConfigFileBadSyntax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.hcl")
	require.NoError(t, os.WriteFile(path, []byte("server {"), 0o644))

	_, err := LoadConfigFile(path)
	assert.Error(t, err)
}
