package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FLOW_ADDR", "")
	t.Setenv("FLOW_HISTORY_SIZE", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, 25, cfg.Editor.HistorySize)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, `
version: 1
server:
  addr: ":8080"
database:
  url: postgres://file
editor:
  history_size: 10
`)
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("FLOW_ADDR", "")
	t.Setenv("FLOW_HISTORY_SIZE", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "postgres://env", cfg.Database.URL)
	assert.Equal(t, 10, cfg.Editor.HistorySize)
}

func TestLoadRejects(t *testing.T) {
	t.Setenv("FLOW_HISTORY_SIZE", "")

	_, err := Load(writeFile(t, "version: 2\n"))
	assert.ErrorContains(t, err, "unsupported version")

	_, err = Load(writeFile(t, "version: [\n"))
	assert.Error(t, err)

	t.Setenv("FLOW_HISTORY_SIZE", "many")
	_, err = Load("")
	assert.ErrorContains(t, err, "FLOW_HISTORY_SIZE")
}
