package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.Logger.Verbosity)
	assert.Empty(t, cfg.Device.Backends)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vecadd.yaml")
	contents := `
device:
  backends:
    - '{"mode": "Serial"}'
logger:
  verbosity: debug
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{`{"mode": "Serial"}`}, cfg.Device.Backends)
	assert.Equal(t, "debug", cfg.Logger.Verbosity)
}

func TestLoad_DefaultsPreserved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vecadd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device: {}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logger.Verbosity, "unset fields keep defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device: [not: a, map\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
