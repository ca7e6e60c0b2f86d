package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/issueflow/internal/constants"
	"github.com/mrz1836/issueflow/internal/errors"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ReturnsDefaultsWhenNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ISSUEFLOW_HOME", t.TempDir())

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ReadsProjectConfig(t *testing.T) {
	project := t.TempDir()
	t.Chdir(project)
	t.Setenv("ISSUEFLOW_HOME", t.TempDir())

	require.NoError(t, os.MkdirAll(filepath.Join(project, constants.FlowHome), 0o750))
	writeConfig(t, filepath.Join(project, constants.FlowHome), "queue:\n  failure_policy: item\n")

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, constants.FailurePolicyItem, cfg.Queue.FailurePolicy)
}

func TestLoadFromPaths_ProjectConfigOverridesGlobal(t *testing.T) {
	global := writeConfig(t, t.TempDir(), `
store:
  backend: sqlite
  lock_timeout: 10s
queue:
  default_group: P2
`)
	project := writeConfig(t, t.TempDir(), `
store:
  lock_timeout: 2s
`)

	cfg, err := LoadFromPaths(context.Background(), project, global)
	require.NoError(t, err)

	assert.Equal(t, constants.StoreBackendSQLite, cfg.Store.Backend, "global value survives")
	assert.Equal(t, 2*time.Second, cfg.Store.LockTimeout, "project value wins")
	assert.Equal(t, "P2", cfg.Queue.DefaultGroup)
	assert.Equal(t, constants.FailurePolicyQueue, cfg.Queue.FailurePolicy, "default fills the rest")
}

func TestLoadFromPaths_EnvOverridesFiles(t *testing.T) {
	t.Setenv("ISSUEFLOW_STORE_BACKEND", "sqlite")
	t.Setenv("ISSUEFLOW_QUEUE_FAILURE_POLICY", "item")

	project := writeConfig(t, t.TempDir(), "store:\n  backend: file\n")

	cfg, err := LoadFromPaths(context.Background(), project, "")
	require.NoError(t, err)
	assert.Equal(t, constants.StoreBackendSQLite, cfg.Store.Backend)
	assert.Equal(t, constants.FailurePolicyItem, cfg.Queue.FailurePolicy)
}

func TestLoadFromPaths_MissingFilesUseDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFromPaths(context.Background(), filepath.Join(dir, "nope.yaml"), filepath.Join(dir, "nada.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromPaths_InvalidValues(t *testing.T) {
	project := writeConfig(t, t.TempDir(), "store:\n  backend: redis\n")

	_, err := LoadFromPaths(context.Background(), project, "")
	require.ErrorIs(t, err, errors.ErrConfigInvalidStore)
}

func TestLoadWithOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ISSUEFLOW_HOME", t.TempDir())

	cfg, err := LoadWithOverrides(context.Background(), &Config{
		Store: StoreConfig{Dir: "/tmp/elsewhere", LockTimeout: time.Second},
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere", cfg.Store.Dir)
	assert.Equal(t, time.Second, cfg.Store.LockTimeout)
	assert.Equal(t, constants.StoreBackendFile, cfg.Store.Backend, "zero overrides are ignored")

	_, err = LoadWithOverrides(context.Background(), &Config{Queue: QueueConfig{FailurePolicy: "never"}})
	require.ErrorIs(t, err, errors.ErrConfigInvalidQueue)
}
