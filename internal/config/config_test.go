package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/issueflow/internal/constants"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".issueflow", cfg.Store.Dir)
	assert.Equal(t, constants.StoreBackendFile, cfg.Store.Backend)
	assert.Equal(t, constants.LockTimeout, cfg.Store.LockTimeout)
	assert.Equal(t, constants.FailurePolicyQueue, cfg.Queue.FailurePolicy)
	assert.Equal(t, "P1", cfg.Queue.DefaultGroup)
	assert.InDelta(t, 0.5, cfg.Queue.DefaultSemanticPriority, 0)
	require.NoError(t, Validate(cfg), "defaults must validate")
}

func TestConfig_YAMLTags(t *testing.T) {
	data, err := yaml.Marshal(DefaultConfig())
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "store:")
	assert.Contains(t, out, "lock_timeout:")
	assert.Contains(t, out, "failure_policy: queue")
	assert.Contains(t, out, "default_semantic_priority: 0.5")
}
