package config

import "github.com/mrz1836/issueflow/internal/constants"

// Log rotation defaults.
const (
	defaultLogMaxSizeMB  = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAgeDays = 28
)

// DefaultConfig returns a new Config with default values. These are the base
// layer that config files, environment variables and flags override.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Dir:         constants.FlowHome,
			Backend:     constants.StoreBackendFile,
			LockTimeout: constants.LockTimeout,
		},
		Queue: QueueConfig{
			FailurePolicy:           constants.FailurePolicyQueue,
			DefaultGroup:            constants.DefaultExecutionGroup,
			DefaultSemanticPriority: constants.DefaultSemanticPriority,
		},
		Log: LogConfig{
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
			Compress:   true,
		},
	}
}
