package config

import (
	"github.com/mrz1836/issueflow/internal/constants"
	"github.com/mrz1836/issueflow/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}
	if err := validateStoreConfig(&cfg.Store); err != nil {
		return err
	}
	return validateQueueConfig(&cfg.Queue)
}

func validateStoreConfig(cfg *StoreConfig) error {
	if cfg.Dir == "" {
		return errors.Wrap(errors.ErrConfigInvalidStore, "store.dir must not be empty")
	}
	switch cfg.Backend {
	case constants.StoreBackendFile, constants.StoreBackendSQLite:
	default:
		return errors.Wrapf(errors.ErrConfigInvalidStore,
			"store.backend must be %q or %q, got %q",
			constants.StoreBackendFile, constants.StoreBackendSQLite, cfg.Backend)
	}
	if cfg.LockTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidStore,
			"store.lock_timeout must be positive, got %s", cfg.LockTimeout)
	}
	return nil
}

func validateQueueConfig(cfg *QueueConfig) error {
	switch cfg.FailurePolicy {
	case constants.FailurePolicyQueue, constants.FailurePolicyItem:
	default:
		return errors.Wrapf(errors.ErrConfigInvalidQueue,
			"queue.failure_policy must be %q or %q, got %q",
			constants.FailurePolicyQueue, constants.FailurePolicyItem, cfg.FailurePolicy)
	}
	if cfg.DefaultGroup == "" {
		return errors.Wrap(errors.ErrConfigInvalidQueue, "queue.default_group must not be empty")
	}
	if cfg.DefaultSemanticPriority < 0 || cfg.DefaultSemanticPriority > 1 {
		return errors.Wrapf(errors.ErrConfigInvalidQueue,
			"queue.default_semantic_priority must be between 0 and 1, got %g", cfg.DefaultSemanticPriority)
	}
	return nil
}
