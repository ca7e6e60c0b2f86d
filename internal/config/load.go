package config

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/issueflow/internal/errors"
)

// newViperInstance creates a Viper instance with defaults, the ISSUEFLOW_
// environment prefix and a key replacer mapping store.dir to ISSUEFLOW_STORE_DIR.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ISSUEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

func unmarshalAndValidate(ctx context.Context, v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	zerolog.Ctx(ctx).Debug().
		Str("component", "config").
		Str("store.dir", cfg.Store.Dir).
		Str("store.backend", cfg.Store.Backend).
		Dur("store.lock_timeout", cfg.Store.LockTimeout).
		Str("queue.failure_policy", cfg.Queue.FailurePolicy).
		Msg("configuration loaded")

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from the global config, the project config in the
// working directory, and ISSUEFLOW_* environment variables. Missing config
// files are not an error.
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	if path, err := GlobalConfigPath(); err == nil && fileExists(path) {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrap(err, "failed to read global config file")
		}
	}

	if path := ProjectConfigPath(); fileExists(path) {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrap(err, "failed to read project config file")
		}
	}

	return unmarshalAndValidate(ctx, v)
}

// LoadWithOverrides loads configuration and applies CLI flag overrides.
// Only non-zero override values are applied.
func LoadWithOverrides(ctx context.Context, overrides *Config) (*Config, error) {
	cfg, err := Load(ctx)
	if err != nil {
		return nil, err
	}
	if overrides != nil {
		applyOverrides(cfg, overrides)
	}
	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}
	return cfg, nil
}

// LoadFromPaths loads configuration from specific files, for tests.
// projectConfigPath merges over globalConfigPath; either may be empty.
func LoadFromPaths(ctx context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(ctx, v)
}

// setDefaults mirrors DefaultConfig. Keys must match the yaml tags.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.lock_timeout", d.Store.LockTimeout.String())

	v.SetDefault("queue.failure_policy", d.Queue.FailurePolicy)
	v.SetDefault("queue.default_group", d.Queue.DefaultGroup)
	v.SetDefault("queue.default_semantic_priority", d.Queue.DefaultSemanticPriority)

	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)
}

// applyOverrides merges non-zero override values into cfg.
func applyOverrides(cfg, overrides *Config) {
	if overrides.Store.Dir != "" {
		cfg.Store.Dir = overrides.Store.Dir
	}
	if overrides.Store.Backend != "" {
		cfg.Store.Backend = overrides.Store.Backend
	}
	if overrides.Store.LockTimeout != 0 {
		cfg.Store.LockTimeout = overrides.Store.LockTimeout
	}
	if overrides.Queue.FailurePolicy != "" {
		cfg.Queue.FailurePolicy = overrides.Queue.FailurePolicy
	}
}

// viperDecoderOption configures mapstructure to decode durations from strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
