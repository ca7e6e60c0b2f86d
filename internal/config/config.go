// Package config provides configuration management for issueflow with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (ISSUEFLOW_* prefix)
//  3. Project config (.issueflow/config.yaml)
//  4. Global config (~/.issueflow/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure for issueflow.
type Config struct {
	// Store selects where issues, solutions and queues are persisted.
	Store StoreConfig `yaml:"store" mapstructure:"store"`

	// Queue contains queue building and failure handling settings.
	Queue QueueConfig `yaml:"queue" mapstructure:"queue"`

	// Log contains settings for the rotating CLI log file.
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// StoreConfig contains record store settings.
type StoreConfig struct {
	// Dir is the store root. Relative paths resolve against the working directory.
	// Default: ".issueflow"
	Dir string `yaml:"dir" mapstructure:"dir"`

	// Backend is "file" (JSON/JSONL files) or "sqlite".
	// Default: "file"
	Backend string `yaml:"backend" mapstructure:"backend"`

	// LockTimeout bounds how long an operation waits for a contended record.
	// Default: 5s
	LockTimeout time.Duration `yaml:"lock_timeout" mapstructure:"lock_timeout"`
}

// QueueConfig contains queue settings.
type QueueConfig struct {
	// FailurePolicy decides what an item failure does to its queue.
	// "queue" marks the whole queue failed until a retry; "item" leaves the
	// queue active so unrelated items keep flowing.
	// Default: "queue"
	FailurePolicy string `yaml:"failure_policy" mapstructure:"failure_policy"`

	// DefaultGroup is the execution group given to new items.
	// Default: "P1"
	DefaultGroup string `yaml:"default_group" mapstructure:"default_group"`

	// DefaultSemanticPriority is the tie-breaker given to new items, in [0,1].
	// Default: 0.5
	DefaultSemanticPriority float64 `yaml:"default_semantic_priority" mapstructure:"default_semantic_priority"`
}

// LogConfig contains log file rotation settings.
type LogConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}
