package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/issueflow/internal/config"
	"github.com/mrz1836/issueflow/internal/tui"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect issueflow configuration",
	}
	cmd.AddCommand(newConfigShowCmd(a))
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		Long: `Display the effective configuration with source annotations.

Shows each value and where it comes from:
  - default: Built-in default value
  - global:  From ~/.issueflow/config.yaml (ISSUEFLOW_HOME moves it)
  - project: From .issueflow/config.yaml
  - env:     From an ISSUEFLOW_* environment variable
  - flag:    From a command-line flag

Examples:
  issueflow config show
  issueflow config show --output json`,
		Args: cobra.NoArgs,
		RunE: a.withOutput(func(cmd *cobra.Command, out tui.Output, _ []string) error {
			annotated := buildAnnotatedConfig(a.cfg, a.flags)
			if a.flags.Output == OutputJSON {
				return out.JSON(annotated)
			}
			writeAnnotatedConfig(cmd.OutOrStdout(), annotated)
			return nil
		}),
	}
}

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates the value is a built-in default.
	SourceDefault ConfigSource = "default"
	// SourceGlobal indicates the value came from global config.
	SourceGlobal ConfigSource = "global"
	// SourceProject indicates the value came from project config.
	SourceProject ConfigSource = "project"
	// SourceEnv indicates the value came from an environment variable.
	SourceEnv ConfigSource = "env"
	// SourceFlag indicates the value came from a command-line flag.
	SourceFlag ConfigSource = "flag"
)

// ConfigValueWithSource represents a configuration value with its source.
type ConfigValueWithSource struct {
	Value  any          `json:"value" yaml:"value"`
	Source ConfigSource `json:"source" yaml:"source"`
}

// AnnotatedConfig represents configuration with source annotations.
type AnnotatedConfig struct {
	Store map[string]ConfigValueWithSource `json:"store" yaml:"store"`
	Queue map[string]ConfigValueWithSource `json:"queue" yaml:"queue"`
	Log   map[string]ConfigValueWithSource `json:"log" yaml:"log"`
}

// configValues holds flattened "section.key" entries of one config file.
type configValues map[string]any

// buildAnnotatedConfig pairs each effective value with its source.
func buildAnnotatedConfig(cfg *config.Config, flags *GlobalFlags) *AnnotatedConfig {
	global := loadGlobalConfigOnly()
	project := loadConfigFile(config.ProjectConfigPath())

	source := func(key string, value any) ConfigValueWithSource {
		return determineSource(key, value, global, project)
	}

	storeDir := source("store.dir", cfg.Store.Dir)
	if flags != nil && flags.Dir != "" {
		storeDir.Source = SourceFlag
	}

	return &AnnotatedConfig{
		Store: map[string]ConfigValueWithSource{
			"dir":          storeDir,
			"backend":      source("store.backend", cfg.Store.Backend),
			"lock_timeout": source("store.lock_timeout", cfg.Store.LockTimeout.String()),
		},
		Queue: map[string]ConfigValueWithSource{
			"failure_policy":            source("queue.failure_policy", cfg.Queue.FailurePolicy),
			"default_group":             source("queue.default_group", cfg.Queue.DefaultGroup),
			"default_semantic_priority": source("queue.default_semantic_priority", cfg.Queue.DefaultSemanticPriority),
		},
		Log: map[string]ConfigValueWithSource{
			"max_size_mb":  source("log.max_size_mb", cfg.Log.MaxSizeMB),
			"max_backups":  source("log.max_backups", cfg.Log.MaxBackups),
			"max_age_days": source("log.max_age_days", cfg.Log.MaxAgeDays),
			"compress":     source("log.compress", cfg.Log.Compress),
		},
	}
}

// loadGlobalConfigOnly loads only the global config for source comparison.
func loadGlobalConfigOnly() configValues {
	path, err := config.GlobalConfigPath()
	if err != nil {
		return nil
	}
	return loadConfigFile(path)
}

// loadConfigFile reads a YAML config file into flattened keys. A missing or
// unreadable file yields nil.
func loadConfigFile(path string) configValues {
	data, err := os.ReadFile(path) //nolint:gosec // Config file path
	if err != nil {
		return nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil
	}

	result := make(configValues)
	flatten("", raw, result)
	return result
}

func flatten(prefix string, in map[string]any, out configValues) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// determineSource determines where a configuration value came from.
func determineSource(key string, value any, global, project configValues) ConfigValueWithSource {
	envKey := "ISSUEFLOW_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if envVal := os.Getenv(envKey); envVal != "" {
		return ConfigValueWithSource{Value: value, Source: SourceEnv}
	}
	if _, ok := project[key]; ok {
		return ConfigValueWithSource{Value: value, Source: SourceProject}
	}
	if _, ok := global[key]; ok {
		return ConfigValueWithSource{Value: value, Source: SourceGlobal}
	}
	return ConfigValueWithSource{Value: value, Source: SourceDefault}
}

// configShowStyles contains styling for the config show command output.
type configShowStyles struct {
	header  lipgloss.Style
	section lipgloss.Style
	key     lipgloss.Style
	sources map[ConfigSource]lipgloss.Style
	dim     lipgloss.Style
}

func newConfigShowStyles() *configShowStyles {
	return &configShowStyles{
		header:  lipgloss.NewStyle().Bold(true).Foreground(tui.ColorPrimary),
		section: lipgloss.NewStyle().Bold(true),
		key:     lipgloss.NewStyle().Foreground(tui.ColorPrimary),
		sources: map[ConfigSource]lipgloss.Style{
			SourceFlag:    lipgloss.NewStyle().Foreground(tui.ColorError),
			SourceEnv:     lipgloss.NewStyle().Foreground(tui.ColorError),
			SourceProject: lipgloss.NewStyle().Foreground(tui.ColorWarning),
			SourceGlobal:  lipgloss.NewStyle().Foreground(tui.ColorSuccess),
			SourceDefault: lipgloss.NewStyle().Foreground(tui.ColorMuted),
		},
		dim: lipgloss.NewStyle().Foreground(tui.ColorMuted),
	}
}

// configKeyOrder fixes the display order of each section.
//
//nolint:gochecknoglobals // Display order table
var configKeyOrder = map[string][]string{
	"store": {"dir", "backend", "lock_timeout"},
	"queue": {"failure_policy", "default_group", "default_semantic_priority"},
	"log":   {"max_size_mb", "max_backups", "max_age_days", "compress"},
}

// writeAnnotatedConfig prints the configuration as YAML-like text with a
// source comment on every value.
func writeAnnotatedConfig(w io.Writer, annotated *AnnotatedConfig) {
	styles := newConfigShowStyles()

	_, _ = fmt.Fprintln(w, styles.header.Render("Effective issueflow configuration"))
	_, _ = fmt.Fprintln(w, styles.dim.Render("Sources: flag > env > project > global > default"))
	_, _ = fmt.Fprintln(w)

	sections := []struct {
		name   string
		values map[string]ConfigValueWithSource
	}{
		{"store", annotated.Store},
		{"queue", annotated.Queue},
		{"log", annotated.Log},
	}
	for _, sec := range sections {
		_, _ = fmt.Fprintln(w, styles.section.Render(sec.name+":"))
		for _, key := range configKeyOrder[sec.name] {
			vs := sec.values[key]
			_, _ = fmt.Fprintf(w, "  %s: %v  %s\n",
				styles.key.Render(key), vs.Value, styles.sources[vs.Source].Render("# "+string(vs.Source)))
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintln(w, styles.dim.Render("Configuration files:"))
	if globalPath, err := config.GlobalConfigPath(); err == nil {
		_, _ = fmt.Fprintln(w, styles.dim.Render("  Global:  "+describePath(globalPath)))
	}
	_, _ = fmt.Fprintln(w, styles.dim.Render("  Project: "+describePath(config.ProjectConfigPath())))
	if logPath, err := LogFilePath(); err == nil {
		_, _ = fmt.Fprintln(w, styles.dim.Render("  Log:     "+logPath))
	}
}

func describePath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path + " (not found)"
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
