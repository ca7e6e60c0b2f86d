package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrz1836/issueflow/internal/constants"
	"github.com/mrz1836/issueflow/internal/errors"
)

// GlobalConfigDir returns the global issueflow directory, ~/.issueflow.
// ISSUEFLOW_HOME overrides it.
func GlobalConfigDir() (string, error) {
	if dir := os.Getenv("ISSUEFLOW_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.FlowHome), nil
}

// ProjectConfigDir returns the relative path to the project configuration directory.
func ProjectConfigDir() string {
	return constants.FlowHome
}

// GlobalConfigPath returns the full path to the global configuration file.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", fmt.Errorf("get global config path: %w", err)
	}
	return filepath.Join(dir, constants.GlobalConfigName), nil
}

// ProjectConfigPath returns the relative path to the project configuration file.
func ProjectConfigPath() string {
	return filepath.Join(ProjectConfigDir(), constants.ProjectConfigName)
}
