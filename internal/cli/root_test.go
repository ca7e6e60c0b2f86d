package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliResult captures one CLI invocation.
type cliResult struct {
	stdout string
	stderr string
	err    error
}

// isolate points the global home at a temp dir so config and log files stay
// inside the test. It returns a fresh store directory.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("ISSUEFLOW_HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
	return t.TempDir()
}

// runCLI executes the root command against the store in dir.
func runCLI(t *testing.T, dir string, args ...string) cliResult {
	t.Helper()

	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, BuildInfo{Version: "test"})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--dir", dir}, args...))

	err := cmd.ExecuteContext(context.Background())
	CloseLogFile()
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// runJSON executes a command with JSON output and decodes stdout into v.
func runJSON(t *testing.T, dir string, v any, args ...string) {
	t.Helper()
	res := runCLI(t, dir, append([]string{"--output", "json"}, args...)...)
	require.NoError(t, res.err, "stdout: %s\nstderr: %s", res.stdout, res.stderr)
	require.NoError(t, json.Unmarshal([]byte(res.stdout), v), res.stdout)
}

func TestRootCmd_Help(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd(&GlobalFlags{}, BuildInfo{Version: "test"})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, want := range []string{"issueflow", "issue", "solution", "queue", "config", "--output", "--verbose", "--quiet", "--dir", "--version"} {
		assert.Contains(t, output, want)
	}
}

func TestRootCmd_Version(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd(&GlobalFlags{}, BuildInfo{Version: "1.0.0", Commit: "abc1234", Date: "2026-01-01"})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "1.0.0 (commit: abc1234, built: 2026-01-01)")
}

func TestFormatVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		info     BuildInfo
		expected string
	}{
		{"all fields set", BuildInfo{Version: "1.0.0", Commit: "abc123", Date: "2025-01-01"}, "1.0.0 (commit: abc123, built: 2025-01-01)"},
		{"empty info uses defaults", BuildInfo{}, "dev (commit: none, built: unknown)"},
		{"partial info fills defaults", BuildInfo{Version: "2.0.0"}, "2.0.0 (commit: none, built: unknown)"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, formatVersion(tc.info))
		})
	}
}

func TestRootCmd_OutputFlag(t *testing.T) {
	dir := isolate(t)

	tests := []struct {
		name     string
		output   string
		exitCode int
	}{
		{"text output", OutputText, ExitSuccess},
		{"json output", OutputJSON, ExitSuccess},
		{"invalid output format", "xml", ExitInvalidInput},
		{"empty output format", "", ExitInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := runCLI(t, dir, "--output", tc.output, "queue", "list")
			assert.Equal(t, tc.exitCode, ExitCodeForError(res.err))
			assert.NotContains(t, res.stderr, "Usage:")
		})
	}
}

func TestRootCmd_VerboseQuietMutuallyExclusive(t *testing.T) {
	dir := isolate(t)

	res := runCLI(t, dir, "--verbose", "--quiet", "issue", "list")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "verbose")
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(res.err))
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	dir := isolate(t)
	t.Setenv("ISSUEFLOW_QUEUE_FAILURE_POLICY", "sometimes")

	res := runCLI(t, dir, "issue", "list")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "failure_policy")
}

func TestGetLogger(t *testing.T) {
	dir := isolate(t)

	res := runCLI(t, dir, "--verbose", "issue", "list")
	require.NoError(t, res.err)

	logger := GetLogger()
	assert.Equal(t, "debug", logger.GetLevel().String())
}
