package cli

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/issueflow/internal/errors"
)

func TestAddGlobalFlags(t *testing.T) {
	t.Parallel()

	flags := &GlobalFlags{}
	cmd := &cobra.Command{Use: "test"}
	AddGlobalFlags(cmd, flags)

	assert.Equal(t, OutputText, flags.Output)
	assert.False(t, flags.Verbose)
	assert.False(t, flags.Quiet)
	assert.Empty(t, flags.Dir)

	for name, short := range map[string]string{"output": "o", "verbose": "v", "quiet": "q", "dir": ""} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, short, f.Shorthand, name)
	}
}

func TestAddGlobalFlags_ParsesCorrectly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		args            []string
		expectedOutput  string
		expectedVerbose bool
		expectedQuiet   bool
		expectedDir     string
	}{
		{name: "default values", args: []string{}, expectedOutput: OutputText},
		{name: "output json", args: []string{"--output", "json"}, expectedOutput: OutputJSON},
		{name: "output shorthand", args: []string{"-o", "json"}, expectedOutput: OutputJSON},
		{name: "verbose shorthand", args: []string{"-v"}, expectedOutput: OutputText, expectedVerbose: true},
		{name: "quiet flag", args: []string{"--quiet"}, expectedOutput: OutputText, expectedQuiet: true},
		{name: "store dir", args: []string{"--dir", "/tmp/flow"}, expectedOutput: OutputText, expectedDir: "/tmp/flow"},
		{name: "combined flags", args: []string{"-o", "json", "-v", "--dir", "x"}, expectedOutput: OutputJSON, expectedVerbose: true, expectedDir: "x"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			flags := &GlobalFlags{}
			cmd := &cobra.Command{
				Use:  "test",
				RunE: func(_ *cobra.Command, _ []string) error { return nil },
			}
			AddGlobalFlags(cmd, flags)

			cmd.SetArgs(tc.args)
			require.NoError(t, cmd.Execute())

			assert.Equal(t, tc.expectedOutput, flags.Output)
			assert.Equal(t, tc.expectedVerbose, flags.Verbose)
			assert.Equal(t, tc.expectedQuiet, flags.Quiet)
			assert.Equal(t, tc.expectedDir, flags.Dir)
		})
	}
}

func TestAddGlobalFlags_VerboseAndQuietExclusive(t *testing.T) {
	t.Parallel()

	flags := &GlobalFlags{}
	cmd := &cobra.Command{
		Use:  "test",
		RunE: func(_ *cobra.Command, _ []string) error { return nil },
	}
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	AddGlobalFlags(cmd, flags)

	cmd.SetArgs([]string{"-v", "-q"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestBindGlobalFlags(t *testing.T) {
	t.Parallel()

	flags := &GlobalFlags{}
	v := viper.New()
	cmd := &cobra.Command{Use: "test"}
	AddGlobalFlags(cmd, flags)

	require.NoError(t, BindGlobalFlags(v, cmd))
	require.NoError(t, cmd.PersistentFlags().Set("output", "json"))

	assert.Equal(t, "json", v.GetString("output"))
}

func TestApplyEnvDefaults(t *testing.T) {
	t.Setenv("ISSUEFLOW_OUTPUT", "json")
	t.Setenv("ISSUEFLOW_VERBOSE", "true")

	t.Run("env fills unset flags", func(t *testing.T) {
		flags := &GlobalFlags{}
		v := viper.New()
		cmd := &cobra.Command{Use: "test"}
		AddGlobalFlags(cmd, flags)
		require.NoError(t, BindGlobalFlags(v, cmd))

		applyEnvDefaults(v, cmd, flags)

		assert.Equal(t, OutputJSON, flags.Output)
		assert.True(t, flags.Verbose)
		assert.False(t, flags.Quiet)
	})

	t.Run("explicit flags win", func(t *testing.T) {
		flags := &GlobalFlags{}
		v := viper.New()
		cmd := &cobra.Command{Use: "test"}
		AddGlobalFlags(cmd, flags)
		require.NoError(t, BindGlobalFlags(v, cmd))
		require.NoError(t, cmd.PersistentFlags().Set("output", "text"))
		require.NoError(t, cmd.PersistentFlags().Set("quiet", "true"))

		applyEnvDefaults(v, cmd, flags)

		assert.Equal(t, OutputText, flags.Output)
		assert.False(t, flags.Verbose)
		assert.True(t, flags.Quiet)
	})
}

func TestIsValidOutputFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{OutputText, OutputJSON}, ValidOutputFormats())

	tests := []struct {
		format   string
		expected bool
	}{
		{OutputText, true},
		{OutputJSON, true},
		{"xml", false},
		{"", false},
		{"JSON", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, IsValidOutputFormat(tc.format), tc.format)
	}
}

func TestIsValidationError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"invalid status", fmt.Errorf("%w: %q", errors.ErrInvalidIssueStatus, "done"), true},
		{"no bound solution", fmt.Errorf("issue ISS-1: %w", errors.ErrNoBoundSolution), true},
		{"bad payload", errors.ErrInvalidResultPayload, true},
		{"ambiguous item", errors.ErrAmbiguousItem, true},
		{"cycle", errors.ErrDependencyCycle, true},
		{"issue not found", fmt.Errorf("%w: ISS-9", errors.ErrIssueNotFound), false},
		{"no active queue", errors.ErrNoActiveQueue, false},
		{"lock timeout", errors.ErrLockTimeout, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, isValidationError(tc.err))
		})
	}
}

//nolint:err113 // Test cases intentionally use dynamic errors to simulate Cobra error messages
func TestExitCodeForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{"nil error returns success", nil, ExitSuccess},
		{"exit code 2 wrapper", errors.NewExitCode2Error(errors.ErrValueOutOfRange), ExitInvalidInput},
		{"wrapped exit code 2 wrapper", fmt.Errorf("outer: %w", errors.NewExitCode2Error(stderrors.New("bad"))), ExitInvalidInput},
		{"ErrInvalidOutputFormat", fmt.Errorf("validation failed: %w", errors.ErrInvalidOutputFormat), ExitInvalidInput},
		{"unknown flag", stderrors.New("unknown flag: --foo"), ExitInvalidInput},
		{"flag needs argument", stderrors.New("flag needs an argument: --output"), ExitInvalidInput},
		{"required flag", stderrors.New(`required flag(s) "title" not set`), ExitInvalidInput},
		{"unknown command", stderrors.New(`unknown command "foo" for "issueflow"`), ExitInvalidInput},
		{"wrong arg count", stderrors.New("accepts 1 arg(s), received 0"), ExitInvalidInput},
		{"not found", fmt.Errorf("%w: ISS-1", errors.ErrIssueNotFound), ExitError},
		{"generic error", stderrors.New("something went wrong"), ExitError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expectedCode, ExitCodeForError(tc.err))
		})
	}
}
