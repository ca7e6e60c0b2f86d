package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flowerrors "github.com/mrz1836/issueflow/internal/errors"
)

type testError struct {
	msg string
}

func (e testError) Error() string {
	return e.msg
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	allErrors := []error{
		flowerrors.ErrIssueNotFound,
		flowerrors.ErrInvalidIssueStatus,
		flowerrors.ErrNoBoundSolution,
		flowerrors.ErrSolutionNotFound,
		flowerrors.ErrQueueNotFound,
		flowerrors.ErrQueueItemNotFound,
		flowerrors.ErrAmbiguousItem,
		flowerrors.ErrNoFailedItems,
		flowerrors.ErrDependencyCycle,
		flowerrors.ErrRecordCorrupted,
		flowerrors.ErrLockTimeout,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i == j {
				require.ErrorIs(t, err1, err2)
			} else {
				assert.NotErrorIs(t, err1, err2, "%v should not match %v", err1, err2)
			}
		}
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, flowerrors.Wrap(nil, "ignored"))
		require.NoError(t, flowerrors.Wrapf(nil, "ignored %s", "x"))
	})

	t.Run("preserves chain through several levels", func(t *testing.T) {
		t.Parallel()
		wrapped := flowerrors.Wrap(flowerrors.Wrap(flowerrors.ErrQueueNotFound, "first"), "second")
		require.ErrorIs(t, wrapped, flowerrors.ErrQueueNotFound)
		assert.Equal(t, "second: first: queue not found", wrapped.Error())
	})

	t.Run("formats message", func(t *testing.T) {
		t.Parallel()
		wrapped := flowerrors.Wrapf(flowerrors.ErrIssueNotFound, "load issue %s attempt %d", "ISS-1", 2)
		assert.Equal(t, "load issue ISS-1 attempt 2: issue not found", wrapped.Error())
	})
}

func TestExitCode2Error(t *testing.T) {
	t.Parallel()

	base := fmt.Errorf("%w: bogus", flowerrors.ErrInvalidIssueStatus)
	err := flowerrors.NewExitCode2Error(base)

	assert.True(t, flowerrors.IsExitCode2Error(err))
	assert.True(t, flowerrors.IsExitCode2Error(fmt.Errorf("outer: %w", err)))
	assert.False(t, flowerrors.IsExitCode2Error(base))
	require.ErrorIs(t, err, flowerrors.ErrInvalidIssueStatus)
	assert.Equal(t, base.Error(), err.Error())
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"direct sentinel", flowerrors.ErrNoBoundSolution, "no bound solution"},
		{"wrapped sentinel", flowerrors.Wrap(flowerrors.ErrLockTimeout, "queue-QUE-1"), "holding the lock"},
		{"unknown error", testError{msg: "something odd"}, "something odd"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Contains(t, flowerrors.UserMessage(tc.err), tc.contains)
		})
	}

	assert.Empty(t, flowerrors.UserMessage(nil))
}

func TestActionable(t *testing.T) {
	t.Parallel()

	msg, action := flowerrors.Actionable(flowerrors.ErrAmbiguousItem)
	assert.Contains(t, msg, "more than one queue")
	assert.Contains(t, action, "--queue")

	msg, action = flowerrors.Actionable(flowerrors.ErrNoFailedItems)
	assert.NotEmpty(t, msg)
	assert.Empty(t, action)

	msg, action = flowerrors.Actionable(nil)
	assert.Empty(t, msg)
	assert.Empty(t, action)
}
