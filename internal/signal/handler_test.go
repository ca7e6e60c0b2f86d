package signal

import (
	"context"
	stderrors "errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/issueflow/internal/errors"
)

func TestShutdown_InterruptCancelsContext(t *testing.T) {
	s := Watch(context.Background())
	defer s.Stop()

	assert.NoError(t, s.Context().Err())
	assert.False(t, s.Interrupted())

	s.interrupt(syscall.SIGINT)

	require.ErrorIs(t, s.Context().Err(), context.Canceled)
	assert.True(t, s.Interrupted())
	cause := context.Cause(s.Context())
	assert.True(t, stderrors.Is(cause, errors.ErrInterrupted))
	assert.Contains(t, cause.Error(), "interrupt")
}

func TestShutdown_FirstSignalWins(t *testing.T) {
	s := Watch(context.Background())
	defer s.Stop()

	s.interrupt(syscall.SIGTERM)
	s.interrupt(syscall.SIGINT)

	assert.Contains(t, context.Cause(s.Context()).Error(), "terminated")
}

func TestShutdown_StopIsNotAnInterrupt(t *testing.T) {
	s := Watch(context.Background())

	s.Stop()
	s.Stop()

	require.ErrorIs(t, s.Context().Err(), context.Canceled)
	assert.False(t, s.Interrupted())
}

func TestShutdown_ParentCanceled(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	s := Watch(parent)
	defer s.Stop()

	cancel()

	<-s.Context().Done()
	assert.False(t, s.Interrupted())
}

func TestShutdown_StopAfterInterruptKeepsCause(t *testing.T) {
	s := Watch(context.Background())

	s.interrupt(syscall.SIGINT)
	s.Stop()

	assert.True(t, s.Interrupted())
}
