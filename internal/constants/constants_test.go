package constants

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockingConstants(t *testing.T) {
	t.Run("LockRetryInterval is well below LockTimeout", func(t *testing.T) {
		assert.Equal(t, 50*time.Millisecond, LockRetryInterval)
		assert.Equal(t, 5*time.Second, LockTimeout)
		assert.Less(t, LockRetryInterval, LockTimeout)
	})
}

func TestQueueDefaults(t *testing.T) {
	assert.Equal(t, "P1", DefaultExecutionGroup)
	assert.InDelta(t, 0.5, DefaultSemanticPriority, 0)
	assert.Equal(t, 3, DefaultIssuePriority)
	assert.LessOrEqual(t, MinIssuePriority, DefaultIssuePriority)
	assert.GreaterOrEqual(t, MaxIssuePriority, DefaultIssuePriority)
}

func TestIDTimestampLayout_IsFourteenDigits(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC).Format(IDTimestampLayout)
	assert.Equal(t, "20260304050607", ts)
	assert.Len(t, ts, 14)
}
