package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flowerrors "github.com/mrz1836/issueflow/internal/errors"
)

func TestNewOutput(t *testing.T) {
	var buf bytes.Buffer
	assert.IsType(t, &JSONOutput{}, NewOutput(&buf, FormatJSON))
	assert.IsType(t, &TTYOutput{}, NewOutput(&buf, FormatText))
	assert.IsType(t, &TTYOutput{}, NewOutput(&buf, ""))
}

func TestTTYOutput_Messages(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name  string
		write func(o *TTYOutput)
		want  string
	}{
		{"success", func(o *TTYOutput) { o.Success("queued S-1") }, "✓ queued S-1"},
		{"warning", func(o *TTYOutput) { o.Warning("queue is failed") }, "⚠ queue is failed"},
		{"info", func(o *TTYOutput) { o.Info("no ready item") }, "no ready item"},
		{"error", func(o *TTYOutput) { o.Error(flowerrors.ErrQueueNotFound) }, "✗ queue not found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			tc.write(NewTTYOutput(&buf))
			assert.Contains(t, buf.String(), tc.want)
		})
	}
}

func TestTTYOutput_ActionableError(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	NewTTYOutput(&buf).Error(NewActionableError("no active queue", "issueflow queue add <issue-id>").
		WithHint("There is no active queue."))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "✗ no active queue")
	assert.Contains(t, lines[1], "There is no active queue.")
	assert.Contains(t, lines[2], "▸ Try: issueflow queue add <issue-id>")
}

func TestActionableError_HintRepeatingMessageIsDropped(t *testing.T) {
	ae := NewActionableError("Operation canceled.", "").WithHint("Operation canceled.")
	assert.Empty(t, ae.Hint)

	ae = NewActionableError("queue not found: QUE-1", "issueflow queue list").
		WithHint("The queue was not found.").
		Wrap(flowerrors.ErrQueueNotFound)
	assert.Equal(t, "The queue was not found.", ae.Hint)
	require.ErrorIs(t, ae, flowerrors.ErrQueueNotFound)
	assert.Equal(t, "queue not found: QUE-1", ae.Error())
}

func TestTTYOutput_Table(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	NewTTYOutput(&buf).Table([]string{"ID", "STATUS"}, [][]string{
		{"ISS-1", "queued"},
		{"ISS-20260101120000", "planned"},
		{"ISS-3"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ID                  STATUS", lines[0])
	assert.Equal(t, "ISS-1               queued", lines[1])
	assert.Equal(t, "ISS-20260101120000  planned", lines[2])
	assert.Equal(t, "ISS-3", lines[3])

	buf.Reset()
	NewTTYOutput(&buf).Table(nil, [][]string{{"x"}})
	assert.Empty(t, buf.String())
}

func TestJSONOutput(t *testing.T) {
	t.Run("messages", func(t *testing.T) {
		var buf bytes.Buffer
		out := NewJSONOutput(&buf)
		out.Success("done")

		var msg map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &msg))
		assert.Equal(t, map[string]string{"type": "success", "message": "done"}, msg)
	})

	t.Run("error with cause and suggestion", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewActionableError("no active queue", "issueflow queue list").
			WithHint("There is no active queue.").
			Wrap(flowerrors.ErrNoActiveQueue)
		NewJSONOutput(&buf).Error(err)

		var got jsonError
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "error", got.Type)
		assert.Equal(t, "no active queue", got.Message)
		assert.Equal(t, "There is no active queue.", got.Hint)
		assert.Equal(t, "issueflow queue list", got.Suggestion)
		assert.Equal(t, flowerrors.ErrNoActiveQueue.Error(), got.Details)
	})

	t.Run("wrapped error details", func(t *testing.T) {
		var buf bytes.Buffer
		NewJSONOutput(&buf).Error(fmt.Errorf("load: %w", flowerrors.ErrRecordCorrupted))

		var got jsonError
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "record corrupted", got.Details)
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		NewJSONOutput(&buf).Table([]string{"id", "status"}, [][]string{{"S-1", "\x1b[32mpending\x1b[0m"}, {"S-2"}})

		var rows []map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
		assert.Equal(t, []map[string]string{
			{"id": "S-1", "status": "pending"},
			{"id": "S-2", "status": ""},
		}, rows)
	})

	t.Run("empty table is an empty array", func(t *testing.T) {
		var buf bytes.Buffer
		NewJSONOutput(&buf).Table(nil, nil)
		assert.JSONEq(t, `[]`, buf.String())
	})
}
