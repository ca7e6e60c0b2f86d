package testutil

import "testing"

func TestAssertGoldenJSON(t *testing.T) {
	AssertGoldenJSON(t, "sample", map[string]any{
		"queue_id": "QUE-20260101120000",
		"ready":    []string{"S-1"},
	})
}
