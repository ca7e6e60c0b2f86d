// Package testutil provides helpers shared by issueflow's tests.
//
// It should only be imported by test files (*_test.go).
package testutil

import "errors"

// ErrMockPrompt simulates an interactive prompt that cannot run.
var ErrMockPrompt = errors.New("prompt unavailable")
