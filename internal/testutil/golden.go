package testutil

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// AssertGoldenJSON marshals v as indented JSON and compares it against
// testdata/golden/<name>.golden in the calling package.
//
// To regenerate golden files, run:
//
//	go test ./internal/<pkg> -update
func AssertGoldenJSON(t *testing.T, name string, v any) {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, append(data, '\n'))
}
