package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestStore creates a Store backed by a temp directory.
// The database is closed automatically when the test ends.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(t.TempDir(), nil, NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}
