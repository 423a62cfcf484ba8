package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	got, err := Generate("child")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got, "child-"))

	// NanoID default length is 21 characters after the prefix.
	require.Len(t, got, len("child-")+21)
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		got, err := Generate("inv")
		require.NoError(t, err)
		require.False(t, seen[got], "duplicate ID generated: %s", got)
		seen[got] = true
	}
}

func TestMustGenerate(t *testing.T) {
	got := MustGenerate("feed")
	require.True(t, strings.HasPrefix(got, "feed-"))
}
