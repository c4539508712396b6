package lexical

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathSimilarity_Identity(t *testing.T) {
	require.Equal(t, 1.0, PathSimilarity("02084071-n", "02084071-n"))
}

func TestPathSimilarity_ParentChild(t *testing.T) {
	// dog -> puppy is one hypernym edge away.
	sim := PathSimilarity("02084071-n", "02085272-n")
	require.InDelta(t, 0.5, sim, 1e-9)
}

func TestPathSimilarity_UnknownSynset(t *testing.T) {
	require.Equal(t, 0.0, PathSimilarity("nope", "02084071-n"))
}

func TestPathSimilarity_UnrelatedTrees(t *testing.T) {
	sim := PathSimilarity("02084071-n", "02958343-n") // dog vs car
	require.Equal(t, 0.0, sim)
}
