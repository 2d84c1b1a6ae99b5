package urlcanon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInScope_StrictRejectsSibling(t *testing.T) {
	opts := DefaultOptions()
	seed, err := Canonicalize("https://example.com/api", opts)
	require.NoError(t, err)
	sibling, err := Canonicalize("https://example.com/api-docs", opts)
	require.NoError(t, err)
	child, err := Canonicalize("https://example.com/api/v1", opts)
	require.NoError(t, err)

	assert.False(t, InScope(sibling, seed, MatchStrict))
	assert.True(t, InScope(child, seed, MatchStrict))
	assert.True(t, InScope(seed, seed, MatchStrict))
}

func TestInScope_LooseAllowsSibling(t *testing.T) {
	opts := DefaultOptions()
	seed, err := Canonicalize("https://example.com/api", opts)
	require.NoError(t, err)
	sibling, err := Canonicalize("https://example.com/api-docs", opts)
	require.NoError(t, err)

	assert.True(t, InScope(sibling, seed, MatchLoose))
}

func TestInScope_HostMismatch(t *testing.T) {
	opts := DefaultOptions()
	seed, err := Canonicalize("https://example.com/docs", opts)
	require.NoError(t, err)
	other, err := Canonicalize("https://other.com/docs", opts)
	require.NoError(t, err)

	assert.False(t, InScope(other, seed, MatchStrict))
}

func TestInScope_NoClosureBeyondProperExtension(t *testing.T) {
	// P7: inScope(u,s) and inScope(v,u) doesn't imply inScope(v,s) unless
	// v's path is a proper extension of s's path.
	opts := DefaultOptions()
	s, _ := Canonicalize("https://example.com/a", opts)
	u, _ := Canonicalize("https://example.com/a/b", opts)
	v, _ := Canonicalize("https://example.com/a/b/c", opts)

	require.True(t, InScope(u, s, MatchStrict))
	require.True(t, InScope(v, u, MatchStrict))
	assert.True(t, InScope(v, s, MatchStrict), "v's path is a proper extension of s's path here")
}
