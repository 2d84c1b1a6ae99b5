package urlcanon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_StabilityCases(t *testing.T) {
	opts := DefaultOptions()
	cases := []struct {
		name string
		a    string
		b    string
	}{
		{"scheme case", "HTTP://Example.com/docs", "http://example.com/docs"},
		{"www prefix", "https://www.example.com/docs", "https://example.com/docs"},
		{"default port http", "http://example.com:80/docs", "http://example.com/docs"},
		{"default port https", "https://example.com:443/docs", "https://example.com/docs"},
		{"trailing slash", "https://example.com/docs/", "https://example.com/docs"},
		{"empty query", "https://example.com/docs?", "https://example.com/docs"},
		{"fragment", "https://example.com/docs#section", "https://example.com/docs"},
		{"query key order", "https://example.com/docs?b=2&a=1", "https://example.com/docs?a=1&b=2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Canonicalize(tc.a, opts)
			require.NoError(t, err)
			want, err := Canonicalize(tc.b, opts)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	opts := DefaultOptions()
	inputs := []string{
		"HTTPS://WWW.Example.com:443/a/b/../c/?z=1&a=2#frag",
		"http://example.com//a//b/",
		"https://example.com/",
	}
	for _, in := range inputs {
		once, err := Canonicalize(in, opts)
		require.NoError(t, err)
		twice, err := Canonicalize(once, opts)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestCanonicalize_RejectsBadScheme(t *testing.T) {
	_, err := Canonicalize("ftp://example.com/file", DefaultOptions())
	require.Error(t, err)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, FailureOutOfScheme, cerr.Kind)
}

func TestCanonicalize_RejectsInvalid(t *testing.T) {
	_, err := Canonicalize("not a url with spaces and no scheme", DefaultOptions())
	require.Error(t, err)
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, FailureInvalid, cerr.Kind)
}

func TestCanonicalize_DotSegments(t *testing.T) {
	got, err := Canonicalize("https://example.com/a/b/../c", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a/c", got)
}

func TestCanonicalize_RootPathPreserved(t *testing.T) {
	got, err := Canonicalize("https://example.com/", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", got)
}

func TestCanonicalize_UnstableQueryPreservesOrder(t *testing.T) {
	opts := Options{StableQuery: false}
	got, err := Canonicalize("https://example.com/docs?b=2&a=1", opts)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/docs?b=2&a=1", got)
}
