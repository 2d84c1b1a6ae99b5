package discovery

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractLinksFallback_ResolvesRelativeAndSkipsNonNav(t *testing.T) {
	base, err := url.Parse("https://example.com/docs/")
	require.NoError(t, err)

	body := `<html><body>
		<a href="/docs/a">A</a>
		<a href="b">B</a>
		<area href="https://example.com/docs/c">C</area>
		<a href="mailto:x@example.com">mail</a>
		<a href="#top">frag</a>
	</body></html>`

	links, err := ExtractLinksFallback(strings.NewReader(body), base)
	require.NoError(t, err)
	require.Len(t, links, 3)
	require.Contains(t, links, "https://example.com/docs/a")
	require.Contains(t, links, "https://example.com/docs/b")
	require.Contains(t, links, "https://example.com/docs/c")
}
