package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quarryhq/sitecapture/internal/urlcanon"
)

func TestHarvest_RejectsNonHTMLExtensions(t *testing.T) {
	links := []string{
		"https://example.com/docs/a",
		"https://example.com/file.pdf",
		"https://example.com/archive.zip",
		"https://example.com/image.PNG",
	}
	got := Harvest(links, urlcanon.DefaultOptions())
	assert.Len(t, got, 1)
	assert.Equal(t, "https://example.com/docs/a", got[0].CanonicalURL)
}

func TestHarvest_RejectsNonHTTPSchemes(t *testing.T) {
	links := []string{
		"mailto:foo@example.com",
		"javascript:void(0)",
		"ftp://example.com/file",
		"https://example.com/ok",
	}
	got := Harvest(links, urlcanon.DefaultOptions())
	assert.Len(t, got, 1)
}

func TestHarvest_DedupsWithinBatch(t *testing.T) {
	links := []string{
		"https://example.com/docs/a",
		"https://example.com/docs/a/",
		"https://WWW.example.com/docs/a",
	}
	got := Harvest(links, urlcanon.DefaultOptions())
	assert.Len(t, got, 1)
}
