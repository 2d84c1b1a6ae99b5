package interfaces

import (
	"context"

	"github.com/quarryhq/sitecapture/internal/models"
)

// RenderOptions configures a single render call.
type RenderOptions struct {
	WaitBudgetMs             int
	ContentStabilityBudgetMs int
	UseIncognito             bool
}

// DiscoveredLink is one link harvested from the rendered DOM, in DOM order.
type DiscoveredLink struct {
	URL   string
	Depth int
}

// RenderResult is the full output of one render call.
type RenderResult struct {
	HTML         string // final rendered DOM serialization; may be empty on cache hits
	Text         string // visible text, whitespace-normalized
	Metadata     *models.Metadata
	Markdown     string
	MarkdownMeta *models.MarkdownMeta
	Links        []DiscoveredLink
}

// RenderErrorKind enumerates the render-contract failure modes.
type RenderErrorKind string

const (
	RenderErrorLoadTimeout      RenderErrorKind = "LoadTimeout"
	RenderErrorNavigationFailed RenderErrorKind = "NavigationFailed"
	RenderErrorScriptError      RenderErrorKind = "ScriptError"
	RenderErrorCancelled        RenderErrorKind = "Cancelled"
	RenderErrorInternal         RenderErrorKind = "Internal"
)

// RenderError is the typed error returned by a RenderSlot on failure.
type RenderError struct {
	Kind      RenderErrorKind
	Message   string
	Retryable bool
}

func (e *RenderError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// RenderSlot represents exclusive, reusable access to a rendering context.
// The core makes no assumption about where the slot runs; any implementation
// able to honor the contract is acceptable — a real headless browser, a
// JS-capable fetcher, or a deterministic mock for tests.
//
// A slot MUST NOT be reused for a different URL until Render resolves or ctx
// is cancelled.
type RenderSlot interface {
	Render(ctx context.Context, url string, opts RenderOptions) (*RenderResult, error)
}

// RenderSlotPool acquires and releases RenderSlots.
type RenderSlotPool interface {
	// Acquire blocks until a slot is idle, or ctx is done.
	Acquire(ctx context.Context) (RenderSlot, error)
	// Release returns a slot to idle.
	Release(slot RenderSlot)
	// Close closes all slots; guarantees no dangling contexts remain.
	Close() error
	// Size returns the fixed pool size W.
	Size() int
}
