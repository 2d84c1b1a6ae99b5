package render

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/quarryhq/sitecapture/internal/common"
	"github.com/quarryhq/sitecapture/internal/interfaces"
	"github.com/quarryhq/sitecapture/internal/markdown"
	"github.com/quarryhq/sitecapture/internal/models"
)

// linkHarvestJS collects every anchor href on the page, resolved to an
// absolute URL by the DOM itself (reading a.href rather than the raw
// attribute sidesteps relative-URL resolution).
const linkHarvestJS = `Array.from(document.querySelectorAll('a[href]')).map(a => a.href)`

// chromeSlot is one browser context in a Pool, implementing interfaces.RenderSlot.
type chromeSlot struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	cfg           common.RenderConfig
	logger        arbor.ILogger
}

func (s *chromeSlot) close() {
	s.browserCancel()
	s.allocCancel()
}

// Render navigates to url, waits for the configured content-stability
// budget, and extracts HTML, visible text, metadata, markdown, and outbound
// links. UseIncognito runs the render in a fresh tab opened from the pooled
// browser; that tab shares the browser's cookies and storage, so it is not
// isolated from other captures.
func (s *chromeSlot) Render(ctx context.Context, url string, opts interfaces.RenderOptions) (*interfaces.RenderResult, error) {
	waitBudget := time.Duration(s.cfg.WaitBudgetMs) * time.Millisecond
	if opts.WaitBudgetMs > 0 {
		waitBudget = time.Duration(opts.WaitBudgetMs) * time.Millisecond
	}
	stability := time.Duration(s.cfg.ContentStabilityBudgetMs) * time.Millisecond
	if opts.ContentStabilityBudgetMs > 0 {
		stability = time.Duration(opts.ContentStabilityBudgetMs) * time.Millisecond
	}

	tabCtx := s.browserCtx
	var tabCancel context.CancelFunc
	if opts.UseIncognito {
		tabCtx, tabCancel = chromedp.NewContext(s.browserCtx)
		defer tabCancel()
	}

	pageCtx, cancel := context.WithTimeout(tabCtx, waitBudget)
	defer cancel()

	var html string
	var links []string
	err := chromedp.Run(pageCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(stability),
		chromedp.OuterHTML("html", &html),
		chromedp.Evaluate(linkHarvestJS, &links),
	)
	if err != nil {
		return nil, classifyRenderError(ctx, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &interfaces.RenderError{Kind: interfaces.RenderErrorScriptError, Message: err.Error()}
	}

	text := markdown.ExtractText(doc)
	meta := markdown.ExtractMetadata(doc)

	md, err := markdown.ToMarkdown(html, url)
	var mdMeta *models.MarkdownMeta
	if err == nil {
		mdMeta = markdown.AnalyzeMarkdown(md)
	} else if s.logger != nil {
		s.logger.Warn().Err(err).Str("url", url).Msg("render: markdown conversion failed")
	}

	discovered := make([]interfaces.DiscoveredLink, 0, len(links))
	for _, l := range links {
		discovered = append(discovered, interfaces.DiscoveredLink{URL: l})
	}

	return &interfaces.RenderResult{
		HTML:         html,
		Text:         text,
		Metadata:     meta,
		Markdown:     md,
		MarkdownMeta: mdMeta,
		Links:        discovered,
	}, nil
}

func classifyRenderError(ctx context.Context, err error) *interfaces.RenderError {
	if ctx.Err() != nil {
		return &interfaces.RenderError{Kind: interfaces.RenderErrorCancelled, Message: err.Error()}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "context deadline"):
		return &interfaces.RenderError{Kind: interfaces.RenderErrorLoadTimeout, Message: msg, Retryable: true}
	case strings.Contains(msg, "net::"):
		return &interfaces.RenderError{Kind: interfaces.RenderErrorNavigationFailed, Message: msg, Retryable: true}
	default:
		return &interfaces.RenderError{Kind: interfaces.RenderErrorInternal, Message: msg}
	}
}
