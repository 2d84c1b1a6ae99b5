package capture

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/quarryhq/sitecapture/internal/discovery"
	"github.com/quarryhq/sitecapture/internal/hashindex"
	"github.com/quarryhq/sitecapture/internal/interfaces"
	"github.com/quarryhq/sitecapture/internal/models"
)

const dequeuePollInterval = 50 * time.Millisecond

// runWorker drains the job's queue until it is empty with nobody else in
// flight, or the job is cancelled. Each worker holds its own rate limiter so
// the politeness delay is per worker, not shared across the pool.
func (r *jobRunner) runWorker(workerIndex int) {
	defer r.wg.Done()

	limiter := rate.NewLimiter(rate.Every(time.Duration(r.opts.InterRequestDelayMs)*time.Millisecond), 1)

	for {
		entry, ok := r.tryDequeue()
		if !ok {
			if r.workerShouldExit() {
				return
			}
			select {
			case <-r.ctx.Done():
				return
			case <-time.After(dequeuePollInterval):
			}
			continue
		}

		if err := limiter.Wait(r.ctx); err != nil {
			r.finishEntry(entry)
			return
		}

		r.process(entry)
		r.finishEntry(entry)
	}
}

// tryDequeue pops the next queue entry and marks it in flight, atomically.
func (r *jobRunner) tryDequeue() (queueEntry, bool) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if r.state.cancelled {
		return queueEntry{}, false
	}
	entry, ok := r.state.dequeueLocked()
	if !ok {
		return queueEntry{}, false
	}
	r.state.inFlight[entry.canonicalURL] = true
	return entry, true
}

func (r *jobRunner) finishEntry(entry queueEntry) {
	r.state.mu.Lock()
	delete(r.state.inFlight, entry.canonicalURL)
	r.state.mu.Unlock()
}

// workerShouldExit reports whether this worker should stop: the job was
// cancelled, or the queue is empty and no sibling worker is in flight (so
// nothing will enqueue more work).
func (r *jobRunner) workerShouldExit() bool {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if r.state.cancelled {
		return true
	}
	return len(r.state.queue) == 0 && len(r.state.inFlight) == 0
}

// process renders one URL, resolves dedup/limit/store outcomes, and
// schedules any links it discovers.
func (r *jobRunner) process(entry queueEntry) {
	canonicalURL := entry.canonicalURL

	if !r.opts.SkipCache {
		if cached, err := r.store.FindCachedRender(r.ctx, canonicalURL); err == nil && cached != nil {
			r.adoptCachedPage(cached, canonicalURL)
			return
		}
	}

	slot, err := r.pool.Acquire(r.ctx)
	if err != nil {
		r.handlePoolFailure(err)
		return
	}
	defer r.pool.Release(slot)

	result, err := slot.Render(r.ctx, canonicalURL, interfaces.RenderOptions{
		UseIncognito: r.opts.UseIncognito,
	})
	if err != nil {
		r.handleRenderError(canonicalURL, err)
		return
	}

	r.handleRendered(entry, result)
}

func (r *jobRunner) handlePoolFailure(err error) {
	r.state.mu.Lock()
	r.state.poolFailed = true
	r.state.lastError = err
	r.state.mu.Unlock()
	r.cancel()
}

func (r *jobRunner) handleRenderError(canonicalURL string, err error) {
	var renderErr *interfaces.RenderError
	kind := string(interfaces.RenderErrorInternal)
	if errors.As(err, &renderErr) {
		kind = string(renderErr.Kind)
	}

	r.state.mu.Lock()
	r.state.pagesFailed++
	r.state.completed[canonicalURL] = true
	r.state.mu.Unlock()

	r.appendErrorLocked(canonicalURL + ": " + err.Error())
	if r.logError != nil {
		r.logError("render", err.Error(), map[string]string{"url": canonicalURL, "kind": kind})
	}
	r.publish(interfaces.ProgressPageFailed, canonicalURL, err.Error())
}

// adoptCachedPage reuses a previously captured render for this job without
// re-rendering. A fresh Page row is created for this job (cross-job reuse
// never mutates the cached page's own job ownership).
func (r *jobRunner) adoptCachedPage(cached *models.Page, canonicalURL string) {
	page := &models.Page{
		ID:           newPageID(),
		JobID:        r.id,
		URL:          cached.URL,
		CanonicalURL: canonicalURL,
		Content:      cached.Content,
		HTML:         cached.HTML,
		Markdown:     cached.Markdown,
		MarkdownMeta: cached.MarkdownMeta,
		Metadata:     cached.Metadata,
		ContentHash:  cached.ContentHash,
		Status:       models.PageStatusSuccess,
		ExtractedAt:  time.Now(),
	}
	page.AddAlternate(canonicalURL)
	if err := r.store.SavePage(r.ctx, page); err != nil {
		r.handleStoreFailure(canonicalURL, err)
		return
	}

	r.state.mu.Lock()
	r.state.completed[canonicalURL] = true
	r.state.dedup.Put(page.ContentHash, page.ID)
	r.state.pagesProcessed++
	r.state.mu.Unlock()

	r.publish(interfaces.ProgressPageCaptured, canonicalURL, "")
}

func (r *jobRunner) handleStoreFailure(canonicalURL string, err error) {
	r.state.mu.Lock()
	r.state.pagesFailed++
	r.state.completed[canonicalURL] = true
	r.state.mu.Unlock()

	r.appendErrorLocked(canonicalURL + ": " + err.Error())
	if r.logError != nil {
		r.logError("storage", err.Error(), map[string]string{"url": canonicalURL})
	}
	r.publish(interfaces.ProgressPageFailed, canonicalURL, err.Error())
}

// handleRendered resolves the content-hash dedup decision, the per-seed page
// limit, persistence, and link harvesting for one successful render.
func (r *jobRunner) handleRendered(entry queueEntry, result *interfaces.RenderResult) {
	canonicalURL := entry.canonicalURL
	hash := hashindex.ContentHash(result.Text)

	r.state.mu.Lock()
	if existingID, dup := r.state.dedup.Get(hash); dup {
		r.state.completed[canonicalURL] = true
		r.state.pagesProcessed++
		r.state.mu.Unlock()

		if err := r.store.AddAlternateURL(r.ctx, existingID, canonicalURL); err != nil && r.logger != nil {
			r.logger.Warn().Err(err).Str("page_id", existingID).Msg("failed to record alternate url")
		}
		r.publish(interfaces.ProgressPageCaptured, canonicalURL, "")
		return
	}

	if r.opts.PageLimitPerSeed > 0 && entry.seedIdx >= 0 && r.state.perSeedCount[entry.seedIdx] >= r.opts.PageLimitPerSeed {
		r.state.skippedByLimit[canonicalURL] = true
		r.state.mu.Unlock()
		r.publish(interfaces.ProgressPageDiscovered, canonicalURL, "skipped: per-seed page limit reached")
		return
	}
	r.state.mu.Unlock()

	page := &models.Page{
		ID:           newPageID(),
		JobID:        r.id,
		URL:          canonicalURL,
		CanonicalURL: canonicalURL,
		Content:      result.Text,
		HTML:         result.HTML,
		Markdown:     result.Markdown,
		MarkdownMeta: result.MarkdownMeta,
		Metadata:     result.Metadata,
		ContentHash:  hash,
		Status:       models.PageStatusSuccess,
		ExtractedAt:  time.Now(),
	}
	page.AddAlternate(canonicalURL)
	if err := r.store.SavePage(r.ctx, page); err != nil {
		r.handleStoreFailure(canonicalURL, err)
		return
	}

	r.state.mu.Lock()
	r.state.completed[canonicalURL] = true
	r.state.dedup.Put(hash, page.ID)
	if entry.seedIdx >= 0 {
		r.state.perSeedCount[entry.seedIdx]++
	}
	r.state.pagesProcessed++
	r.state.mu.Unlock()

	r.publish(interfaces.ProgressPageCaptured, canonicalURL, "")
	r.enqueueDiscovered(entry, result.Links)
}

// enqueueDiscovered filters, canonicalizes, and schedules links found on one
// rendered page, attributing each to the seed whose scope contains it or to
// the parent's seed when it falls outside every seed's scope but external
// following is enabled.
func (r *jobRunner) enqueueDiscovered(parent queueEntry, links []interfaces.DiscoveredLink) {
	raw := make([]string, 0, len(links))
	for _, l := range links {
		raw = append(raw, l.URL)
	}
	candidates := discovery.Harvest(raw, r.canonOpts)

	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	for _, c := range candidates {
		if r.state.scheduled(c.CanonicalURL) {
			continue
		}

		seedIdx := r.seedIndexForLocked(c.CanonicalURL)
		externalHops := 0
		if seedIdx < 0 {
			if !r.opts.FollowExternal {
				continue
			}
			externalHops = parent.externalHops + 1
			if externalHops > r.opts.MaxExternalHops {
				continue
			}
			seedIdx = parent.seedIdx
		}

		r.state.enqueueLocked(c.CanonicalURL, parent.depth+1, seedIdx, externalHops)
	}
}

func (r *jobRunner) publish(eventType interfaces.ProgressEventType, url, detail string) {
	if r.progress == nil {
		return
	}
	payload := map[string]interface{}{"url": url}
	if detail != "" {
		payload["detail"] = detail
	}
	r.progress.Publish(context.Background(), interfaces.ProgressEvent{
		Type:    eventType,
		JobID:   r.id,
		Payload: payload,
	})
}
