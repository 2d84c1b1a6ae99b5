package badger

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/quarryhq/sitecapture/internal/models"
)

// pageStorage implements interfaces.PageStorage over a BadgerDB.
type pageStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func newPageStorage(db *BadgerDB, logger arbor.ILogger) *pageStorage {
	return &pageStorage{db: db, logger: logger}
}

func (s *pageStorage) SavePage(ctx context.Context, page *models.Page) error {
	if page.ID == "" {
		return fmt.Errorf("page ID is required")
	}
	if err := s.db.Store().Upsert(page.ID, page); err != nil {
		return fmt.Errorf("failed to save page: %w", err)
	}
	return nil
}

func (s *pageStorage) GetPagesByJobID(ctx context.Context, jobID string) ([]*models.Page, error) {
	var pages []models.Page
	if err := s.db.Store().Find(&pages, badgerhold.Where("JobID").Eq(jobID)); err != nil {
		return nil, fmt.Errorf("failed to get pages by job: %w", err)
	}
	result := make([]*models.Page, len(pages))
	for i := range pages {
		result[i] = &pages[i]
	}
	return result, nil
}

func (s *pageStorage) FindPageByContentHash(ctx context.Context, jobID, hash string) (*models.Page, error) {
	var pages []models.Page
	query := badgerhold.Where("JobID").Eq(jobID).And("ContentHash").Eq(hash).Limit(1)
	if err := s.db.Store().Find(&pages, query); err != nil {
		return nil, fmt.Errorf("failed to find page by content hash: %w", err)
	}
	if len(pages) == 0 {
		return nil, nil
	}
	return &pages[0], nil
}

func (s *pageStorage) AddAlternateURL(ctx context.Context, pageID, url string) error {
	var page models.Page
	if err := s.db.Store().Get(pageID, &page); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("page not found: %s", pageID)
		}
		return fmt.Errorf("failed to get page: %w", err)
	}
	page.AddAlternate(url)
	return s.SavePage(ctx, &page)
}

// SearchPagesByURLSubstring does a case-insensitive regex scan across all
// pages, grounded on the full-text search the document store performs when
// there is no external index available.
func (s *pageStorage) SearchPagesByURLSubstring(ctx context.Context, q string) ([]*models.Page, error) {
	escaped := regexp.QuoteMeta(q)
	re, err := regexp.Compile("(?i)" + escaped)
	if err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}

	var pages []models.Page
	if err := s.db.Store().Find(&pages, badgerhold.Where("CanonicalURL").RegExp(re)); err != nil {
		return nil, fmt.Errorf("failed to search pages: %w", err)
	}
	result := make([]*models.Page, len(pages))
	for i := range pages {
		result[i] = &pages[i]
	}
	return result, nil
}

func (s *pageStorage) FindCachedRender(ctx context.Context, canonicalURL string) (*models.Page, error) {
	var pages []models.Page
	query := badgerhold.Where("CanonicalURL").Eq(canonicalURL).
		And("Status").Eq(models.PageStatusSuccess).
		SortBy("ExtractedAt").Reverse().Limit(1)
	if err := s.db.Store().Find(&pages, query); err != nil {
		return nil, fmt.Errorf("failed to find cached render: %w", err)
	}
	if len(pages) == 0 {
		return nil, nil
	}
	return &pages[0], nil
}
