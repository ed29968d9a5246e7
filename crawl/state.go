package crawl

import (
	"listing-guard/models"
	"listing-guard/utils"
)

// CrawlState tracks which URLs are durably stored and which are staged for
// the next checkpoint. A URL only becomes seen after Commit, which the
// frontier calls once the checkpoint holding it succeeded.
type CrawlState struct {
	seen    *utils.URLSet
	nextID  int64
	pending []*models.ListingRecord
	staged  map[string]struct{}
}

// NewCrawlState starts from what the store already holds.
func NewCrawlState(seenURLs []string, maxID int64) *CrawlState {
	return &CrawlState{
		seen:   utils.NewURLSet(seenURLs...),
		nextID: maxID + 1,
		staged: make(map[string]struct{}),
	}
}

// Known reports whether url is stored or staged.
func (s *CrawlState) Known(url string) bool {
	if _, ok := s.staged[url]; ok {
		return true
	}
	return s.seen.Contains(url)
}

// Stage assigns the next id to rec and holds it until Commit.
func (s *CrawlState) Stage(rec *models.ListingRecord) int64 {
	id := s.nextID + int64(len(s.pending))
	rec.ID = &id
	s.pending = append(s.pending, rec)
	s.staged[rec.SourceURL] = struct{}{}
	return id
}

// Pending returns the staged records in id order.
func (s *CrawlState) Pending() []*models.ListingRecord {
	return s.pending
}

// PendingCount is the number of records waiting for a checkpoint.
func (s *CrawlState) PendingCount() int {
	return len(s.pending)
}

// Commit marks every staged URL as seen and advances the id counter.
func (s *CrawlState) Commit() {
	for _, rec := range s.pending {
		s.seen.Add(rec.SourceURL)
	}
	s.nextID += int64(len(s.pending))
	s.pending = nil
	s.staged = make(map[string]struct{})
}

// NextID is the id the next staged record will get.
func (s *CrawlState) NextID() int64 {
	return s.nextID + int64(len(s.pending))
}

// SeenCount is the number of durably stored URLs.
func (s *CrawlState) SeenCount() int {
	return s.seen.Size()
}
