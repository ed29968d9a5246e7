package services

import (
	"strings"

	"listing-guard/models"
	"listing-guard/utils"
)

// Cleaner tidies extracted records before they are staged or mirrored.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Normalize tidies rec in place. It reports false for records that cannot be
// stored because they have no source URL.
func (c *Cleaner) Normalize(rec *models.ListingRecord) bool {
	rec.SourceURL = strings.TrimSpace(rec.SourceURL)
	if rec.SourceURL == "" {
		c.logger.Warn("[cleaner] Dropping listing with empty URL: %s", rec.Title)
		return false
	}

	rec.Title = utils.CollapseSpace(rec.Title)
	if rec.Title == "" {
		rec.Title = models.DefaultTitle
	}
	rec.Description = utils.CollapseSpace(rec.Description)
	rec.Currency = strings.ToUpper(strings.TrimSpace(rec.Currency))

	if rec.Price < 0 {
		rec.Price = 0
	}
	if rec.SurfaceM2 <= 0 {
		rec.SurfaceM2 = models.DefaultSurfaceM2
	}
	if rec.Rooms < 0 {
		rec.Rooms = models.DefaultRooms
	}

	images := make([]string, 0, len(rec.Images))
	for _, img := range rec.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	rec.Images = images
	return true
}

// Clean normalizes a batch, dropping records without a URL and repeated URLs.
func (c *Cleaner) Clean(records []*models.ListingRecord) []*models.ListingRecord {
	seen := make(map[string]struct{})
	result := make([]*models.ListingRecord, 0, len(records))

	for _, rec := range records {
		if !c.Normalize(rec) {
			continue
		}
		if _, dup := seen[rec.SourceURL]; dup {
			c.logger.Debug("[cleaner] Duplicate URL skipped: %s", rec.SourceURL)
			continue
		}
		seen[rec.SourceURL] = struct{}{}
		result = append(result, rec)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		len(records), len(result), len(records)-len(result))
	return result
}
