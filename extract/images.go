package extract

import (
	"encoding/json"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"listing-guard/models"
)

var (
	imageExtension = regexp.MustCompile(`(?i)\.(?:jpg|jpeg|png|webp)$`)
	rawImageURL    = regexp.MustCompile(`(?i)https?://[^\s"'<>]+\.(?:jpg|jpeg|png|webp)`)
)

var (
	galleryExcludes = []string{"thumb", "icon"}
	rawExcludes     = []string{"logo", "icon", "thumb"}
	strictExcludes  = []string{"logo", "icon", "avatar", "profile", "banner", ".svg"}
)

// ImageTier proposes candidate image URLs for a page.
type ImageTier func(p *Page) []string

// ImageExtractor runs the three image tiers with their gating rules: the
// gallery tier only runs when structured data found nothing, and the raw
// scan only while fewer than two candidates are known.
type ImageExtractor struct {
	StructuredData ImageTier
	Gallery        ImageTier
	RawScan        ImageTier
}

// DefaultImageExtractor wires the production tiers.
func DefaultImageExtractor() ImageExtractor {
	return ImageExtractor{
		StructuredData: imagesFromJSONLD,
		Gallery:        imagesFromGallery,
		RawScan:        imagesFromRawHTML,
	}
}

// Extract returns at most four distinct image URLs in discovery order.
func (x ImageExtractor) Extract(p *Page) []string {
	candidates := x.StructuredData(p)
	if len(candidates) == 0 {
		candidates = append(candidates, x.Gallery(p)...)
	}
	if len(candidates) < 2 {
		candidates = append(candidates, x.RawScan(p)...)
	}
	return dedupImages(candidates, models.MaxListingImages)
}

// dedupImages keeps the first occurrence of each filename, ignoring query
// strings and case, up to limit entries.
func dedupImages(urls []string, limit int) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]bool)
	for _, u := range urls {
		key := imageKey(u)
		if u == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out
}

func imageKey(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return strings.ToLower(path.Base(u.Path))
	}
	return strings.ToLower(raw)
}

func imagesFromJSONLD(p *Page) []string {
	var out []string
	p.Doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return
		}
		collectLDImages(payload, &out)
	})
	for i, u := range out {
		if abs, ok := p.Resolve(u); ok {
			out[i] = abs
		}
	}
	return out
}

// collectLDImages walks JSON-LD items, including @graph lists, and gathers
// their "image" values whether given as a URL, a list or an ImageObject.
func collectLDImages(v any, out *[]string) {
	switch item := v.(type) {
	case []any:
		for _, child := range item {
			collectLDImages(child, out)
		}
	case map[string]any:
		if graph, ok := item["@graph"]; ok {
			collectLDImages(graph, out)
		}
		if img, ok := item["image"]; ok {
			appendLDImage(img, out)
		}
	}
}

func appendLDImage(v any, out *[]string) {
	switch img := v.(type) {
	case string:
		*out = append(*out, img)
	case []any:
		for _, child := range img {
			appendLDImage(child, out)
		}
	case map[string]any:
		if u, ok := img["url"].(string); ok {
			*out = append(*out, u)
		}
	}
}

func imagesFromGallery(p *Page) []string {
	var out []string
	p.Doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !imageExtension.MatchString(href) || containsAny(strings.ToLower(href), galleryExcludes) {
			return
		}
		if abs, ok := p.Resolve(href); ok {
			out = append(out, abs)
		}
	})
	return out
}

func imagesFromRawHTML(p *Page) []string {
	var out []string
	for _, u := range rawImageURL.FindAllString(p.HTML, -1) {
		if !containsAny(strings.ToLower(u), rawExcludes) {
			out = append(out, u)
		}
	}
	return out
}

// CrawlImageCandidates lists <img> sources for download during a crawl.
// Candidates are absolute, unique by filename and free of branding assets.
// With skipFirst the first valid candidate, usually a thumbnail, is dropped.
// The caller downloads in order until it has enough images.
func CrawlImageCandidates(p *Page, skipFirst bool) []string {
	var out []string
	seen := make(map[string]bool)
	skipped := !skipFirst

	p.Doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := firstAttr(s, "src", "data-src", "data-lazy-src")
		abs, ok := p.Resolve(src)
		if !ok {
			return
		}
		lower := strings.ToLower(abs)
		if containsAny(lower, strictExcludes) {
			return
		}
		u, err := url.Parse(abs)
		if err != nil || !imageExtension.MatchString(u.Path) {
			return
		}
		key := imageKey(abs)
		if seen[key] {
			return
		}
		seen[key] = true
		if !skipped {
			skipped = true
			return
		}
		out = append(out, abs)
	})
	return out
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := s.Attr(name); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
