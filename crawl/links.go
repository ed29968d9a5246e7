package crawl

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var onclickListing = regexp.MustCompile(`'(/anunt/[^']+)'`)

// ListPageURL builds the URL of list page n.
func ListPageURL(base string, page int) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "page=" + strconv.Itoa(page)
}

// ExtractListingLinks collects listing URLs from a list page: anchors,
// data-href attributes and onclick handlers. Results are absolute, contain
// marker and keep first-seen order.
func ExtractListingLinks(doc *goquery.Document, pageURL, marker string) []string {
	var raw []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		raw = append(raw, s.AttrOr("href", ""))
	})
	doc.Find("[data-href]").Each(func(_ int, s *goquery.Selection) {
		raw = append(raw, s.AttrOr("data-href", ""))
	})
	doc.Find("[onclick]").Each(func(_ int, s *goquery.Selection) {
		if m := onclickListing.FindStringSubmatch(s.AttrOr("onclick", "")); m != nil {
			raw = append(raw, m[1])
		}
	})

	base, _ := url.Parse(pageURL)
	var links []string
	seen := make(map[string]bool)
	for _, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		ref, err := url.Parse(h)
		if err != nil {
			continue
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		ref.Fragment = ""
		full := ref.String()
		if !strings.Contains(full, marker) || seen[full] {
			continue
		}
		seen[full] = true
		links = append(links, full)
	}
	return links
}
