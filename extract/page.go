// Package extract turns a fetched listing page into a ListingRecord.
//
// Every field is produced by an ordered chain of strategies. A strategy
// reports (value, ok); the first ok value wins and the field default is used
// when the whole chain misses. Extraction never fails as a whole.
package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"listing-guard/utils"
)

// Page is a fetched document parsed once and shared by every strategy.
type Page struct {
	URL  string
	HTML string
	Doc  *goquery.Document

	base *url.URL
	text *string
}

// NewPage parses raw HTML. The HTML parser is lenient, so errors are rare
// and only come from the reader.
func NewPage(pageURL, rawHTML string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)
	return &Page{URL: pageURL, HTML: rawHTML, Doc: doc, base: base}, nil
}

// Text returns the visible text of the whole document, whitespace-collapsed.
func (p *Page) Text() string {
	if p.text == nil {
		t := visibleText(p.Doc.Nodes...)
		p.text = &t
	}
	return *p.text
}

// Resolve makes ref absolute against the page URL.
func (p *Page) Resolve(ref string) (string, bool) {
	return resolveURL(p.base, ref)
}

func resolveURL(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

var invisible = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// visibleText joins the text nodes under nodes with single spaces,
// skipping script-like elements.
func visibleText(nodes ...*html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		case html.ElementNode:
			if invisible[n.Data] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return utils.CollapseSpace(strings.ReplaceAll(sb.String(), "\u00a0", " "))
}

func selectionText(s *goquery.Selection) string {
	return visibleText(s.Nodes...)
}
