package crawl

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractListingLinks(t *testing.T) {
	page := `<html><body>
		<a href="/anunt/casa-1.html">1</a>
		<div data-href="/anunt/casa-2.html"></div>
		<div onclick="location.href='/anunt/casa-3.html'"></div>
		<a href="https://www.publi24.ro/anunt/casa-1.html#galerie">dup</a>
		<a href="/anunturi/imobiliare/">category</a>
		<div onclick="track('click')"></div>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	links := ExtractListingLinks(doc, listBase+"&page=1", "/anunt/")

	assert.Equal(t, []string{
		"https://www.publi24.ro/anunt/casa-1.html",
		"https://www.publi24.ro/anunt/casa-2.html",
		"https://www.publi24.ro/anunt/casa-3.html",
	}, links)
}
