package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"listing-guard/models"
	"listing-guard/utils"
)

var (
	surfacePattern     = regexp.MustCompile(`(?i)(\d[\d.,]*)\s*(?:mp|m²|m2)`)
	roomsPattern       = regexp.MustCompile(`(?i)(\d+)\s*camer(?:e|a|ă)`)
	descriptionLabel   = regexp.MustCompile(`(?i)descriere|description`)
	descriptionClass   = regexp.MustCompile(`(?i)description|content|body`)
	descriptionTrailer = regexp.MustCompile(`(?is)vezi detalii.*$`)
	breadcrumbClass    = regexp.MustCompile(`(?i)breadcrumb`)
)

var (
	saleKeywords        = []string{"vand", "vanzare"}
	rentKeywords        = []string{"inchiriez", "chirie", "inchiriere"}
	breadcrumbRentWords = []string{"inchiriat", "chirie", "inchiriere"}
)

// minDescriptionLen is the visible length below which a sibling is treated
// as a spacer and skipped.
const minDescriptionLen = 10

func titleFromHeading(p *Page) (string, bool) {
	t := selectionText(p.Doc.Find("h1").First())
	return t, t != ""
}

func typeFromTitle(title string) (models.ListingType, bool) {
	folded := utils.FoldText(title)
	if containsAny(folded, saleKeywords) {
		return models.ListingSale, true
	}
	if containsAny(folded, rentKeywords) {
		return models.ListingRent, true
	}
	return "", false
}

func typeFromBreadcrumb(p *Page) (models.ListingType, bool) {
	crumbs := p.Doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return breadcrumbClass.MatchString(class)
	})
	if crumbs.Length() == 0 {
		return "", false
	}
	if containsAny(utils.FoldText(selectionText(crumbs.First())), breadcrumbRentWords) {
		return models.ListingRent, true
	}
	return "", false
}

func surfaceFromText(p *Page) (float64, bool) {
	m := surfacePattern.FindStringSubmatch(p.Text())
	if m == nil {
		return 0, false
	}
	v := CleanPrice(m[1])
	return v, v > 0
}

func roomsFromText(p *Page) (float64, bool) {
	m := roomsPattern.FindStringSubmatch(p.Text())
	if m == nil {
		return 0, false
	}
	return CleanPrice(m[1]), true
}

// descriptionAfterLabel finds the "Descriere" label and reads the first
// substantial element that follows it.
func descriptionAfterLabel(p *Page) (string, bool) {
	label := findTextNode(p.Doc.Find("body").Nodes, descriptionLabel)
	if label == nil || label.Parent == nil {
		return "", false
	}

	sel := p.Doc.FindNodes(label.Parent).Next()
	for sel.Length() > 0 && len([]rune(selectionText(sel))) < minDescriptionLen {
		sel = sel.Next()
	}
	if sel.Length() == 0 {
		return "", false
	}

	text := strings.TrimSpace(descriptionTrailer.ReplaceAllString(selectionText(sel), ""))
	return text, text != ""
}

func descriptionFromContainer(p *Page) (string, bool) {
	div := p.Doc.Find("div[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return descriptionClass.MatchString(class)
	}).First()
	text := selectionText(div)
	return text, text != ""
}

// findTextNode returns the first visible text node matching re, depth first.
func findTextNode(nodes []*html.Node, re *regexp.Regexp) *html.Node {
	for _, n := range nodes {
		if n.Type == html.ElementNode && invisible[n.Data] {
			continue
		}
		if n.Type == html.TextNode && re.MatchString(n.Data) {
			return n
		}
		var children []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		if found := findTextNode(children, re); found != nil {
			return found
		}
	}
	return nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
