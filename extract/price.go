package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"listing-guard/models"
)

var (
	numberToken   = regexp.MustCompile(`\d[\d.,]*\d|\d`)
	leadingNumber = regexp.MustCompile(`\d+(\.\d+)?`)
	priceClass    = regexp.MustCompile(`(?i)price|detail-price|money`)
	eurAmount     = regexp.MustCompile(`(?i)(\d[\d\s.,]*\d|\d)\s*(?:EUR|€)`)
	ronMarker     = regexp.MustCompile(`(?i)(?:^|[^a-z])(?:RON|LEI)(?:$|[^a-z])`)
)

// CleanPrice parses the first number in a localized price string.
//
//	"1.234,56" -> 1234.56   "." thousands, "," decimal
//	"1.234.000" -> 1234000  "." thousands when the last group has 3 digits
//	"1234,5"   -> 1234.5    "," decimal
//
// Unparseable input yields 0.
func CleanPrice(text string) float64 {
	text = strings.NewReplacer("\u00a0", "", " ", "").Replace(text)
	token := numberToken.FindString(text)
	if token == "" {
		return 0
	}

	hasDot := strings.Contains(token, ".")
	hasComma := strings.Contains(token, ",")
	switch {
	case hasDot && hasComma:
		token = strings.ReplaceAll(token, ".", "")
		token = strings.ReplaceAll(token, ",", ".")
	case hasDot && len(token)-strings.LastIndex(token, ".")-1 == 3:
		token = strings.ReplaceAll(token, ".", "")
	default:
		token = strings.ReplaceAll(token, ",", ".")
	}

	if v, err := strconv.ParseFloat(token, 64); err == nil {
		return v
	}
	if m := leadingNumber.FindString(token); m != "" {
		v, _ := strconv.ParseFloat(m, 64)
		return v
	}
	return 0
}

type priceResult struct {
	EUR      float64
	Currency string
}

// priceFromElements scans elements whose class looks price-like and takes the
// first plausible amount. RON amounts are converted with the FX divisor.
func (e *Extractor) priceFromElements(p *Page) (priceResult, bool) {
	var res priceResult
	found := false
	p.Doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !priceClass.MatchString(class) {
			return true
		}
		text := selectionText(s)
		v := CleanPrice(text)
		if v <= 100 {
			return true
		}
		res = priceResult{EUR: v, Currency: models.CurrencyEUR}
		if ronMarker.MatchString(text) {
			res = priceResult{EUR: v / e.ronDivisor, Currency: models.CurrencyRON}
		}
		found = true
		return false
	})
	return res, found
}

// priceFromText falls back to the first EUR amount anywhere in the raw
// document, inline scripts and attributes included.
func priceFromText(p *Page) (priceResult, bool) {
	m := eurAmount.FindStringSubmatch(p.HTML)
	if m == nil {
		return priceResult{}, false
	}
	v := CleanPrice(m[1])
	if v <= 0 {
		return priceResult{}, false
	}
	return priceResult{EUR: v, Currency: models.CurrencyEUR}, true
}
