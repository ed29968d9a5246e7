package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"listing-guard/models"
	"listing-guard/utils"
)

var (
	profileLinkPattern = regexp.MustCompile(`(?i)public-user-profile|anunturi-utilizator`)
	memberSincePattern = regexp.MustCompile(`(?i)Pe site din\s+(\d{1,2}[./-]\d{1,2}[./-]\d{4}|\d{4}-\d{2}-\d{2}|\p{L}+\.?\s+\d{4})`)
	postCountPattern   = regexp.MustCompile(`(?i)Anun[țţt]uri\s*:?\s*(\d+)`)
)

var accountDateLayouts = []string{
	"02.01.2006", "2.1.2006",
	"02/01/2006", "2/1/2006",
	"02-01-2006", "2-1-2006",
	"2006-01-02",
}

var monthNames = map[string]time.Month{
	"ianuarie": time.January, "ian": time.January, "january": time.January, "jan": time.January,
	"februarie": time.February, "feb": time.February, "february": time.February,
	"martie": time.March, "mar": time.March, "march": time.March,
	"aprilie": time.April, "apr": time.April, "april": time.April,
	"mai": time.May, "may": time.May,
	"iunie": time.June, "iun": time.June, "june": time.June, "jun": time.June,
	"iulie": time.July, "iul": time.July, "july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"septembrie": time.September, "sep": time.September, "sept": time.September, "september": time.September,
	"octombrie": time.October, "oct": time.October, "october": time.October,
	"noiembrie": time.November, "noi": time.November, "november": time.November, "nov": time.November,
	"decembrie": time.December, "dec": time.December, "december": time.December,
}

func profileLink(p *Page) (string, bool) {
	var href string
	p.Doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		h, _ := s.Attr("href")
		if profileLinkPattern.MatchString(h) {
			href = h
			return false
		}
		return true
	})
	return href, href != ""
}

// seller follows the profile link and reads account age and post count.
// Any failure leaves the defaults in place.
func (e *Extractor) seller(ctx context.Context, p *Page) models.Seller {
	href, ok := profileLink(p)
	if !ok || e.profiles == nil {
		return models.DefaultSeller()
	}

	profileURL, ok := e.resolveProfile(p, href)
	if !ok {
		return models.DefaultSeller()
	}

	body, err := e.profiles.Fetch(ctx, profileURL)
	if err != nil {
		e.logger.Debug("[extract] Seller profile unavailable %s: %v", profileURL, err)
		return models.DefaultSeller()
	}

	profile, err := NewPage(profileURL, body)
	if err != nil {
		return models.DefaultSeller()
	}
	return ParseSellerProfile(profile.Text(), e.now())
}

func (e *Extractor) resolveProfile(p *Page, href string) (string, bool) {
	if e.baseURL == nil {
		return p.Resolve(href)
	}
	return resolveURL(e.baseURL, href)
}

// ParseSellerProfile reads "Pe site din <date>" and "Anunțuri <n>" from the
// visible text of a seller profile.
func ParseSellerProfile(text string, now time.Time) models.Seller {
	seller := models.DefaultSeller()

	if m := memberSincePattern.FindStringSubmatch(text); m != nil {
		seller.AccountSince = strings.TrimSpace(m[1])
		if since, ok := parseAccountDate(seller.AccountSince); ok {
			days := int(now.Sub(since).Hours() / 24)
			if days < 0 {
				days = 0
			}
			seller.AccountAgeDays = days
		}
	}

	if m := postCountPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			seller.PostCount = n
		}
	}
	return seller
}

func parseAccountDate(s string) (time.Time, bool) {
	for _, layout := range accountDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	fields := strings.Fields(utils.FoldText(s))
	if len(fields) != 2 {
		return time.Time{}, false
	}
	month, ok := monthNames[strings.TrimSuffix(fields[0], ".")]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(fields[1])
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), true
}
