package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"listing-guard/models"
	"listing-guard/utils"
)

// ReportService summarizes the persisted store after a crawl.
type ReportService struct {
	logger *utils.Logger
}

// NewReportService creates a ReportService.
func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// Generate summarizes stored listings. newListings is how many the current
// run added.
func (s *ReportService) Generate(records []*models.ListingRecord, newListings int) *models.CrawlReport {
	report := &models.CrawlReport{
		NewListings: newListings,
		ByCurrency:  make(map[string]int),
	}

	if len(records) == 0 {
		return report
	}

	report.TotalListings = len(records)

	var (
		priced     []*models.ListingRecord
		perM2Total float64
		perM2Count int
	)
	for _, r := range records {
		if len(r.Images) == 0 {
			report.WithoutImages++
		}
		if r.Currency != "" {
			report.ByCurrency[r.Currency]++
		}
		if r.Price <= 0 {
			continue
		}
		priced = append(priced, r)
		if r.SurfaceM2 > 0 {
			perM2Total += r.Price / r.SurfaceM2
			perM2Count++
		}
	}

	report.PricedListings = len(priced)
	if len(priced) > 0 {
		mostExpensive := priced[0]
		report.MinPrice = priced[0].Price
		var total float64
		for _, r := range priced {
			total += r.Price
			if r.Price < report.MinPrice {
				report.MinPrice = r.Price
			}
			if r.Price > mostExpensive.Price {
				mostExpensive = r
			}
		}
		report.MaxPrice = round2(mostExpensive.Price)
		report.MinPrice = round2(report.MinPrice)
		report.AveragePrice = round2(total / float64(len(priced)))
		report.MostExpensive = entryFor(mostExpensive)
	}
	if perM2Count > 0 {
		report.AveragePricePerM2 = round2(perM2Total / float64(perM2Count))
	}

	return report
}

// Print writes r to stdout.
func (s *ReportService) Print(r *models.CrawlReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 CRAWL REPORT\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Listings in store      : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Printf("  Added this run         : \033[1m%d\033[0m\n", r.NewListings)
	fmt.Printf("  Without images         : \033[1m%d\033[0m\n", r.WithoutImages)
	fmt.Println()

	// Price Stats
	fmt.Printf("\033[1;33m  Price Statistics (EUR)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Printf("  Priced listings : \033[1m%d\033[0m\n", r.PricedListings)
		fmt.Printf("  Average price   : \033[1;32m€%.2f\033[0m\n", r.AveragePrice)
		fmt.Printf("  Minimum price   : \033[1;32m€%.2f\033[0m\n", r.MinPrice)
		fmt.Printf("  Maximum price   : \033[1;32m€%.2f\033[0m\n", r.MaxPrice)
		fmt.Printf("  Average per m²  : \033[1;32m€%.2f\033[0m\n", r.AveragePricePerM2)
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Println()

	// Most Expensive
	if r.MostExpensive != nil {
		fmt.Printf("\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  [%s] %s\n", r.MostExpensive.ID, truncate(r.MostExpensive.Title, 50))
		fmt.Printf("  URL   : %s\n", r.MostExpensive.SourceURL)
		fmt.Printf("  Price : \033[1;31m€%.2f\033[0m\n", r.MostExpensive.Price)
		fmt.Println()
	}

	// Source currency markers
	fmt.Printf("\033[1;33m  Listings by Source Currency\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ByCurrency) == 0 {
		fmt.Printf("  No currency data\n")
	} else {
		currencies := make([]string, 0, len(r.ByCurrency))
		for c := range r.ByCurrency {
			currencies = append(currencies, c)
		}
		sort.Slice(currencies, func(i, j int) bool {
			return r.ByCurrency[currencies[i]] > r.ByCurrency[currencies[j]]
		})
		for _, c := range currencies {
			fmt.Printf("  %-8s %d\n", c, r.ByCurrency[c])
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func entryFor(r *models.ListingRecord) *models.ReportEntry {
	e := &models.ReportEntry{Title: r.Title, Price: r.Price, SourceURL: r.SourceURL}
	if r.ID != nil {
		e.ID = strconv.FormatInt(*r.ID, 10)
	}
	return e
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
