package models

// ListingType classifies an advertisement as a sale or a rental.
type ListingType string

const (
	ListingSale ListingType = "SALE"
	ListingRent ListingType = "RENT"
)

// Field defaults applied when extraction finds nothing.
const (
	DefaultTitle          = "Anunț"
	DefaultSurfaceM2      = 50.0
	DefaultRooms          = 1.0
	DefaultSellerAgeDays  = 30
	DefaultSellerPosts    = 0
	MaxListingImages      = 4
	ImagePathSeparator    = "|"
	CurrencyEUR           = "EUR"
	CurrencyRON           = "RON"
	DefaultRONEURDivisor  = 5.0
	WrongTypePriceCeiling = 2000.0
)

// Seller holds what the seller's public profile reveals.
type Seller struct {
	// AccountSince is the raw "member since" text, kept for offline labeling.
	AccountSince   string
	AccountAgeDays int
	PostCount      int
}

// DefaultSeller is used whenever the profile cannot be fetched or parsed.
func DefaultSeller() Seller {
	return Seller{AccountAgeDays: DefaultSellerAgeDays, PostCount: DefaultSellerPosts}
}

// ListingRecord is the normalized result of extracting one listing page.
type ListingRecord struct {
	// ID is nil for on-demand analysis; the crawler assigns it at staging.
	ID          *int64
	Title       string
	Description string
	Type        ListingType
	// Price is always EUR; Currency remembers the marker found on the page.
	Price     float64
	Currency  string
	SurfaceM2 float64
	Rooms     float64
	Images    []string
	Seller    Seller
	SourceURL string
}

// NewListingRecord returns a record with every field at its documented default.
func NewListingRecord(sourceURL string) *ListingRecord {
	return &ListingRecord{
		Title:     DefaultTitle,
		Type:      ListingSale,
		SurfaceM2: DefaultSurfaceM2,
		Rooms:     DefaultRooms,
		Images:    []string{},
		Seller:    DefaultSeller(),
		SourceURL: sourceURL,
	}
}

// Verdict is the final fraud decision.
type Verdict string

const (
	VerdictFlagged Verdict = "FLAGGED"
	VerdictCleared Verdict = "CLEARED"
)

// FusionResult is computed fresh on every analysis and never cached.
type FusionResult struct {
	AdjustedPrice    float64
	FraudProbability float64
	Verdict          Verdict
}

// CrawlReport summarizes the persisted store after a crawl run.
type CrawlReport struct {
	TotalListings     int
	NewListings       int
	PricedListings    int
	AveragePrice      float64
	MinPrice          float64
	MaxPrice          float64
	AveragePricePerM2 float64
	WithoutImages     int
	MostExpensive     *ReportEntry
	ByCurrency        map[string]int
}

// ReportEntry identifies one stored listing inside a CrawlReport.
type ReportEntry struct {
	ID        string
	Title     string
	Price     float64
	SourceURL string
}
