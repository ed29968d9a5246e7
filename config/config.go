package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	SourceBaseURL     string
	SourceDomain      string
	ListURL           string
	ListingPathMarker string

	StartPage       int
	MaxNewListings  int
	MaxPages        int
	ListingDelayMin time.Duration
	ListingDelayMax time.Duration
	PageDelayMin    time.Duration
	PageDelayMax    time.Duration
	SkipFirstImage  bool
	ImagesDir       string
	CSVPath         string

	FetchMode     string
	FetchTimeout  time.Duration
	MaxRetries    int
	RetryDelayMin time.Duration
	RetryDelayMax time.Duration
	MinBodyLength int
	ImageTimeout  time.Duration
	UserAgent     string
	ChromeBin     string

	RONEURDivisor   float64
	MarketTiersPath string
	PriceModelURL   string
	FraudModelURL   string

	APIAddr  string
	LogLevel string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "listings_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		SourceBaseURL:     getEnv("SOURCE_BASE_URL", "https://www.publi24.ro"),
		SourceDomain:      getEnv("SOURCE_DOMAIN", "publi24.ro"),
		ListURL:           getEnv("LIST_URL", "https://www.publi24.ro/anunturi/imobiliare/de-vanzare/case/?withpictures=true"),
		ListingPathMarker: getEnv("LISTING_PATH_MARKER", "/anunt/"),

		StartPage:       getEnvInt("START_PAGE", 1),
		MaxNewListings:  getEnvInt("MAX_NEW_LISTINGS", 1000),
		MaxPages:        getEnvInt("MAX_PAGES", 500),
		ListingDelayMin: getEnvMillis("LISTING_DELAY_MIN_MS", 1400),
		ListingDelayMax: getEnvMillis("LISTING_DELAY_MAX_MS", 2700),
		PageDelayMin:    getEnvMillis("PAGE_DELAY_MIN_MS", 6000),
		PageDelayMax:    getEnvMillis("PAGE_DELAY_MAX_MS", 10000),
		SkipFirstImage:  getEnvBool("SKIP_FIRST_IMAGE", true),
		ImagesDir:       getEnv("IMAGES_DIR", "./output/images"),
		CSVPath:         getEnv("CSV_PATH", "./output/listings.csv"),

		FetchMode:     strings.ToLower(getEnv("FETCH_MODE", "http")),
		FetchTimeout:  time.Duration(getEnvInt("FETCH_TIMEOUT_SEC", 15)) * time.Second,
		MaxRetries:    getEnvInt("MAX_RETRIES", 3),
		RetryDelayMin: getEnvMillis("RETRY_DELAY_MIN_MS", 3000),
		RetryDelayMax: getEnvMillis("RETRY_DELAY_MAX_MS", 6000),
		MinBodyLength: getEnvInt("MIN_BODY_LENGTH", 500),
		ImageTimeout:  getEnvMillis("IMAGE_TIMEOUT_MS", 2000),
		UserAgent: getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:110.0) "+
			"Gecko/20100101 Firefox/110.0"),
		ChromeBin: getEnv("CHROME_BIN", ""),

		RONEURDivisor:   getEnvFloat("RON_EUR_DIVISOR", 5.0),
		MarketTiersPath: getEnv("MARKET_TIERS_PATH", ""),
		PriceModelURL:   getEnv("PRICE_MODEL_URL", ""),
		FraudModelURL:   getEnv("FRAUD_MODEL_URL", ""),

		APIAddr:  getEnv("API_ADDR", ":5000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvMillis(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMs)) * time.Millisecond
}
