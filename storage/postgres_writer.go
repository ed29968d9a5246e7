package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"listing-guard/models"
)

const (
	insertBatchSize = 50
	insertColumns   = 14
)

// PostgresWriter mirrors committed crawl batches into PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	return newPostgresWriter(db)
}

func newPostgresWriter(db *sql.DB) (*PostgresWriter, error) {
	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id              BIGINT        NOT NULL,
			source_url      TEXT          UNIQUE NOT NULL,
			title           TEXT          NOT NULL,
			description     TEXT          NOT NULL DEFAULT '',
			listing_type    VARCHAR(8)    NOT NULL DEFAULT 'SALE',
			price           NUMERIC(14,2) NOT NULL DEFAULT 0,
			currency        VARCHAR(8)    NOT NULL DEFAULT '',
			rooms           NUMERIC(6,1)  NOT NULL DEFAULT 1,
			surface_m2      NUMERIC(10,2) NOT NULL DEFAULT 50,
			image_paths     TEXT          NOT NULL DEFAULT '',
			image_count     INT           NOT NULL DEFAULT 0,
			seller_since    TEXT          NOT NULL DEFAULT '',
			seller_age_days INT           NOT NULL DEFAULT 30,
			seller_posts    INT           NOT NULL DEFAULT 0,
			created_at      TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_id    ON listings(id);
		CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
	`)
	return err
}

// Write batch-inserts records. Rows whose source_url already exists are skipped.
func (pw *PostgresWriter) Write(records []*models.ListingRecord) error {
	for i := 0; i < len(records); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := pw.insertBatch(records[i:end]); err != nil {
			return fmt.Errorf("postgres: insert batch: %w", err)
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(batch []*models.ListingRecord) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*insertColumns)

	for idx, r := range batch {
		base := idx * insertColumns
		placeholders := make([]string, insertColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")

		var id int64
		if r.ID != nil {
			id = *r.ID
		}
		valueArgs = append(valueArgs,
			id, r.SourceURL, r.Title, r.Description, string(r.Type),
			r.Price, r.Currency, r.Rooms, r.SurfaceM2,
			strings.Join(r.Images, models.ImagePathSeparator), len(r.Images),
			r.Seller.AccountSince, r.Seller.AccountAgeDays, r.Seller.PostCount)
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (id, source_url, title, description, listing_type,
			price, currency, rooms, surface_m2, image_paths, image_count,
			seller_since, seller_age_days, seller_posts)
		VALUES %s
		ON CONFLICT (source_url) DO NOTHING
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

// Close releases the connection pool.
func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored listings, used by the crawl report.
func (pw *PostgresWriter) FetchAll() ([]*models.ListingRecord, error) {
	rows, err := pw.db.Query(`
		SELECT id, source_url, title, description, listing_type, price, currency,
			rooms, surface_m2, image_paths, seller_since, seller_age_days, seller_posts
		FROM listings
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var records []*models.ListingRecord
	for rows.Next() {
		var (
			id         int64
			listType   string
			imagePaths string
		)
		r := &models.ListingRecord{}
		if err := rows.Scan(
			&id, &r.SourceURL, &r.Title, &r.Description, &listType, &r.Price, &r.Currency,
			&r.Rooms, &r.SurfaceM2, &imagePaths,
			&r.Seller.AccountSince, &r.Seller.AccountAgeDays, &r.Seller.PostCount,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		r.ID = &id
		r.Type = models.ListingType(listType)
		r.Images = []string{}
		if imagePaths != "" {
			r.Images = strings.Split(imagePaths, models.ImagePathSeparator)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
