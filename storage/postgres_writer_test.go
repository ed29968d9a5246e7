package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-guard/models"
)

func newMockWriter(t *testing.T) (*PostgresWriter, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS listings`).WillReturnResult(sqlmock.NewResult(0, 0))
	pw, err := newPostgresWriter(db)
	require.NoError(t, err)
	return pw, mock
}

func TestPostgresWriter_MigrateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("permission denied"))

	_, err = newPostgresWriter(db)
	assert.ErrorContains(t, err, "postgres: migrate")
}

func TestPostgresWriter_WriteBatches(t *testing.T) {
	pw, mock := newMockWriter(t)

	records := make([]*models.ListingRecord, 51)
	for i := range records {
		records[i] = newRecord(int64(i+1), fmt.Sprintf("https://x/anunt/%d", i+1))
	}

	mock.ExpectExec(`INSERT INTO listings`).WillReturnResult(sqlmock.NewResult(0, 50))
	mock.ExpectExec(`INSERT INTO listings`).
		WithArgs(int64(51), "https://x/anunt/51", "Casa https://x/anunt/51", "", "SALE",
			85000.0, "EUR", 3.0, 80.0,
			"images/anunt_1_img_1.webp|images/anunt_1_img_2.webp", int64(2),
			"martie 2020", int64(1500), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, pw.Write(records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriter_WriteEmpty(t *testing.T) {
	pw, mock := newMockWriter(t)

	assert.NoError(t, pw.Write(nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriter_WriteError(t *testing.T) {
	pw, mock := newMockWriter(t)
	mock.ExpectExec(`INSERT INTO listings`).WillReturnError(errors.New("connection reset"))

	err := pw.Write([]*models.ListingRecord{newRecord(1, "https://x/anunt/1")})

	assert.ErrorContains(t, err, "connection reset")
}

func TestPostgresWriter_FetchAll(t *testing.T) {
	pw, mock := newMockWriter(t)

	rows := sqlmock.NewRows([]string{
		"id", "source_url", "title", "description", "listing_type", "price", "currency",
		"rooms", "surface_m2", "image_paths", "seller_since", "seller_age_days", "seller_posts",
	}).
		AddRow(1, "https://x/anunt/1", "Casa", "", "SALE", 85000.0, "EUR", 3.0, 80.0, "a.webp|b.webp", "", 30, 0).
		AddRow(2, "https://x/anunt/2", "Vila", "Piscina", "SALE", 0.0, "", 1.0, 50.0, "", "2020", 900, 2)
	mock.ExpectQuery(`SELECT id, source_url`).WillReturnRows(rows)

	records, err := pw.FetchAll()

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), *records[0].ID)
	assert.Equal(t, []string{"a.webp", "b.webp"}, records[0].Images)
	assert.Equal(t, models.ListingSale, records[1].Type)
	assert.Equal(t, []string{}, records[1].Images)
	assert.Equal(t, 900, records[1].Seller.AccountAgeDays)
}
