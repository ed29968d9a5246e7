package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"listing-guard/models"
	"listing-guard/utils"
)

const utf8BOM = "\ufeff"

// Store columns. The trailing placeholders are filled in by offline labeling.
const (
	ColID                = "id"
	ColTitle             = "title"
	ColPrice             = "price"
	ColCurrency          = "currency"
	ColRooms             = "rooms"
	ColSurface           = "surface"
	ColSourceURL         = "source_url"
	ColImagePaths        = "image_paths"
	ColImageCount        = "image_count"
	ColNotes             = "notes"
	ColDescription       = "description"
	ColSellerSince       = "seller_since"
	ColSellerPosts       = "seller_posts"
	ColEstimatedPrice    = "estimated_price"
	ColSellerSinceParsed = "seller_since_parsed"
	ColSellerAgeDays     = "seller_age_days"
	ColScam              = "scam"
	ColPriceDelta        = "price_delta"
)

// DefaultColumns is the header of a freshly created store.
var DefaultColumns = []string{
	ColID, ColTitle, ColPrice, ColCurrency, ColRooms, ColSurface, ColSourceURL,
	ColImagePaths, ColImageCount, ColNotes, ColDescription, ColSellerSince, ColSellerPosts,
	ColEstimatedPrice, ColSellerSinceParsed, ColSellerAgeDays, ColScam, ColPriceDelta,
}

// legacyColumns maps the Romanian header of stores written by the earlier
// crawler onto the current column names.
var legacyColumns = map[string]string{
	"titlu":            ColTitle,
	"pret":             ColPrice,
	"moneda":           ColCurrency,
	"nr_camere":        ColRooms,
	"suprafata":        ColSurface,
	"link":             ColSourceURL,
	"imagini_paths":    ColImagePaths,
	"numar_imagini":    ColImageCount,
	"nr_imagini":       ColImageCount,
	"observatii":       ColNotes,
	"descriere":        ColDescription,
	"data_cont":        ColSellerSince,
	"nr_postari":       ColSellerPosts,
	"pret_estim":       ColEstimatedPrice,
	"data_cont_parsed": ColSellerSinceParsed,
	"vechime_zile":     ColSellerAgeDays,
	"delta_pret":       ColPriceDelta,
}

// ErrUnknownHeader is returned by Load when the file has no id or source URL column.
var ErrUnknownHeader = errors.New("csv: store header lacks id or source_url column")

// CSVStore keeps crawl output in a single CSV file. Prior rows are carried
// forward verbatim; new rows are aligned to whatever header the file has.
type CSVStore struct {
	path   string
	header []string
	// keys is header with legacy names mapped to current ones.
	keys   []string
	rows   [][]string
	logger *utils.Logger
}

// NewCSVStore creates a store at path. Call Load before the first Checkpoint.
func NewCSVStore(path string, logger *utils.Logger) *CSVStore {
	return &CSVStore{
		path:   path,
		header: append([]string(nil), DefaultColumns...),
		keys:   append([]string(nil), DefaultColumns...),
		logger: logger,
	}
}

// Load reads the existing file. A missing file is an empty store.
func (s *CSVStore) Load() (*Snapshot, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("[store] No existing store at %s, starting fresh", s.path)
		return &Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(skipBOM(f))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read rows: %w", err)
	}

	keys := canonicalColumns(header)
	if indexOf(keys, ColID) < 0 || indexOf(keys, ColSourceURL) < 0 {
		return nil, fmt.Errorf("%w: %q has header %v", ErrUnknownHeader, s.path, header)
	}

	s.header = header
	s.keys = keys
	s.rows = rows

	snap := &Snapshot{Rows: len(rows)}
	idCol, urlCol := s.column(ColID), s.column(ColSourceURL)
	for _, row := range rows {
		if u := cell(row, urlCol); u != "" {
			snap.SeenURLs = append(snap.SeenURLs, u)
		}
		if id, ok := parseID(cell(row, idCol)); ok && id > snap.MaxID {
			snap.MaxID = id
		}
	}

	s.logger.Info("[store] Loaded %d rows from %s (max id %d)", len(rows), s.path, snap.MaxID)
	return snap, nil
}

// Checkpoint rewrites the store with every prior row plus records. The file
// is replaced atomically; on error the previous file is left untouched and
// records are not retained.
func (s *CSVStore) Checkpoint(records []*models.ListingRecord) error {
	newRows := make([][]string, 0, len(records))
	for _, rec := range records {
		newRows = append(newRows, s.align(recordCells(rec)))
	}

	all := make([][]string, 0, len(s.rows)+len(newRows))
	all = append(all, s.rows...)
	all = append(all, newRows...)

	if err := s.writeAtomic(all); err != nil {
		return err
	}

	s.rows = all
	s.logger.Info("[store] Checkpoint: %d rows (+%d) written to %s", len(all), len(newRows), s.path)
	return nil
}

// Records parses stored rows back into listings, for reporting.
func (s *CSVStore) Records() []*models.ListingRecord {
	out := make([]*models.ListingRecord, 0, len(s.rows))
	for _, row := range s.rows {
		get := func(col string) string { return cell(row, s.column(col)) }

		rec := models.NewListingRecord(get(ColSourceURL))
		if id, ok := parseID(get(ColID)); ok {
			rec.ID = &id
		}
		if t := get(ColTitle); t != "" {
			rec.Title = t
		}
		rec.Price = parseFloat(get(ColPrice))
		rec.Currency = get(ColCurrency)
		if v := parseFloat(get(ColRooms)); v > 0 {
			rec.Rooms = v
		}
		if v := parseFloat(get(ColSurface)); v > 0 {
			rec.SurfaceM2 = v
		}
		if paths := get(ColImagePaths); paths != "" {
			rec.Images = strings.Split(paths, models.ImagePathSeparator)
		}
		rec.Description = get(ColDescription)
		rec.Seller.AccountSince = get(ColSellerSince)
		if n, err := strconv.Atoi(get(ColSellerPosts)); err == nil {
			rec.Seller.PostCount = n
		}
		out = append(out, rec)
	}
	return out
}

// FetchAll returns the rows loaded or written so far.
func (s *CSVStore) FetchAll() ([]*models.ListingRecord, error) {
	return s.Records(), nil
}

func (s *CSVStore) writeAtomic(rows [][]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("csv: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(utf8BOM); err != nil {
		return fmt.Errorf("csv: write bom: %w", err)
	}
	w := csv.NewWriter(tmp)
	if err := w.Write(s.header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("csv: write rows: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("csv: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("csv: replace %q: %w", s.path, err)
	}
	committed = true
	return nil
}

// align orders cells by the store header. Unknown columns are dropped and
// missing ones left blank.
func (s *CSVStore) align(cells map[string]string) []string {
	row := make([]string, len(s.keys))
	for i, col := range s.keys {
		row[i] = cells[col]
	}
	return row
}

func (s *CSVStore) column(name string) int {
	return indexOf(s.keys, name)
}

func canonicalColumns(header []string) []string {
	keys := make([]string, len(header))
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(col))
		if current, ok := legacyColumns[col]; ok {
			col = current
		}
		keys[i] = col
	}
	return keys
}

func indexOf(cols []string, name string) int {
	for i, col := range cols {
		if col == name {
			return i
		}
	}
	return -1
}

func recordCells(rec *models.ListingRecord) map[string]string {
	cells := map[string]string{
		ColTitle:       rec.Title,
		ColPrice:       formatFloat(rec.Price),
		ColCurrency:    rec.Currency,
		ColRooms:       formatFloat(rec.Rooms),
		ColSurface:     formatFloat(rec.SurfaceM2),
		ColSourceURL:   rec.SourceURL,
		ColImagePaths:  strings.Join(rec.Images, models.ImagePathSeparator),
		ColImageCount:  strconv.Itoa(len(rec.Images)),
		ColDescription: rec.Description,
		ColSellerSince: rec.Seller.AccountSince,
		ColSellerPosts: strconv.Itoa(rec.Seller.PostCount),
	}
	if rec.ID != nil {
		cells[ColID] = strconv.FormatInt(*rec.ID, 10)
	}
	return cells
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && string(b) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseID accepts "12" as well as "12.0", which spreadsheet round-trips produce.
func parseID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
