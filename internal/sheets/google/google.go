package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"compras/internal/cache"
	ports "compras/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultSheetName = "Compras"
	rowCacheSize     = 2000
	rowCacheTTL      = 10 * time.Minute
	valueInput       = "USER_ENTERED"
)

// Config selects the spreadsheet and the service-account credentials.
// CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Exporter mirrors purchases into one sheet, one row per purchase keyed by
// the ID in column A.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// Writes are serialized: appends and row deletions shift positions.
	mu            sync.Mutex
	rows          *cache.LRUCache[int]
	headerChecked bool
	sheetID       *int64
}

// Ensure interface conformance
var (
	_ ports.PurchaseExporter = (*Exporter)(nil)
	_ cache.Cleaner          = (*Exporter)(nil)
)

// NewFromEnv creates an exporter from environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Compras"), GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Exporter, error) {
	cfg := Config{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:       strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if cfg.CredentialsJSON == "" && cfg.CredentialsFile == "" {
		cfg.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return New(ctx, cfg)
}

// New creates an exporter authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Exporter {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		sheetName:     sheetName,
		rows:          cache.NewLRUCache[int](rowCacheSize, rowCacheTTL),
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case cfg.CredentialsJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsFile != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", cfg.CredentialsFile)
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// UpsertPurchase updates the row holding row.ID or appends a new one.
func (e *Exporter) UpsertPurchase(ctx context.Context, row ports.PurchaseRow) error {
	if row.ID == "" {
		return errors.New("row id required")
	}
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureHeader(ctx); err != nil {
		return err
	}

	n, found, err := e.findRow(ctx, row.ID)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{toValues(row.Strings())}}

	if found {
		rng := a1(e.sheetName, fmt.Sprintf("A%d:K%d", n, n))
		if _, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, vr).
			ValueInputOption(valueInput).Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		slog.DebugContext(ctx, "Updated purchase row", "id", row.ID, "row", n)
		return nil
	}

	rng := a1(e.sheetName, "A:K")
	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption(valueInput).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", rng, err)
	}
	if resp.Updates != nil {
		if n, err := parseRowNumber(resp.Updates.UpdatedRange); err == nil {
			e.rows.Set(row.ID, n)
		}
	}
	slog.DebugContext(ctx, "Appended purchase row", "id", row.ID)
	return nil
}

// DeletePurchase removes the row holding id. A missing row is not an error.
func (e *Exporter) DeletePurchase(ctx context.Context, id string) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	n, found, err := e.findRow(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		slog.DebugContext(ctx, "Purchase row already absent", "id", id)
		return nil
	}
	sheetID, err := e.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(n - 1),
					EndIndex:   int64(n),
					// Zero is a valid sheet id and start index.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", n, err)
	}

	// Every row below n moved up.
	e.rows.Purge()
	slog.DebugContext(ctx, "Deleted purchase row", "id", id, "row", n)
	return nil
}

// CleanExpired drops stale row positions.
func (e *Exporter) CleanExpired() int {
	return e.rows.CleanExpired()
}

func (e *Exporter) ensureHeader(ctx context.Context) error {
	if e.headerChecked {
		return nil
	}
	rng := a1(e.sheetName, "A1:K1")
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header %s: %w", rng, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		vr := &gsheet.ValueRange{Values: [][]any{toValues(ports.Header)}}
		if _, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header %s: %w", rng, err)
		}
		slog.InfoContext(ctx, "Wrote export header", "sheet", e.sheetName)
	}
	e.headerChecked = true
	return nil
}

// findRow returns the 1-based row whose column A equals id. A cached
// position is checked against the sheet before it is trusted.
func (e *Exporter) findRow(ctx context.Context, id string) (int, bool, error) {
	if n, ok := e.rows.Get(id); ok {
		rng := a1(e.sheetName, fmt.Sprintf("A%d", n))
		resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return 0, false, fmt.Errorf("read %s: %w", rng, err)
		}
		if firstCell(resp.Values, 0) == id {
			return n, true, nil
		}
		e.rows.Delete(id)
	}

	rng := a1(e.sheetName, "A:A")
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read %s: %w", rng, err)
	}
	found := 0
	for i := range resp.Values {
		// Row 1 is the header.
		if i == 0 {
			continue
		}
		v := firstCell(resp.Values, i)
		if v == "" {
			continue
		}
		e.rows.Set(v, i+1)
		if v == id {
			found = i + 1
		}
	}
	return found, found > 0, nil
}

func (e *Exporter) resolveSheetID(ctx context.Context) (int64, error) {
	if e.sheetID != nil {
		return *e.sheetID, nil
	}
	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == e.sheetName {
			id := sh.Properties.SheetId
			e.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", e.sheetName)
}
