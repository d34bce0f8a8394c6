package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"

	"compras/internal/core"
	ports "compras/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the subset of the Sheets REST API the exporter uses,
// backed by a single in-memory sheet with id 0.
type fakeSheets struct {
	mu      sync.Mutex
	rows    [][]string
	deletes []map[string]json.RawMessage
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/sid")
	switch {
	case path == "" && r.Method == http.MethodGet:
		writeJSON(w, map[string]any{"sheets": []any{
			map[string]any{"properties": map[string]any{"sheetId": 0, "title": "Compras"}},
		}})
	case path == ":batchUpdate" && r.Method == http.MethodPost:
		var req struct {
			Requests []struct {
				DeleteDimension struct {
					Range map[string]json.RawMessage `json:"range"`
				} `json:"deleteDimension"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rq := range req.Requests {
			rg := rq.DeleteDimension.Range
			f.deletes = append(f.deletes, rg)
			start := rawInt(rg["startIndex"])
			if start < len(f.rows) {
				f.rows = append(f.rows[:start], f.rows[start+1:]...)
			}
		}
		writeJSON(w, map[string]any{"spreadsheetId": "sid"})
	case strings.HasPrefix(path, "/values/"):
		f.values(w, r, strings.TrimPrefix(path, "/values/"))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSheets) values(w http.ResponseWriter, r *http.Request, rng string) {
	appendCall := strings.HasSuffix(rng, ":append")
	rng = strings.TrimSuffix(rng, ":append")
	cells := strings.TrimPrefix(rng, "Compras!")
	start, err := parseRowNumber(cells)
	whole := err != nil

	switch r.Method {
	case http.MethodGet:
		var out [][]string
		if whole {
			for _, row := range f.rows {
				out = append(out, row[:min(1, len(row))])
			}
		} else if start <= len(f.rows) {
			row := f.rows[start-1]
			if !strings.Contains(cells, ":") {
				row = row[:min(1, len(row))]
			}
			out = [][]string{row}
		}
		writeJSON(w, map[string]any{"range": rng, "values": out})
	case http.MethodPut, http.MethodPost:
		var body struct {
			Values [][]string `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Values) != 1 {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if appendCall {
			f.rows = append(f.rows, body.Values[0])
			n := len(f.rows)
			writeJSON(w, map[string]any{"updates": map[string]any{"updatedRange": fmt.Sprintf("Compras!A%d:K%d", n, n)}})
			return
		}
		for len(f.rows) < start {
			f.rows = append(f.rows, nil)
		}
		f.rows[start-1] = body.Values[0]
		writeJSON(w, map[string]any{"updatedRange": rng})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (f *fakeSheets) snapshot() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.rows...)
}

// rawInt reads an integer that may be encoded as a JSON number or string.
func rawInt(raw json.RawMessage) int {
	n, _ := strconv.Atoi(strings.Trim(string(raw), `"`))
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestExporter(t *testing.T) (*Exporter, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return NewWithService(svc, "sid", ""), fake
}

func testRow(id, name string, qty int) ports.PurchaseRow {
	return ports.RowFromPurchase(core.PurchaseWithStore{Purchase: core.Purchase{
		ID: id, OwnerID: "u1", Name: name, Category: core.CategoryFood,
		UnitPrice: core.Money{Cents: 250}, Quantity: qty,
		Date: core.NewDate(2024, 3, 1), Month: 3, Year: 2024,
	}})
}

func TestExporter_UpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	e, fake := newTestExporter(t)

	if err := e.UpsertPurchase(ctx, testRow("a", "Arroz", 1)); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if err := e.UpsertPurchase(ctx, testRow("b", "Pan", 1)); err != nil {
		t.Fatalf("upsert b: %v", err)
	}
	if err := e.UpsertPurchase(ctx, testRow("a", "Arroz integral", 4)); err != nil {
		t.Fatalf("update a: %v", err)
	}

	rows := fake.snapshot()
	if len(rows) != 3 {
		t.Fatalf("want header + 2 rows, got %d: %v", len(rows), rows)
	}
	if rows[0][0] != "ID" || len(rows[0]) != len(ports.Header) {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "a" || rows[1][4] != "Arroz integral" || rows[1][9] != "10.00" {
		t.Errorf("row a not updated in place: %v", rows[1])
	}
	if rows[2][0] != "b" {
		t.Errorf("row b = %v", rows[2])
	}

	if err := e.DeletePurchase(ctx, "a"); err != nil {
		t.Fatalf("delete a: %v", err)
	}
	if err := e.DeletePurchase(ctx, "a"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	rows = fake.snapshot()
	if len(rows) != 2 || rows[1][0] != "b" {
		t.Fatalf("after delete: %v", rows)
	}
	if len(fake.deletes) != 1 {
		t.Fatalf("want 1 delete request, got %d", len(fake.deletes))
	}
	if d := fake.deletes[0]; d["sheetId"] == nil || rawInt(d["sheetId"]) != 0 || rawInt(d["startIndex"]) != 1 {
		t.Errorf("delete range = %v", fake.deletes[0])
	}

	// b moved from row 3 to row 2.
	if err := e.UpsertPurchase(ctx, testRow("b", "Pan", 2)); err != nil {
		t.Fatalf("update b: %v", err)
	}
	rows = fake.snapshot()
	if len(rows) != 2 || rows[1][8] != "2" {
		t.Errorf("row b not updated after shift: %v", rows)
	}
}

func TestExporter_StaleCachedPosition(t *testing.T) {
	ctx := context.Background()
	e, fake := newTestExporter(t)

	if err := e.UpsertPurchase(ctx, testRow("a", "Arroz", 1)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Someone inserts a row above ours by hand.
	fake.mu.Lock()
	fake.rows = append(fake.rows[:1], append([][]string{{"manual"}}, fake.rows[1:]...)...)
	fake.mu.Unlock()

	if err := e.UpsertPurchase(ctx, testRow("a", "Arroz", 5)); err != nil {
		t.Fatalf("update: %v", err)
	}
	rows := fake.snapshot()
	if len(rows) != 3 {
		t.Fatalf("update should not append, got %v", rows)
	}
	if rows[1][0] != "manual" || rows[2][0] != "a" || rows[2][8] != "5" {
		t.Errorf("rows = %v", rows)
	}
}

func TestExporter_RejectsEmptyID(t *testing.T) {
	e, _ := newTestExporter(t)
	if err := e.UpsertPurchase(context.Background(), ports.PurchaseRow{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{
		SpreadsheetID:   "test-id",
		CredentialsFile: t.TempDir() + string(os.PathSeparator) + "missing.json",
	})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}
