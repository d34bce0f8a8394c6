package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentWorker, Handler: slog.NewJSONHandler(&buf, nil)})

	l.With("batch", 3).Info("sweep done")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec[FieldComponent] != ComponentWorker || rec["batch"] != float64(3) {
		t.Errorf("record = %v", rec)
	}
	if l.WithComponent(ComponentAMQP).Component() != ComponentAMQP {
		t.Error("WithComponent did not switch component")
	}
}

func TestFanoutHandler_RespectsLevels(t *testing.T) {
	var text, js bytes.Buffer
	h := NewFanoutHandler(
		slog.NewTextHandler(&text, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&js, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h).With("k", "v")

	logger.Debug("debug only")
	logger.Warn("both")

	if strings.Contains(text.String(), "debug only") {
		t.Error("text handler should drop debug")
	}
	if !strings.Contains(text.String(), "both") || !strings.Contains(text.String(), "k=v") {
		t.Errorf("text = %q", text.String())
	}
	if strings.Count(js.String(), "\n") != 2 {
		t.Errorf("json handler should get both records: %q", js.String())
	}
}

func TestStructuredLogger_LevelForStatus(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Component: ComponentHTTP, Handler: slog.NewJSONHandler(&buf, nil)}))
	r := httptest.NewRequest(http.MethodGet, "/api/purchases?q=pan", nil)

	sl.LogHTTPEnd(context.Background(), r, "req_1", 503, 12, "10.0.0.1")
	sl.LogError(context.Background(), "boom", errors.New("disk full"), OpCreate, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 records, got %d", len(lines))
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["level"] != "ERROR" || rec[FieldStatusCode] != float64(503) || rec[FieldQuery] != "q=pan" {
		t.Errorf("record = %v", rec)
	}
	if LevelForStatus(404) != slog.LevelWarn || LevelForStatus(200) != slog.LevelInfo {
		t.Error("unexpected level mapping")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("missing logger should fall back to default")
	}
	l := Default(ComponentAuth)
	if FromContext(WithLogger(context.Background(), l)) != l {
		t.Error("logger not carried by context")
	}
}
