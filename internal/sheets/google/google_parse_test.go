package google

import "testing"

func TestParseRowNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"Compras!A12:K12", 12, false},
		{"'Mis compras'!A3:K3", 3, false},
		{"Compras!$A$7", 7, false},
		{"A1", 1, false},
		{"Compras!A:K", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRowNumber(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestA1(t *testing.T) {
	tests := []struct {
		sheet, rng, want string
	}{
		{"Compras", "A:A", "Compras!A:A"},
		{"Mis compras", "A1:K1", "'Mis compras'!A1:K1"},
		{"It's", "A1", "'It''s'!A1"},
	}
	for _, tt := range tests {
		if got := a1(tt.sheet, tt.rng); got != tt.want {
			t.Errorf("a1(%q, %q) = %q, want %q", tt.sheet, tt.rng, got, tt.want)
		}
	}
}
