package model

import (
	"encoding/json"
	"testing"
)

func TestJSONBString(t *testing.T) {
	fields := JSONB{
		"nama":      "Posko Blang",
		"jumlah_kk": float64(12),
		"kapasitas": 40,
		"luas":      2.5,
		"aktif":     true,
		"kosong":    "",
		"tidak_ada": nil,
		"fasilitas": map[string]interface{}{"mck": 2},
		"koordinat": []interface{}{5.55, 95.32},
	}

	tests := []struct {
		key  string
		want string
	}{
		{"nama", "Posko Blang"},
		{"jumlah_kk", "12"},
		{"kapasitas", "40"},
		{"luas", "2.5"},
		{"aktif", "true"},
		{"kosong", ""},
		{"tidak_ada", ""},
		{"hilang", ""},
		{"fasilitas", ""},
		{"koordinat", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := fields.String(tt.key); got != tt.want {
				t.Errorf("String(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestJSONBStringAfterRoundTrip(t *testing.T) {
	// Values coming back out of the database arrive as json types; integral
	// numbers must still render without a decimal tail.
	raw, err := json.Marshal(JSONB{"jumlah_kk": 12, "nested": map[string]interface{}{"a": 1}})
	if err != nil {
		t.Fatal(err)
	}

	var fields JSONB
	if err := fields.Scan(raw); err != nil {
		t.Fatal(err)
	}

	if got := fields.String("jumlah_kk"); got != "12" {
		t.Errorf("jumlah_kk = %q, want 12", got)
	}
	if got := fields.String("nested"); got != "" {
		t.Errorf("nested = %q, want empty", got)
	}
}
