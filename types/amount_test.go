package types

import (
	"encoding/json"
	"testing"
)

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		units    uint64
		decimals uint8
		want     string
	}{
		{150, 0, "150"},
		{150, 2, "1.50"},
		{5, 2, "0.05"},
		{0, 2, "0.00"},
		{1000000, 18, "0.000000000001000000"},
		{1000000, 6, "1.000000"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatUnits(tt.units, tt.decimals); got != tt.want {
				t.Errorf("FormatUnits(%d, %d) = %q, want %q", tt.units, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		input    string
		decimals uint8
		want     uint64
		wantErr  bool
	}{
		{"150", 0, 150, false},
		{"1.5", 2, 150, false},
		{"1.50", 2, 150, false},
		{".05", 2, 5, false},
		{"1.505", 2, 0, true},
		{"", 2, 0, true},
		{"-1", 0, 0, true},
		{"abc", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseUnits(tt.input, tt.decimals)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseUnits(%q, %d) = %d, want %d", tt.input, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestAmountString(t *testing.T) {
	a := NewAmount(150, 2, "MHT")
	if a.String() != "1.50 MHT" {
		t.Errorf("got %q", a.String())
	}
	if NewAmount(7, 0, "").String() != "7" {
		t.Errorf("got %q", NewAmount(7, 0, "").String())
	}
}

func TestAmountJSONIncludesDisplay(t *testing.T) {
	data, err := json.Marshal(NewAmount(150, 2, "MHT"))
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["display"] != "1.50 MHT" {
		t.Errorf("display = %v", decoded["display"])
	}
}
