// Package types provides common types shared by the token ledger packages.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Amount is a token quantity in base units together with the display
// precision of its token. All arithmetic stays on the integer Units.
//
// Examples:
//   - Amount{Units: 150, Decimals: 0, Symbol: "MHT"} = "150 MHT"
//   - Amount{Units: 150, Decimals: 2, Symbol: "MHT"} = "1.50 MHT"
type Amount struct {
	Units    uint64 `json:"units"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
}

// NewAmount creates an Amount.
func NewAmount(units uint64, decimals uint8, symbol string) Amount {
	return Amount{Units: units, Decimals: decimals, Symbol: symbol}
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a.Units == 0 }

// FormatMajor returns the amount in whole-token notation without a symbol.
func (a Amount) FormatMajor() string {
	return FormatUnits(a.Units, a.Decimals)
}

// String returns the amount with its symbol, e.g. "1.50 MHT".
func (a Amount) String() string {
	if a.Symbol == "" {
		return a.FormatMajor()
	}
	return a.FormatMajor() + " " + a.Symbol
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Units    uint64 `json:"units"`
		Decimals uint8  `json:"decimals"`
		Symbol   string `json:"symbol"`
		Display  string `json:"display"`
	}{
		Units:    a.Units,
		Decimals: a.Decimals,
		Symbol:   a.Symbol,
		Display:  a.String(),
	})
}

// FormatUnits renders base units with the given number of decimals.
// FormatUnits(150, 2) == "1.50"; FormatUnits(150, 0) == "150".
func FormatUnits(units uint64, decimals uint8) string {
	s := strconv.FormatUint(units, 10)
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	return s[:len(s)-d] + "." + s[len(s)-d:]
}

// ParseUnits parses a whole-token decimal string into base units.
// ParseUnits("1.5", 2) == 150. More fractional digits than decimals is an error.
func ParseUnits(s string, decimals uint8) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount: parse %q: empty string", s)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && len(frac) > int(decimals) {
		return 0, fmt.Errorf("amount: parse %q: more than %d fractional digits", s, decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))
	if whole == "" {
		whole = "0"
	}

	units, err := strconv.ParseUint(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount: parse %q: %w", s, err)
	}
	return units, nil
}
