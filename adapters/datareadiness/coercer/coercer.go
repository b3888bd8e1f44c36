package coercer

import (
	"math"
	"strconv"
	"strings"
)

// TypeCoercer converts raw spreadsheet cell text into typed values. Blank,
// malformed and non-finite input degrades to nil rather than an error.
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the characters stripped before numeric parsing
type CoercionConfig struct {
	StripChars       string `json:"strip_chars"`       // removed anywhere in the cell
	RequireIntegral  bool   `json:"require_integral"`  // integer parsing rejects fractional values
	NormalizeStrings bool   `json:"normalize_strings"` // trim surrounding whitespace
}

// DefaultCoercionConfig strips percent signs, spaces and thousands separators.
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		StripChars:       "% ,",
		RequireIntegral:  true,
		NormalizeStrings: true,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	return &TypeCoercer{config: config}
}

// Number parses a numeric cell such as "45%", "1,234" or " 3.5 ".
func (c *TypeCoercer) Number(raw string) *float64 {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(c.config.StripChars, r) {
			return -1
		}
		return r
	}, raw)
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return nil
	}

	val, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return nil
	}
	return &val
}

// Integer parses a numeric cell and returns it as an int. With
// RequireIntegral set, "2023.5" yields nil; otherwise it truncates.
func (c *TypeCoercer) Integer(raw string) *int {
	f := c.Number(raw)
	if f == nil {
		return nil
	}
	if c.config.RequireIntegral && *f != math.Trunc(*f) {
		return nil
	}
	if *f > math.MaxInt32 || *f < math.MinInt32 {
		return nil
	}
	n := int(*f)
	return &n
}

// Text returns the cell text, trimmed when NormalizeStrings is set, or nil
// for a blank cell.
func (c *TypeCoercer) Text(raw string) *string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if c.config.NormalizeStrings {
		raw = strings.TrimSpace(raw)
	}
	return &raw
}
