package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const (
	// MaxLabelLen caps entry labels at the boundary.
	MaxLabelLen = 64

	// DefaultLabel replaces empty labels so stored entries always name something.
	DefaultLabel = "Sale"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyEntry    = errors.New("empty entry")
)

// Entry is a single dated monetary record. Amount is a positive whole
// currency unit; fractional input is rounded at the boundary and
// non-positive amounts are never stored.
type Entry struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// NormalizeEntry trims and caps the label, defaults it when empty, and
// rounds the raw amount. The returned ok is false when the entry must be
// dropped (non-finite or non-positive amount).
func NormalizeEntry(label string, amount float64) (Entry, bool) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Entry{}, false
	}
	rounded := int64(math.Round(amount))
	if rounded <= 0 {
		return Entry{}, false
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = DefaultLabel
	}
	if len(label) > MaxLabelLen {
		label = label[:MaxLabelLen]
	}
	return Entry{Label: label, Amount: rounded}, true
}

// ValidateEntry is the request/response boundary for interactive entry
// input: it either returns a normalized Entry or a typed validation error.
// The presentation layer drives the dialog loop around it.
func ValidateEntry(label string, amount float64) (Entry, error) {
	e, ok := NormalizeEntry(label, amount)
	if !ok {
		return Entry{}, ErrInvalidAmount
	}
	return e, nil
}

// ParseAmount extracts a monetary value from free-form text by stripping
// every character except digits, dot and minus before parsing. Returns
// ErrInvalidAmount when nothing numeric remains.
func ParseAmount(s string) (float64, error) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
