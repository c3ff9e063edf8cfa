// Package importer converts an external spreadsheet feed into ledger
// entries: share-link normalization, CSV fetch and parse, column
// detection, and date/amount cleanup. A successful import replaces the
// whole ledger; a failed one leaves it untouched.
package importer

import (
	"fmt"
	"regexp"
)

var (
	sheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	gidPattern     = regexp.MustCompile(`[#?&]gid=([0-9]+)`)
)

// NormalizeShareURL rewrites known spreadsheet share-link shapes into a
// direct CSV-export URL, carrying the sheet-tab id along when present.
// URLs it does not recognize pass through unchanged so users can point at
// any feed that already serves CSV.
func NormalizeShareURL(raw string) string {
	m := sheetIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	out := fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=csv", m[1])
	if g := gidPattern.FindStringSubmatch(raw); g != nil {
		out += "&gid=" + g[1]
	}
	return out
}
