package importer

import (
	"encoding/csv"
	"errors"
	"strconv"
	"strings"
	"time"

	"pacecal/internal/core"
)

// ErrNoValidRows is returned when a feed parses but produces nothing
// storable, usually because the column shapes were not recognized.
var ErrNoValidRows = errors.New(
	"no valid rows found in feed; expected columns like Date, Label, Amount")

// Spreadsheet serial dates count days since this epoch.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// columns holds the detected layout of the feed.
type columns struct {
	date, label, amount int
	headerRow           bool
}

// Result reports what an import produced.
type Result struct {
	Entries int `json:"entries"`
	Days    int `json:"days"`
}

// ParseCSV decodes a CSV body (quoted fields, embedded commas, doubled
// quotes, CRLF or LF endings) and normalizes it into the ledger's
// date-keyed shape.
func ParseCSV(body []byte) (map[string][]core.Entry, Result, error) {
	rows, err := newCSVReader(string(body)).ReadAll()
	if err != nil {
		return nil, Result{}, err
	}
	return ParseRows(rows)
}

// ParseRows normalizes a row matrix (from CSV or a spreadsheet API) into
// ledger entries. Rows with unparseable dates or non-positive amounts are
// skipped; zero surviving rows is an error so a mis-published sheet never
// silently wipes the ledger.
func ParseRows(rows [][]string) (map[string][]core.Entry, Result, error) {
	if len(rows) == 0 {
		return nil, Result{}, ErrNoValidRows
	}

	cols := detectColumns(rows[0])
	start := 0
	if cols.headerRow {
		start = 1
	}

	days := make(map[string][]core.Entry)
	entries := 0
	for _, row := range rows[start:] {
		date, ok := parseCellDate(cell(row, cols.date))
		if !ok {
			continue
		}
		amount, err := core.ParseAmount(cell(row, cols.amount))
		if err != nil {
			continue
		}
		entry, ok := core.NormalizeEntry(cell(row, cols.label), amount)
		if !ok {
			continue
		}
		key := core.FormatDay(date)
		days[key] = append(days[key], entry)
		entries++
	}

	if entries == 0 {
		return nil, Result{}, ErrNoValidRows
	}
	return days, Result{Entries: entries, Days: len(days)}, nil
}

// detectColumns looks for named header columns, case-insensitively: "date",
// one of label/name/description, and one of amount/value/total/sales/
// revenue. When a date and an amount column are not both found by name the
// layout falls back to positional 0/1/2 and the first row is data.
func detectColumns(header []string) columns {
	cols := columns{date: -1, label: -1, amount: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			if cols.date == -1 {
				cols.date = i
			}
		case "label", "name", "description":
			if cols.label == -1 {
				cols.label = i
			}
		case "amount", "value", "total", "sales", "revenue":
			if cols.amount == -1 {
				cols.amount = i
			}
		}
	}
	if cols.date == -1 || cols.amount == -1 {
		return columns{date: 0, label: 1, amount: 2, headerRow: false}
	}
	if cols.label == -1 {
		cols.label = 1
	}
	cols.headerRow = true
	return cols
}

// parseCellDate accepts native date strings, spreadsheet serial numbers
// (days since 1899-12-30, UTC-based) and M/D/YYYY or M-D-YY shapes with a
// two-digit-year pivot at 70.
func parseCellDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	layouts := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006/01/02",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 Jan 2006",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return core.StartOfDay(t), true
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < 1 || serial > 500000 {
			return time.Time{}, false
		}
		t := serialEpoch.AddDate(0, 0, int(serial))
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local), true
	}

	return parseSlashDate(s)
}

// parseSlashDate handles M/D/YYYY and M-D-YY with the 2-digit pivot:
// years >= 70 land in the 1900s, the rest in the 2000s.
func parseSlashDate(s string) (time.Time, bool) {
	sep := "/"
	if !strings.Contains(s, "/") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	month, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	day, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	year, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	if year < 100 {
		if year >= 70 {
			year += 1900
		} else {
			year += 2000
		}
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local), true
}

// Variable-width rows are fine; short rows read as empty cells.
func newCSVReader(body string) *csv.Reader {
	r := csv.NewReader(strings.NewReader(body))
	r.FieldsPerRecord = -1
	return r
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
