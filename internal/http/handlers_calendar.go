package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"pacecal/internal/core"
	"pacecal/internal/pacing"
)

// dayCell is one calendar square: total, entry count, remaining pace and
// the attainment tier against that pace.
type dayCell struct {
	Date    string  `json:"date"`
	Total   int64   `json:"total"`
	Entries int     `json:"entries"`
	Pace    float64 `json:"pace"`
	Tier    string  `json:"tier"`
}

type reportResponse struct {
	Report   pacing.Report      `json:"report"`
	Schedule map[string]float64 `json:"schedule"`
	Days     []dayCell          `json:"days"`
}

// handleReport returns the KPI report, the full pace schedule and the
// view month's day cells in one payload.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	today := core.StartOfDay(time.Now())
	report := s.tracker.Report(today, year, month)
	schedule := s.tracker.Schedule()

	store := s.tracker.Store()
	daysInMonth := core.DaysInMonth(year, month)
	cells := make([]dayCell, 0, daysInMonth)
	for d := 1; d <= daysInMonth; d++ {
		day := time.Date(year, time.Month(month), d, 0, 0, 0, 0, time.Local)
		key := core.FormatDay(day)
		total := store.TotalFor(day)
		cells = append(cells, dayCell{
			Date:    key,
			Total:   total,
			Entries: len(store.EntriesFor(day)),
			Pace:    schedule[key],
			Tier:    pacing.ClassifyDay(schedule, key, total).String(),
		})
	}

	writeJSON(w, http.StatusOK, reportResponse{
		Report:   report,
		Schedule: schedule,
		Days:     cells,
	})
}

// parseYearMonth extracts year and month from query parameters, with the
// current month as default.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}

	return year, month
}
