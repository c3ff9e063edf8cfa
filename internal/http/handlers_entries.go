package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"pacecal/internal/core"
	"pacecal/internal/tracker"
)

type entryPayload struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

type dayEntriesResponse struct {
	Date    string       `json:"date"`
	Entries []core.Entry `json:"entries"`
	Total   int64        `json:"total"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dayEntriesResponse{
		Date:    core.FormatDay(day),
		Entries: s.tracker.EntriesFor(day),
		Total:   s.tracker.Store().TotalFor(day),
	})
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	var payload entryPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := s.tracker.AddEntry(r.Context(), day, payload.Label, payload.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	slog.InfoContext(r.Context(), "Entry added",
		"day", core.FormatDay(day),
		"label", entry.Label,
		"amount", entry.Amount)
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var payload entryPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := s.tracker.UpdateEntry(r.Context(), day, index, payload.Label, payload.Amount)
	switch {
	case errors.Is(err, tracker.ErrNoSuchEntry):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeJSON(w, http.StatusOK, entry)
	}
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}

	if err := s.tracker.DeleteEntry(r.Context(), day, index); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathDay parses the {day} path segment, responding 400 on bad input.
func pathDay(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	day, err := core.ParseDay(r.PathValue("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "day must look like 2006-01-02")
		return time.Time{}, false
	}
	return day, true
}

// pathIndex parses the {index} path segment, responding 400 on bad input.
func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "index must be a non-negative integer")
		return 0, false
	}
	return index, true
}
