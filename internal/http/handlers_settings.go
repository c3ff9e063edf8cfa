package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"pacecal/internal/core"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Settings())
}

// handlePutSettings replaces the settings wholesale, the same shape the
// GET returns. A changed sheet URL restarts the background sync so the
// new feed takes effect without waiting out the old timer.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var incoming core.Settings
	if err := decodeJSON(r, &incoming); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if incoming.GoalAmount < 0 {
		writeError(w, http.StatusUnprocessableEntity, "goalAmount must not be negative")
		return
	}
	for _, raw := range []string{incoming.GoalStart, incoming.GoalEnd} {
		if raw == "" {
			continue
		}
		if _, err := core.ParseDay(raw); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "goal dates must look like 2006-01-02")
			return
		}
	}

	previousURL := s.tracker.SheetURL()
	stored := s.tracker.UpdateSettings(r.Context(), incoming)

	if s.worker != nil && stored.SheetURL != previousURL {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.worker.Restart(ctx); err != nil {
				slog.WarnContext(ctx, "Sync worker restart failed", "error", err)
			}
		}()
	}

	writeJSON(w, http.StatusOK, stored)
}
