package http

import (
	"errors"
	"log/slog"
	"net/http"

	"pacecal/internal/importer"
	"pacecal/internal/tracker"
)

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"syncing": s.tracker.Syncing()})
}

// handleSync triggers an immediate import from the configured sheet,
// replacing the ledger on success.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.tracker.SyncFromSheet(r.Context())
	switch {
	case errors.Is(err, importer.ErrSyncInProgress):
		writeError(w, http.StatusConflict, "already syncing")
	case errors.Is(err, tracker.ErrNoSheetURL):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		slog.WarnContext(r.Context(), "Manual sheet sync failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		slog.InfoContext(r.Context(), "Manual sheet sync completed",
			"entries", res.Entries,
			"days", res.Days)
		writeJSON(w, http.StatusOK, res)
	}
}
