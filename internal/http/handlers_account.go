package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"pacecal/internal/amqp"
	"pacecal/internal/auth"
	"pacecal/internal/billing"
	"pacecal/internal/crm"
)

// EventPublisher hands usage events off to the telemetry queue.
type EventPublisher interface {
	PublishUsageEvent(ctx context.Context, msg *amqp.UsageEventMessage) error
}

type trackUsagePayload struct {
	Event     string `json:"event"`
	ContactID string `json:"contactId"`
	NoteText  string `json:"noteText"`
}

// handleTrackUsage records a usage event against the user's CRM contact.
// With a queue configured the event goes through it; otherwise the CRM is
// called inline. CRM failures never fail the request.
func (s *Server) handleTrackUsage(w http.ResponseWriter, r *http.Request) {
	var payload trackUsagePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Event == "" {
		payload.Event = "login"
	}

	claims, _ := auth.ClaimsFromContext(r.Context())

	if s.events != nil {
		msg := amqp.NewUsageEventMessage(claims.Subject, claims.Email, payload.ContactID, payload.Event, payload.NoteText)
		if err := s.events.PublishUsageEvent(r.Context(), msg); err != nil {
			slog.WarnContext(r.Context(), "Usage event publish failed", "error", err, "event", payload.Event)
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if s.crm != nil && s.crm.Enabled() {
		recordUsage(r.Context(), s.crm, claims, payload)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// recordUsage mirrors what the queue worker does, for queueless setups.
func recordUsage(ctx context.Context, client *crm.Client, claims auth.Claims, payload trackUsagePayload) {
	if payload.ContactID != "" {
		if err := client.AddContactNote(ctx, payload.ContactID, payload.NoteText); err != nil {
			slog.WarnContext(ctx, "CRM note failed", "error", err, "event", payload.Event)
		}
	}
	if claims.Email != "" || claims.Subject != "" {
		if err := client.RecordLastUsed(ctx, claims.Email, claims.Subject); err != nil {
			slog.WarnContext(ctx, "CRM last-used upsert failed", "error", err)
		}
	}
}

type billingPortalPayload struct {
	CustomerID string `json:"customerId"`
}

// handleBillingPortal opens a billing portal session and returns its URL.
func (s *Server) handleBillingPortal(w http.ResponseWriter, r *http.Request) {
	if s.billing == nil || !s.billing.Enabled() {
		writeError(w, http.StatusNotImplemented, "billing is not configured")
		return
	}

	var payload billingPortalPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	url, err := s.billing.CreatePortalSession(r.Context(), payload.CustomerID)
	switch {
	case errors.Is(err, billing.ErrNoCustomer):
		writeError(w, http.StatusUnauthorized, "Not authenticated or missing billing customer ID")
	case err != nil:
		slog.ErrorContext(r.Context(), "Billing portal session failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to create portal session")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}
