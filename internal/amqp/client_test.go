package amqp

import (
	"testing"
	"time"
)

func TestNewUsageEventMessage(t *testing.T) {
	msg := NewUsageEventMessage("auth0|u1", "user@example.com", "contact-1", "login", "")

	if msg.Subject != "auth0|u1" || msg.Email != "user@example.com" {
		t.Fatalf("message = %+v", msg)
	}
	if msg.Event != "login" {
		t.Fatalf("event = %q", msg.Event)
	}
	if msg.Timestamp.IsZero() || time.Since(msg.Timestamp) > time.Second {
		t.Fatalf("timestamp = %v", msg.Timestamp)
	}
}

func TestUsageEventMessageJSON(t *testing.T) {
	msg := &UsageEventMessage{
		Subject:   "auth0|u1",
		ContactID: "contact-1",
		Event:     "login",
		Note:      "opened the calendar",
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	parsed, err := UsageEventMessageFromJSON(raw)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if parsed.Subject != msg.Subject || parsed.Note != msg.Note || !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Fatalf("parsed = %+v", parsed)
	}
	if parsed.Email != "" {
		t.Fatalf("email should round-trip empty, got %q", parsed.Email)
	}
}

func TestUsageEventMessageInvalidJSON(t *testing.T) {
	if _, err := UsageEventMessageFromJSON([]byte(`{"event": 7}`)); err == nil {
		t.Fatal("invalid JSON should error")
	}
}
