package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type recorded struct {
	method  string
	path    string
	auth    string
	version string
	body    map[string]any
}

func newTestClient(t *testing.T, status int) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, recorded{
			method:  r.Method,
			path:    r.URL.EscapedPath(),
			auth:    r.Header.Get("Authorization"),
			version: r.Header.Get("Version"),
			body:    body,
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	c := New(Config{
		Token:           "crm-token",
		LocationID:      "loc-1",
		LastUsedFieldID: "field-9",
		BaseURL:         srv.URL,
	}, srv.Client())
	return c, &calls
}

func TestAddContactNote(t *testing.T) {
	c, calls := newTestClient(t, http.StatusCreated)

	if err := c.AddContactNote(context.Background(), "contact/42", "opened the calendar"); err != nil {
		t.Fatalf("AddContactNote: %v", err)
	}
	got := (*calls)[0]
	if got.method != http.MethodPost || got.path != "/contacts/contact%2F42/notes" {
		t.Fatalf("request = %s %s", got.method, got.path)
	}
	if got.auth != "Bearer crm-token" || got.version != "2021-07-28" {
		t.Fatalf("headers = %q %q", got.auth, got.version)
	}
	if got.body["body"] != "opened the calendar" {
		t.Fatalf("body = %+v", got.body)
	}
}

func TestAddContactNoteDefaultsText(t *testing.T) {
	c, calls := newTestClient(t, http.StatusOK)
	if err := c.AddContactNote(context.Background(), "c-1", "   "); err != nil {
		t.Fatalf("AddContactNote: %v", err)
	}
	if (*calls)[0].body["body"] != DefaultNoteText {
		t.Fatalf("body = %+v", (*calls)[0].body)
	}
}

func TestAddContactNoteRequiresContact(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK)
	if err := c.AddContactNote(context.Background(), "", "hi"); err == nil {
		t.Fatal("empty contact id should be rejected")
	}
}

func TestRecordLastUsed(t *testing.T) {
	c, calls := newTestClient(t, http.StatusOK)

	before := time.Now().UTC().Add(-time.Second)
	if err := c.RecordLastUsed(context.Background(), "user@example.com", "auth0|u1"); err != nil {
		t.Fatalf("RecordLastUsed: %v", err)
	}
	got := (*calls)[0]
	if got.path != "/contacts/upsert" {
		t.Fatalf("path = %s", got.path)
	}
	if got.body["locationId"] != "loc-1" || got.body["email"] != "user@example.com" {
		t.Fatalf("body = %+v", got.body)
	}
	fields := got.body["customFields"].([]any)
	field := fields[0].(map[string]any)
	if field["id"] != "field-9" {
		t.Fatalf("custom field = %+v", field)
	}
	stamp, err := time.Parse(time.RFC3339, field["value"].(string))
	if err != nil || stamp.Before(before) {
		t.Fatalf("timestamp = %v (%v)", field["value"], err)
	}
}

func TestRecordLastUsedConfigGuards(t *testing.T) {
	c := New(Config{Token: "t"}, nil)
	if err := c.RecordLastUsed(context.Background(), "a@b.c", "sub"); err == nil {
		t.Fatal("missing location/field config should error")
	}

	c, _ = newTestClient(t, http.StatusOK)
	if err := c.RecordLastUsed(context.Background(), "", ""); err == nil {
		t.Fatal("missing identity should error")
	}
}

func TestErrorStatusSurfaces(t *testing.T) {
	c, _ := newTestClient(t, http.StatusForbidden)
	err := c.AddContactNote(context.Background(), "c-1", "hi")
	if err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestEnabled(t *testing.T) {
	if New(Config{}, nil).Enabled() {
		t.Fatal("no token should mean disabled")
	}
	if !New(Config{Token: "t"}, nil).Enabled() {
		t.Fatal("token should mean enabled")
	}
}
