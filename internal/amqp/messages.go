package amqp

import (
	"encoding/json"
	"time"
)

// UsageEventMessage carries one usage event from the calendar API to the
// CRM worker: who did what, when. The worker turns it into contact notes
// and a last-used stamp.
type UsageEventMessage struct {
	Subject   string    `json:"subject"`
	Email     string    `json:"email,omitempty"`
	ContactID string    `json:"contactId,omitempty"`
	Event     string    `json:"event"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUsageEventMessage stamps a usage event with the current time.
func NewUsageEventMessage(subject, email, contactID, event, note string) *UsageEventMessage {
	return &UsageEventMessage{
		Subject:   subject,
		Email:     email,
		ContactID: contactID,
		Event:     event,
		Note:      note,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *UsageEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// UsageEventMessageFromJSON creates a message from JSON bytes.
func UsageEventMessageFromJSON(data []byte) (*UsageEventMessage, error) {
	var msg UsageEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
