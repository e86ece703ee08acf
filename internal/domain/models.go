package domain

import (
	"fmt"
	"time"
)

// StatusUnknown is the status code recorded before the first probe and after a
// probe that never reached the target.
const StatusUnknown = -1

// ResourceStatus is the latest observation of the monitored target.
type ResourceStatus struct {
	Name           string    `json:"name"`
	Target         string    `json:"target"`
	LastStatusCode int       `json:"last_status_code"`
	LastError      string    `json:"last_error,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

// IsUp reports whether the last probe returned 200 or 202.
func (s ResourceStatus) IsUp() bool {
	return s.LastStatusCode == 200 || s.LastStatusCode == 202
}

// Report is the text sent to subscribers and returned by /status. When the
// last probe got no response the error is appended.
func (s ResourceStatus) Report() string {
	r := fmt.Sprintf("%s: status code %d for %s", s.Name, s.LastStatusCode, s.Target)
	if s.LastError != "" {
		r += " (error: " + s.LastError + ")"
	}
	return r
}

type Subscriber struct {
	ExternalID int64  `json:"tg_id"`
	ChatID     int64  `json:"current_chat_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Username   string `json:"username"`
	Subscribed bool   `json:"receiving_updates"`
}

// Same compares identities only; chat and name fields may differ.
func (s Subscriber) Same(o Subscriber) bool {
	return s.ExternalID == o.ExternalID
}
