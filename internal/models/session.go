package models

import "time"

// Session is one user's view-model state. It is stored apart from the member
// collection and expires with the session token.
type Session struct {
	ID          string    `json:"id"`
	CurrentName string    `json:"currentName,omitempty"`
	PendingName string    `json:"pendingName,omitempty"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
