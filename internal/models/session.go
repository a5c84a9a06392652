// ABOUTME: Serializable conversational search session state
// ABOUTME: Owned by the caller (CLI loop or HTTP handler), passed in and out
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionTurn is one exchange in a conversational search session.
type SessionTurn struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session accumulates query state across conversational turns. It has
// no persistence of its own; callers serialize it if they want
// sessions to outlive the process.
type Session struct {
	SessionID string        `json:"session_id"`
	BaseQuery string        `json:"base_query,omitempty"`
	Filters   Filters       `json:"filters,omitempty"`
	History   []SessionTurn `json:"history,omitempty"`
}

// NewSession creates an empty session with a fresh identifier.
func NewSession() *Session {
	return &Session{
		SessionID: fmt.Sprintf("sess_%s", uuid.New().String()[:8]),
	}
}

// AddTurn appends a conversation turn to the history.
func (s *Session) AddTurn(role, content string) {
	s.History = append(s.History, SessionTurn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

// RecentHistory returns up to the last n turns.
func (s *Session) RecentHistory(n int) []SessionTurn {
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// MergeFilters overlays non-zero fields of f onto the session filters.
func (s *Session) MergeFilters(f Filters) {
	if f.Followers != nil {
		s.Filters.Followers = f.Followers
	}
	if f.AccountType != "" {
		s.Filters.AccountType = f.AccountType
	}
	if f.Username != "" {
		s.Filters.Username = f.Username
	}
}

// FilterSummary renders the active filters for display.
func (s *Session) FilterSummary() string {
	if s.Filters.Empty() {
		return "No filters applied"
	}
	var parts []string
	if s.Filters.Followers != nil {
		if s.Filters.Followers.Max > 0 {
			parts = append(parts, fmt.Sprintf("Followers: %d-%d", s.Filters.Followers.Min, s.Filters.Followers.Max))
		} else {
			parts = append(parts, fmt.Sprintf("Min followers: %d", s.Filters.Followers.Min))
		}
	}
	if s.Filters.AccountType != "" {
		parts = append(parts, fmt.Sprintf("Account type: %s", s.Filters.AccountType))
	}
	if s.Filters.Username != "" {
		parts = append(parts, fmt.Sprintf("Username: %s", s.Filters.Username))
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

// Marshal serializes the session for storage by the caller.
func (s *Session) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSession restores a session serialized by Marshal.
func UnmarshalSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &s, nil
}
