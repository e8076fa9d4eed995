// Package queue defines the account event stream exchanged over the message
// broker: the payloads, a publisher used by the services, and the background
// consumer that keeps an audit trail.
package queue

import "time"

// Account event types.
const (
    EventRegistered      = "user.registered"
    EventLoggedIn        = "user.logged_in"
    EventLoggedOut       = "user.logged_out"
    EventTokenRefreshed  = "user.token_refreshed"
    EventPasswordChanged = "user.password_changed"
    EventProfileUpdated  = "user.profile_updated"
)

// AccountEvent is published after a state change on a user account.  It
// contains enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type AccountEvent struct {
    Type       string `json:"type"`
    UserID     string `json:"user_id"`
    Username   string `json:"username,omitempty"`
    Email      string `json:"email,omitempty"`
    OccurredAt string `json:"occurred_at"`
}

// NewAccountEvent stamps an event with the current UTC time.
func NewAccountEvent(typ, userID, username, email string) AccountEvent {
    return AccountEvent{
        Type:       typ,
        UserID:     userID,
        Username:   username,
        Email:      email,
        OccurredAt: time.Now().UTC().Format(time.RFC3339),
    }
}
