// Package notifications fans admin auth events out to in-process
// subscribers and, when Redis is available, to other instances.
package notifications

import "time"

// AuthEventType names an auth state change.
type AuthEventType string

const (
	EventSignedIn        AuthEventType = "SIGNED_IN"
	EventSignedUp        AuthEventType = "SIGNED_UP"
	EventSignedOut       AuthEventType = "SIGNED_OUT"
	EventPasswordUpdated AuthEventType = "PASSWORD_UPDATED"
)

// AuthEvent is one auth state change of an admin account.
type AuthEvent struct {
	Type   AuthEventType `json:"type"`
	UserID uint          `json:"user_id"`
	Email  string        `json:"email"`
	At     time.Time     `json:"at"`
}

// AuthChannel is the Redis channel auth events travel on.
const AuthChannel = "auth:events"
