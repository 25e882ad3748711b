package session

import (
	"time"
)

// EventKind names the session changes reported to subscribers.
type EventKind string

const (
	// EventInitialSession is emitted once on subscription, carrying the session known at that time.
	EventInitialSession EventKind = "INITIAL_SESSION"
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
	EventUserUpdated    EventKind = "USER_UPDATED"
)

// Synthetic reports whether the event only replays known state instead of reporting a change.
func (k EventKind) Synthetic() bool { return k == EventInitialSession }

// User is the identity attached to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Session struct {
	Token         string    `json:"token"`
	User          *User     `json:"user"`
	EstablishedAt time.Time `json:"established_at"` // UTC
	ExpiresAt     time.Time `json:"expires_at"`     // UTC
}

// HasUser reports whether sess is a session carrying an identity.
func HasUser(sess *Session) bool {
	return sess != nil && sess.User != nil && sess.User.ID != ""
}

type Event struct {
	Kind    EventKind `json:"kind"`
	Session *Session  `json:"session"`
}
