package domain

import "time"

// SessionError marks a session that is still present but degraded.
type SessionError string

const (
	// SessionErrorRefreshFailed is set when a token refresh attempt fails.
	// The session keeps its (possibly stale) access token so the caller can
	// decide whether to force a new login.
	SessionErrorRefreshFailed SessionError = "RefreshAccessTokenError"
)

// Session is the token-bearing object proving the current user's
// authentication to the backend. It is created on successful credential
// exchange and invalidated on sign-out or on an authorization failure.
type Session struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time    `json:"expires_at,omitzero"`
	Error        SessionError `json:"error,omitempty"`
}

// Authenticated reports whether the session carries an access token.
// A session without one must never be attached to outbound requests.
func (s *Session) Authenticated() bool {
	return s != nil && s.AccessToken != ""
}

// Expired reports whether the session's access token has passed its
// expiry, if one is known. Sessions without an expiry never expire here;
// the backend's 401 is the mechanism of record.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// User is the backend's user record as returned by the login endpoint.
// Only the fields the gateway cares about are mapped.
type User struct {
	ID      string  `json:"id"`
	Email   string  `json:"email"`
	Name    string  `json:"name"`
	Profile Profile `json:"profile"`
}

// Profile is the subset of the backend profile the gateway reads.
type Profile struct {
	// RequiresUpdate gates mutating calls until account setup completes.
	RequiresUpdate bool `json:"requires_update"`
}

// AccountState is the client-side view of account completion.
type AccountState struct {
	RequiresUpdate bool
}
