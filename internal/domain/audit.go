package domain

import "time"

// AuditEntry is one persisted record of a proxied request, the only
// durable visibility into backend latency.
type AuditEntry struct {
	ID         string    `json:"id"`
	Method     string    `json:"method"`
	TargetPath string    `json:"target_path"`
	Status     int       `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	CallerIP   string    `json:"caller_ip"`
	UserAgent  string    `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
}

// SessionRecord is the registry row for an issued session. The cookie
// remains the source of the token itself; the registry exists so that
// sign-out can revoke a session across processes.
type SessionRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	RevokedAt time.Time `json:"revoked_at,omitzero"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Revoked reports whether the session record has been revoked.
func (r *SessionRecord) Revoked() bool {
	return !r.RevokedAt.IsZero()
}
