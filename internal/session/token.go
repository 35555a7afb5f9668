package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/collabhub/gateway/internal/domain"
)

// CookieName is the cookie carrying the signed session token.
const CookieName = "collabhub_session"

// Codec signs and verifies the opaque session token stored in the cookie.
// The token is an HS256-signed claims blob; nothing in it is secret, the
// signature only guarantees the gateway issued it.
type Codec struct {
	Secret string
	MaxAge time.Duration
}

// claims is the signed session payload.
type claims struct {
	SessionID    string `json:"sid"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenExpires int64  `json:"token_expires,omitempty"`
	Error        string `json:"error,omitempty"`
	IssuedAt     int64  `json:"iat"`
	ExpiresAt    int64  `json:"exp"`
}

// Encode signs the session into a token. Each call stamps a fresh
// cookie-level expiry, which is what makes the 30-day lifetime sliding.
func (c *Codec) Encode(s *domain.Session, sessionID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("session: encode nil session")
	}
	now := time.Now()
	cl := claims{
		SessionID:    sessionID,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Error:        string(s.Error),
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(c.MaxAge).Unix(),
	}
	if !s.ExpiresAt.IsZero() {
		cl.TokenExpires = s.ExpiresAt.Unix()
	}

	payload, err := json.Marshal(cl)
	if err != nil {
		return "", fmt.Errorf("session: marshal claims: %w", err)
	}
	payloadB64 := base64.RawURLEncoding.EncodeToString(payload)
	return payloadB64 + "." + sign(payloadB64, c.Secret), nil
}

// Decode verifies the token signature and expiry and returns the session
// plus the registry session id it was issued under.
func (c *Codec) Decode(token string) (*domain.Session, string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return nil, "", fmt.Errorf("session: invalid token format")
	}

	if !hmac.Equal([]byte(parts[1]), []byte(sign(parts[0], c.Secret))) {
		return nil, "", fmt.Errorf("session: invalid token signature")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, "", fmt.Errorf("session: invalid token encoding")
	}

	var cl claims
	if err := json.Unmarshal(payload, &cl); err != nil {
		return nil, "", fmt.Errorf("session: invalid token claims")
	}

	if time.Now().Unix() > cl.ExpiresAt {
		return nil, "", fmt.Errorf("session: token expired")
	}

	s := &domain.Session{
		AccessToken:  cl.AccessToken,
		RefreshToken: cl.RefreshToken,
		Error:        domain.SessionError(cl.Error),
	}
	if cl.TokenExpires != 0 {
		s.ExpiresAt = time.Unix(cl.TokenExpires, 0)
	}
	return s, cl.SessionID, nil
}

func sign(input, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(input))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
