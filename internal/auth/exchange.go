package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/collabhub/gateway/internal/domain"
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh"
)

// Credentials is what a caller presents to log in: either email+password
// or a single opaque guest token.
type Credentials struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	GuestToken string `json:"token"`
}

// Result is a successful credential exchange: the backend's user record
// plus the session that carries the access token.
type Result struct {
	User    *domain.User
	Session *domain.Session
}

// Config wires the Exchanger to the backend identity endpoint.
type Config struct {
	BackendBaseURL string
	ClientAPIKey   string

	// Guest access: when a caller presents GuestToken, the fixed guest
	// identity's credentials are substituted server-side. The real guest
	// credentials are never exposed to the caller.
	GuestToken    string
	GuestEmail    string
	GuestPassword string
}

// Exchanger validates credentials against the backend identity service
// and produces sessions. It never returns an error from Login: every
// failure collapses into the absence of a Result, so no partial session
// can ever be created.
type Exchanger struct {
	cfg        Config
	httpClient *http.Client
}

// NewExchanger creates a credential exchange service. A nil client falls
// back to a default http.Client, matching how outbound adapters are
// constructed elsewhere.
func NewExchanger(cfg Config, client *http.Client) *Exchanger {
	if client == nil {
		client = &http.Client{}
	}
	return &Exchanger{cfg: cfg, httpClient: client}
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Data struct {
		User        *domain.User `json:"user"`
		AccessToken string       `json:"access_token"`
	} `json:"data"`
}

// Login exchanges credentials for a session. Returns nil when
// authentication did not succeed, for any reason: missing credentials,
// a non-201 backend response, or a transport failure.
func (e *Exchanger) Login(ctx context.Context, creds Credentials) *Result {
	payload := loginPayload{Email: creds.Email, Password: creds.Password}

	if creds.GuestToken != "" {
		if e.cfg.GuestToken == "" || creds.GuestToken != e.cfg.GuestToken {
			return nil
		}
		payload = loginPayload{Email: e.cfg.GuestEmail, Password: e.cfg.GuestPassword}
	}

	if payload.Email == "" || payload.Password == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BackendBaseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-api-key", e.cfg.ClientAPIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		slog.Debug("login request failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		slog.Debug("login response decode failed", "error", err)
		return nil
	}
	if lr.Data.User == nil || lr.Data.AccessToken == "" {
		return nil
	}

	return &Result{
		User:    lr.Data.User,
		Session: &domain.Session{AccessToken: lr.Data.AccessToken},
	}
}

type refreshPayload struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	Data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	} `json:"data"`
}

// Refresh exchanges the session's refresh token for a new access token.
// On failure the session is returned with its error state set rather
// than deleted, so the caller can distinguish "degraded" from "gone".
//
// The expiry check that would trigger this call is gated behind
// SESSION_REFRESH_ENABLED and is off by default.
func (e *Exchanger) Refresh(ctx context.Context, s *domain.Session) *domain.Session {
	if s == nil {
		return nil
	}

	failed := func() *domain.Session {
		out := *s
		out.Error = domain.SessionErrorRefreshFailed
		return &out
	}

	if s.RefreshToken == "" {
		return failed()
	}

	body, err := json.Marshal(refreshPayload{RefreshToken: s.RefreshToken})
	if err != nil {
		return failed()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BackendBaseURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		return failed()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	req.Header.Set("x-client-api-key", e.cfg.ClientAPIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		slog.Error("refresh request failed", "error", err)
		return failed()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failed()
	}

	var rr refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil || rr.Data.AccessToken == "" {
		return failed()
	}

	out := *s
	out.AccessToken = rr.Data.AccessToken
	out.Error = ""
	if rr.Data.RefreshToken != "" {
		out.RefreshToken = rr.Data.RefreshToken
	}
	return &out
}
