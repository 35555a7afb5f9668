package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/collabhub/gateway/internal/session"
)

// ProfileUpdateRequiredMessage is the fixed message for the local
// pre-flight block; the call never reaches the network.
const ProfileUpdateRequiredMessage = "Please update your profile to unlock full access!"

// Error is the single failure shape every call surfaces: a local
// pre-flight rejection, a transport failure or a backend error all
// carry a human-readable message. Local is true only for the
// pre-flight block, which is synthesized without a network round-trip.
type Error struct {
	Message string
	Status  int // 0 when no HTTP response was involved
	Local   bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// AccountStateSource reports whether the account still requires setup.
// It is read-only from the client's perspective.
type AccountStateSource interface {
	RequiresUpdate(ctx context.Context) bool
}

// AccountStateFunc adapts a function to AccountStateSource.
type AccountStateFunc func(ctx context.Context) bool

// RequiresUpdate implements AccountStateSource.
func (f AccountStateFunc) RequiresUpdate(ctx context.Context) bool {
	return f(ctx)
}

// LocalState is whatever client state is persisted outside the session;
// it is wiped wholesale when a 401 terminates the session.
type LocalState interface {
	Clear()
}

// Response is the resolved result of a successful call.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Client is the single egress point for all UI-originated calls. It
// enforces the account-completion gate before the network, attaches the
// session's bearer token, and reacts to authorization failures by
// terminating the session globally.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   session.Store
	account    AccountStateSource
	local      LocalState
}

// New creates an authenticated HTTP client. account and local may be
// nil, disabling the setup gate and the 401 state wipe respectively.
func New(baseURL string, httpClient *http.Client, sessions session.Store, account AccountStateSource, local LocalState) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		sessions:   sessions,
		account:    account,
		local:      local,
	}
}

// Get issues a GET through the client.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST with a JSON-encoded body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Do performs one call through the gate and interceptor chain. body,
// when non-nil, is JSON-encoded.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	if err := c.preflight(ctx, method, path); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Attach the bearer token only when the session actually carries one.
	if s := c.sessions.Session(ctx); s.Authenticated() {
		req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// Global reaction, not scoped to this call: terminate the session
		// and wipe everything persisted client-side.
		c.sessions.Clear(ctx)
		if c.local != nil {
			c.local.Clear()
		}
	}

	if resp.StatusCode >= 400 {
		return nil, &Error{Message: errorMessage(respBody), Status: resp.StatusCode}
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: respBody}, nil
}

// preflight applies the client-side policy gate: while the account
// requires setup, mutating calls to non-exempt paths fail locally.
func (c *Client) preflight(ctx context.Context, method, path string) error {
	if c.account == nil || !c.account.RequiresUpdate(ctx) {
		return nil
	}
	if method == http.MethodGet {
		return nil
	}
	if routeExempt(path) {
		return nil
	}
	return &Error{Message: ProfileUpdateRequiredMessage, Local: true}
}

// errorMessage extracts the gateway's normalized error message, falling
// back to the raw body.
func errorMessage(body []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return string(body)
}
