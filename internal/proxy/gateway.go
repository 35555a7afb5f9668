package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/collabhub/gateway/internal/domain"
)

// GenericErrorMessage is shown whenever the backend's own message cannot
// be trusted or is missing: transport failures, 500s, and empty bodies.
const GenericErrorMessage = "An error occurred while processing your request. Please try again later."

// Request is the gateway's view of one inbound call, derived per call
// and never persisted.
type Request struct {
	Method     string
	TargetPath string // backend path without the /api/proxy prefix
	Query      string // raw query string, may be empty
	Header     http.Header
	Body       Body
}

// Response relays the backend's answer verbatim.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Error is the normalized failure shape returned to the browser.
// DebugMessage carries the low-level error text and is only populated
// outside production.
type Error struct {
	Status       int    `json:"-"`
	UserMessage  string `json:"error"`
	DebugMessage string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("proxy error (%d): %s", e.Status, e.UserMessage)
}

// AuditWriter persists one record per proxied request.
type AuditWriter interface {
	WriteAudit(ctx context.Context, entry domain.AuditEntry) error
}

// Config wires the Gateway to the backend API.
type Config struct {
	BackendBaseURL string
	ClientAPIKey   string
	Timeout        time.Duration // fixed outbound timeout, 40s in production config
	Production     bool
}

// Gateway forwards browser calls to the backend API. Each call is
// handled independently and statelessly: the outbound request, nonce
// and timer are all locally scoped, so concurrent calls for the same
// resource have no ordering guarantee.
type Gateway struct {
	cfg        Config
	httpClient *http.Client
	audit      AuditWriter
}

// New creates a Gateway. audit may be nil, in which case timing is only
// logged, not persisted.
func New(cfg Config, client *http.Client, audit AuditWriter) *Gateway {
	if client == nil {
		client = &http.Client{}
	}
	return &Gateway{cfg: cfg, httpClient: client, audit: audit}
}

// Forward reconstructs the equivalent backend request, injects the
// security headers and a fresh nonce, performs the round-trip and
// returns either the relayed response or a normalized Error.
func (g *Gateway) Forward(ctx context.Context, r *Request) (*Response, *Error) {
	start := time.Now()

	resp, perr := g.forward(ctx, r)

	elapsed := time.Since(start).Milliseconds()
	status := 0
	if resp != nil {
		status = resp.Status
	}
	if perr != nil {
		status = perr.Status
		slog.Error("proxy request failed",
			"method", r.Method, "path", r.TargetPath, "status", status, "elapsed_ms", elapsed)
	} else {
		slog.Info("proxy request",
			"method", r.Method, "path", r.TargetPath, "status", status, "elapsed_ms", elapsed)
	}

	if g.audit != nil {
		entry := domain.AuditEntry{
			Method:     r.Method,
			TargetPath: r.TargetPath,
			Status:     status,
			DurationMS: elapsed,
			CallerIP:   callerIdentity(r.Header),
			UserAgent:  r.Header.Get("User-Agent"),
		}
		// Persist off the request path; all values are already captured.
		go func() {
			if err := g.audit.WriteAudit(context.Background(), entry); err != nil {
				slog.Error("failed to write proxy audit entry", "error", err)
			}
		}()
	}

	return resp, perr
}

func (g *Gateway) forward(ctx context.Context, r *Request) (*Response, *Error) {
	nonce := newNonce()

	overrides := []Override{
		{"x-forwarded-for", callerIdentity(r.Header)},
		{"x-client-api-key", g.cfg.ClientAPIKey},
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"X-XSS-Protection", "1; mode=block"},
		{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
		{"Content-Security-Policy", "default-src 'self'; script-src 'nonce-" + nonce + "'"},
	}

	payload, contentType := r.Body.Encode()
	if contentType != "" {
		// Multipart must carry the original boundary; header forwarding
		// alone is not enough once the body bytes have been re-read.
		overrides = append(overrides, Override{"Content-Type", contentType})
	}

	headers := MergeHeaders(r.Header, overrides)

	targetURL := g.cfg.BackendBaseURL + "/" + r.TargetPath
	if r.Query != "" {
		targetURL += "?" + r.Query
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, targetURL, bodyReader)
	if err != nil {
		return nil, g.transportError(err)
	}
	req.Header = headers

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// Timeout and connection failures land here.
		return nil, g.transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, g.transportError(err)
	}

	if resp.StatusCode >= 400 {
		return nil, g.backendError(resp.StatusCode, respBody)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: respBody}, nil
}

// transportError maps timeouts and connection failures to a 500-class
// error. The raw cause never reaches the browser in production.
func (g *Gateway) transportError(err error) *Error {
	e := &Error{Status: http.StatusInternalServerError, UserMessage: GenericErrorMessage}
	if !g.cfg.Production {
		e.DebugMessage = err.Error()
	}
	return e
}

// backendError maps a backend 4xx/5xx to an Error that keeps the status
// code. The backend's message is passed through unless it is absent or
// the status is 500, in which case the fixed generic sentence is used.
func (g *Gateway) backendError(status int, body []byte) *Error {
	e := &Error{Status: status, UserMessage: GenericErrorMessage}

	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" && status != http.StatusInternalServerError {
		e.UserMessage = parsed.Message
	}
	if !g.cfg.Production {
		e.DebugMessage = fmt.Sprintf("backend responded %d: %s", status, body)
	}
	return e
}

// callerIdentity derives the caller-identity header value: the inbound
// x-forwarded-for when present, otherwise the Host header.
func callerIdentity(h http.Header) string {
	if v := h.Get("x-forwarded-for"); v != "" {
		return v
	}
	return h.Get("Host")
}
