package handler

import (
	"net/http"

	"github.com/collabhub/gateway/internal/middleware"
	"github.com/collabhub/gateway/internal/proxy"
	"github.com/collabhub/gateway/internal/session"
	"github.com/gofiber/fiber/v3"
)

// ProxyHandler exposes the single forwarding route that carries every
// client API call to the backend.
type ProxyHandler struct {
	gateway *proxy.Gateway
}

// NewProxyHandler creates a proxy handler.
func NewProxyHandler(gateway *proxy.Gateway) *ProxyHandler {
	return &ProxyHandler{gateway: gateway}
}

// Register sets up the catch-all proxy route for every HTTP method.
func (h *ProxyHandler) Register(app *fiber.App) {
	app.All("/api/proxy/*", h.Handle)
}

// Handle reconstructs the backend request from the inbound call and
// relays the backend's response or a normalized error.
func (h *ProxyHandler) Handle(c fiber.Ctx) error {
	body, err := proxy.ParseBody(c.Get("Content-Type"), c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	header := make(http.Header)
	c.Request().Header.VisitAll(func(k, v []byte) {
		header.Add(string(k), string(v))
	})
	if header.Get("Host") == "" {
		header.Set("Host", c.Hostname())
	}

	// The browser-facing client sets Authorization itself; callers
	// carrying only the session cookie get it injected here. The
	// request-scoped provider is the server-context counterpart of the
	// client's writable session store.
	if header.Get("Authorization") == "" {
		provider := session.StaticProvider{S: middleware.GetSession(c)}
		if s := provider.Session(c.Context()); s.Authenticated() {
			header.Set("Authorization", "Bearer "+s.AccessToken)
		}
	}

	req := &proxy.Request{
		Method:     c.Method(),
		TargetPath: c.Params("*"),
		Query:      string(c.Request().URI().QueryString()),
		Header:     header,
		Body:       body,
	}

	resp, perr := h.gateway.Forward(c.Context(), req)
	if perr != nil {
		return c.Status(perr.Status).JSON(perr)
	}

	for k, vs := range resp.Header {
		switch k {
		case "Content-Length", "Transfer-Encoding", "Connection":
			continue
		}
		for _, v := range vs {
			c.Set(k, v)
		}
	}
	return c.Status(resp.Status).Send(resp.Body)
}
