package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/collabhub/gateway/internal/domain"
	"github.com/collabhub/gateway/internal/middleware"
	"github.com/collabhub/gateway/internal/proxy"
	"github.com/collabhub/gateway/internal/session"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProxyApp(t *testing.T, backendURL string) *fiber.App {
	t.Helper()

	gateway := proxy.New(proxy.Config{
		BackendBaseURL: backendURL,
		ClientAPIKey:   "svc-key",
		Timeout:        5 * time.Second,
	}, nil, nil)

	app := fiber.New()
	NewProxyHandler(gateway).Register(app)
	return app
}

func TestProxyRouteRelaysBackend(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/articles", r.URL.Path)
		assert.Equal(t, "limit=5", r.URL.RawQuery)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"a1"}]}`))
	}))
	t.Cleanup(backend.Close)

	app := newProxyApp(t, backend.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/proxy/articles?limit=5", nil)
	req.Header.Set("Authorization", "Bearer tok")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"data":[{"id":"a1"}]}`, string(body))
}

func TestProxyRouteForwardsAllMethods(t *testing.T) {
	t.Parallel()

	var methods []string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(backend.Close)

	app := newProxyApp(t, backend.URL)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		req := httptest.NewRequest(method, "/api/proxy/jobs/j1", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, []string{"GET", "POST", "PUT", "DELETE", "PATCH"}, methods)
}

func TestProxyRouteJSONBodyForwarded(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"title":"hello"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"a1"}`))
	}))
	t.Cleanup(backend.Close)

	app := newProxyApp(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/articles", strings.NewReader(`{"title":"hello"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestProxyRouteBackendErrorNormalized(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"not your article"}`))
	}))
	t.Cleanup(backend.Close)

	app := newProxyApp(t, backend.URL)

	req := httptest.NewRequest(http.MethodDelete, "/api/proxy/articles/a1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var payload struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "not your article", payload.Error)
}

func TestProxyRouteInvalidJSONRejected(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend should not be reached")
	}))
	t.Cleanup(backend.Close)

	app := newProxyApp(t, backend.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/articles", strings.NewReader(`{"broken`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProxyRouteInjectsCookieSession(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cookie-tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(backend.Close)

	codec := &session.Codec{Secret: "s", MaxAge: time.Hour}
	gateway := proxy.New(proxy.Config{
		BackendBaseURL: backend.URL,
		Timeout:        5 * time.Second,
	}, nil, nil)

	app := fiber.New()
	app.Use(middleware.SessionMiddleware(middleware.SessionConfig{Codec: codec}))
	NewProxyHandler(gateway).Register(app)

	token, err := codec.Encode(&domain.Session{AccessToken: "cookie-tok"}, "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/proxy/connections", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})

	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
