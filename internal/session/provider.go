package session

import (
	"context"
	"sync"

	"github.com/collabhub/gateway/internal/domain"
)

// Provider exposes the current session to code that only needs to read
// it. The gateway's proxy path and the HTTP client both depend on this
// rather than on any global session state.
type Provider interface {
	// Session returns the current session, or nil when unauthenticated.
	Session(ctx context.Context) *domain.Session
}

// Store is a Provider that can also be written: the client-side session
// lifecycle (login, sign-out, refresh) goes through it.
type Store interface {
	Provider

	// Set replaces the current session.
	Set(ctx context.Context, s *domain.Session)

	// Clear removes the current session. Clearing an empty store is a no-op.
	Clear(ctx context.Context)
}

// MemoryStore holds the session for a single client execution context.
// Readers may observe the token being cleared mid-flight; the resulting
// 401 is handled by the client's response hook.
type MemoryStore struct {
	mu      sync.RWMutex
	current *domain.Session
}

// NewMemoryStore returns an empty client-side session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Session implements Provider.
func (m *MemoryStore) Session(_ context.Context) *domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	s := *m.current
	return &s
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, s *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
}

// Clear implements Store.
func (m *MemoryStore) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
}

// StaticProvider adapts an already-decoded session (e.g. from a request
// cookie) into a Provider for the duration of one request.
type StaticProvider struct {
	S *domain.Session
}

// Session implements Provider.
func (p StaticProvider) Session(_ context.Context) *domain.Session {
	return p.S
}
