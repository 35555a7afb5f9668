package notify

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/collabhub/gateway/internal/client"
)

// PollPath is the backend's incremental notification endpoint, reached
// through the proxy.
const PollPath = "/api/proxy/notifications/long-poll"

// DefaultInterval is how often the reconciler polls while visible.
const DefaultInterval = 30 * time.Second

// Status is the reconciler's fetch state machine:
// idle → loading → {succeeded | failed}, re-entering loading each tick.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// payload is the long-poll response shape: new notification ids plus
// new message ids since the last check.
type payload struct {
	Data     []string `json:"data"`
	Messages []string `json:"messages"`
}

// Getter is the slice of the authenticated client the reconciler needs.
type Getter interface {
	Get(ctx context.Context, path string) (*client.Response, error)
}

// Reconciler keeps local notification state consistent with the
// backend. While visible it polls on a fixed interval; while hidden the
// timer is cancelled entirely. Merges are set unions, so replayed or
// overlapping results never produce duplicates.
type Reconciler struct {
	client   Getter
	interval time.Duration

	// onNewNotifications fires when a poll returns a non-empty result;
	// new notifications may represent new followers, so the connection
	// list is refreshed as a side effect.
	onNewNotifications func(ctx context.Context)

	mu        sync.Mutex
	seen      map[string]struct{}
	pending   map[string]struct{}
	status    Status
	lastError string
	inFlight  bool
	stop      context.CancelFunc
}

// New creates a reconciler. onNewNotifications may be nil. A zero
// interval falls back to DefaultInterval.
func New(c Getter, interval time.Duration, onNewNotifications func(ctx context.Context)) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reconciler{
		client:             c,
		interval:           interval,
		onNewNotifications: onNewNotifications,
		seen:               make(map[string]struct{}),
		pending:            make(map[string]struct{}),
		status:             StatusIdle,
	}
}

// Start begins polling. Starting an already-started reconciler is a
// no-op; there is never more than one active timer.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	if r.stop != nil {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.stop = cancel
	r.mu.Unlock()

	go r.loop(ctx)
}

// Stop cancels the polling timer. Stopping when already stopped is a
// no-op.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	stop := r.stop
	r.stop = nil
	r.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// SetVisible starts or stops polling on visibility transitions, both
// directions idempotent.
func (r *Reconciler) SetVisible(ctx context.Context, visible bool) {
	if visible {
		r.Start(ctx)
	} else {
		r.Stop()
	}
}

// Running reports whether a polling timer is active.
func (r *Reconciler) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

// loop runs ticks sequentially, so a new tick can never fire while the
// previous fetch is still in flight.
func (r *Reconciler) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.FetchOnce(ctx); err != nil {
				slog.Debug("notification poll failed", "error", err)
			}
		}
	}
}

// FetchOnce performs a single reconciliation pass. Out-of-band callers
// racing the timer are collapsed by the in-flight guard.
func (r *Reconciler) FetchOnce(ctx context.Context) error {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return nil
	}
	r.inFlight = true
	r.status = StatusLoading
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inFlight = false
		r.mu.Unlock()
	}()

	resp, err := r.client.Get(ctx, PollPath)
	if err != nil {
		r.fail("Failed to fetch notifications")
		return err
	}

	var p payload
	if err := resp.Decode(&p); err != nil {
		r.fail("Failed to fetch notifications")
		return err
	}

	if len(p.Data) == 0 {
		// Nothing new: existing state is left untouched.
		return nil
	}

	r.mu.Lock()
	r.status = StatusSucceeded
	r.lastError = ""
	for _, id := range p.Data {
		r.seen[id] = struct{}{}
	}
	for _, id := range p.Messages {
		r.pending[id] = struct{}{}
	}
	r.mu.Unlock()

	if r.onNewNotifications != nil {
		r.onNewNotifications(ctx)
	}
	return nil
}

// fail records the failure without clearing the merged sets; the next
// scheduled tick is the retry.
func (r *Reconciler) fail(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusFailed
	r.lastError = reason
}

// MarkRead removes a single notification id.
func (r *Reconciler) MarkRead(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, id)
}

// Reset clears both sets; used when the user navigates into the
// notifications or messages view.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = make(map[string]struct{})
	r.pending = make(map[string]struct{})
}

// Seen returns the notification ids in sorted order.
func (r *Reconciler) Seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.seen)
}

// PendingMessages returns the message ids in sorted order.
func (r *Reconciler) PendingMessages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.pending)
}

// Status returns the current fetch status.
func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// LastError returns the most recent failure reason, empty when none.
func (r *Reconciler) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
