package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ActivitySource abstracts the stream of user-interaction events (pointer,
// key, scroll, touch) the host surface produces. Subscribe registers a
// callback and returns its remover; implementations must tolerate
// subscribe/unsubscribe from any goroutine.
type ActivitySource interface {
	Subscribe(fn func()) (cancel func())
}

// ActivitySourceFunc adapts a function to the ActivitySource interface.
type ActivitySourceFunc func(fn func()) (cancel func())

// Subscribe implements ActivitySource.
func (f ActivitySourceFunc) Subscribe(fn func()) func() {
	if f == nil {
		return func() {}
	}
	return f(fn)
}

type noopActivitySource struct{}

func (noopActivitySource) Subscribe(func()) func() {
	return func() {}
}

func normalizeActivitySource(s ActivitySource) ActivitySource {
	if s == nil {
		return noopActivitySource{}
	}
	return s
}

// ChannelSource is the standard ActivitySource: the host calls Emit for every
// interaction event and the source fans out to current subscribers.
type ChannelSource struct {
	mu   sync.Mutex
	next int
	subs map[int]func()
}

// NewChannelSource returns an empty source.
func NewChannelSource() *ChannelSource {
	return &ChannelSource{subs: map[int]func(){}}
}

// Emit notifies every current subscriber of one interaction event.
func (c *ChannelSource) Emit() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Subscribe implements ActivitySource.
func (c *ChannelSource) Subscribe(fn func()) func() {
	c.mu.Lock()
	id := c.next
	c.next++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// AuditEventType enumerates supported session audit categories.
type AuditEventType string

const (
	AuditEventLoginSuccess     AuditEventType = "session.login.success"
	AuditEventLoginFailure     AuditEventType = "session.login.failure"
	AuditEventLogout           AuditEventType = "session.logout"
	AuditEventIdleTimeout      AuditEventType = "session.idle.timeout"
	AuditEventBootstrapSuccess AuditEventType = "session.bootstrap.success"
	AuditEventBootstrapFailure AuditEventType = "session.bootstrap.failure"
)

// AuditEvent captures audit-friendly information about a session action.
type AuditEvent struct {
	ID         uuid.UUID
	EventType  AuditEventType
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// AuditSink consumes session events for auditing/telemetry purposes.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}

// AuditSinkFunc adapts a function to the AuditSink interface.
type AuditSinkFunc func(ctx context.Context, event AuditEvent) error

// Record implements AuditSink.
func (f AuditSinkFunc) Record(ctx context.Context, event AuditEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopAuditSink struct{}

func (noopAuditSink) Record(context.Context, AuditEvent) error {
	return nil
}

func normalizeAuditSink(s AuditSink) AuditSink {
	if s == nil {
		return noopAuditSink{}
	}
	return s
}

// activityTracker owns the stamping subscription and the idle ticker. Both
// run only while authenticated; the Manager starts and stops the tracker on
// auth transitions, not on construction/teardown.
type activityTracker struct {
	mu          sync.Mutex
	unsubscribe func()
	stop        chan struct{}
	lastStamp   time.Time
}

func (t *activityTracker) start(m *Manager) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}

	t.unsubscribe = m.source.Subscribe(func() {
		t.onEvent(m)
	})

	stop := make(chan struct{})
	t.stop = stop

	go func() {
		ticker := time.NewTicker(m.config.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.checkIdle()
			}
		}
	}()
}

func (t *activityTracker) stopTracking() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop == nil {
		return
	}
	close(t.stop)
	t.stop = nil
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
	t.lastStamp = time.Time{}
}

func (t *activityTracker) onEvent(m *Manager) {
	// Check authentication before the throttle, so a straggler event landing
	// after logout does not consume the next window.
	if !m.State().IsAuthenticated {
		return
	}

	now := m.now()

	if throttle := m.config.ActivityThrottle; throttle > 0 {
		t.mu.Lock()
		if !t.lastStamp.IsZero() && now.Sub(t.lastStamp) < throttle {
			t.mu.Unlock()
			return
		}
		t.lastStamp = now
		t.mu.Unlock()
	}

	m.Dispatch(UpdateActivity{})
}
