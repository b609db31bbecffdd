package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelSourceFanOutAndUnsubscribe(t *testing.T) {
	source := session.NewChannelSource()

	var hits int
	cancel := source.Subscribe(func() { hits++ })

	source.Emit()
	source.Emit()
	assert.Equal(t, 2, hits)

	cancel()
	source.Emit()
	assert.Equal(t, 2, hits)
}

func TestActivityStampingWhileAuthenticated(t *testing.T) {
	source := session.NewChannelSource()
	f := newManagerFixture(t, session.WithActivitySource(source))
	ctx := context.Background()
	f.login(t, "42")

	loginStamp := *f.manager.State().LastActivity

	f.clock.Advance(10 * time.Minute)
	source.Emit()

	state := f.manager.State()
	require.NotNil(t, state.LastActivity)
	assert.True(t, state.LastActivity.After(loginStamp))

	// The stamp is persisted alongside the in-memory transition.
	stored := f.storage.LoadActivity(ctx)
	require.NotNil(t, stored)
	assert.True(t, stored.Equal(state.LastActivity.UTC()))
}

func TestActivityListenerDetachedAfterLogout(t *testing.T) {
	source := session.NewChannelSource()
	f := newManagerFixture(t, session.WithActivitySource(source))
	f.client.allowLogout()
	ctx := context.Background()
	f.login(t, "42")

	f.manager.Logout(ctx)
	f.clock.Advance(time.Minute)
	source.Emit()

	state := f.manager.State()
	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.LastActivity)
	assert.Zero(t, f.kv.Len())
}

func TestActivityThrottleGatesStamps(t *testing.T) {
	source := session.NewChannelSource()
	f := newManagerFixture(t,
		session.WithActivitySource(source),
		session.WithConfig(session.Config{ActivityThrottle: time.Minute}),
	)
	f.login(t, "42")

	f.clock.Advance(10 * time.Second)
	source.Emit()
	first := *f.manager.State().LastActivity

	f.clock.Advance(10 * time.Second)
	source.Emit()

	assert.Equal(t, first, *f.manager.State().LastActivity)

	f.clock.Advance(2 * time.Minute)
	source.Emit()
	assert.True(t, f.manager.State().LastActivity.After(first))
}

func TestStragglerEventAfterLogoutDoesNotConsumeThrottleWindow(t *testing.T) {
	// A source whose cancel is a no-op keeps the callback invokable after the
	// tracker detaches, modeling an event already in flight at logout time.
	var emit func()
	source := session.ActivitySourceFunc(func(fn func()) func() {
		emit = fn
		return func() {}
	})

	f := newManagerFixture(t,
		session.WithActivitySource(source),
		session.WithConfig(session.Config{ActivityThrottle: time.Minute}),
	)
	f.client.allowLogout()
	f.login(t, "42")
	require.NotNil(t, emit)

	f.manager.Logout(context.Background())
	emit()

	f.login(t, "42")
	loginStamp := *f.manager.State().LastActivity

	// The post-logout event must not have opened a throttle window; the first
	// event of the new session stamps immediately.
	f.clock.Advance(10 * time.Second)
	emit()
	assert.True(t, f.manager.State().LastActivity.After(loginStamp))
}

func TestIdleTimeoutForcesLogoutAndPurge(t *testing.T) {
	f := newManagerFixture(t, session.WithConfig(session.Config{
		IdleTimeout:   30 * time.Minute,
		CheckInterval: 10 * time.Millisecond,
	}))
	f.client.allowLogout()
	f.login(t, "42")

	// Within the threshold nothing happens.
	f.clock.Advance(29 * time.Minute)
	time.Sleep(50 * time.Millisecond)
	assert.True(t, f.manager.State().IsAuthenticated)

	// 31 minutes of inactivity and at least one elapsed check interval.
	f.clock.Advance(2 * time.Minute)
	require.Eventually(t, func() bool {
		return !f.manager.State().IsAuthenticated
	}, 2*time.Second, 10*time.Millisecond)

	assert.Zero(t, f.kv.Len())
	assert.False(t, f.client.IsAuthenticated())
}

func TestIdleTimerStopsWithTheSession(t *testing.T) {
	f := newManagerFixture(t, session.WithConfig(session.Config{
		IdleTimeout:   time.Minute,
		CheckInterval: 10 * time.Millisecond,
	}))
	f.client.allowLogout()
	f.login(t, "42")

	f.manager.Logout(context.Background())

	// With the session gone the ticker is stopped; nothing fires even after
	// the idle threshold has long passed.
	f.clock.Advance(time.Hour)
	time.Sleep(50 * time.Millisecond)

	state := f.manager.State()
	assert.False(t, state.IsAuthenticated)
	assert.Empty(t, state.Error)
}

func TestAuditSinkReceivesSessionEvents(t *testing.T) {
	var mu sync.Mutex
	var events []session.AuditEvent
	sink := session.AuditSinkFunc(func(_ context.Context, event session.AuditEvent) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
		return nil
	})

	f := newManagerFixture(t, session.WithAuditSink(sink))
	f.client.allowLogout()
	f.login(t, "42")
	f.manager.Logout(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, session.AuditEventLoginSuccess, events[0].EventType)
	assert.Equal(t, "42", events[0].UserID)
	assert.Equal(t, session.AuditEventLogout, events[1].EventType)
}

func TestAuditSinkErrorsAreContained(t *testing.T) {
	sink := session.AuditSinkFunc(func(context.Context, session.AuditEvent) error {
		return errors.New("sink down")
	})

	f := newManagerFixture(t, session.WithAuditSink(sink))
	f.login(t, "42")

	// The login outcome is unaffected by the sink failure.
	assert.True(t, f.manager.State().IsAuthenticated)
}
