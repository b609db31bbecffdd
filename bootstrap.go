package session

import (
	"context"
)

// beginBootstrap atomically claims the one-time reconciliation. The guard is
// the Bootstrap phase in the state itself: a caller that observes running or
// done returns immediately, it does not wait.
func (m *Manager) beginBootstrap() bool {
	m.mu.Lock()
	if m.state.Bootstrap != BootstrapPending {
		m.mu.Unlock()
		return false
	}
	m.state = Reduce(m.state, BootstrapStarted{}, m.now())
	next := m.state
	m.mu.Unlock()

	m.notify(next)
	return true
}

// Bootstrap reconciles persisted session data with the remote identity check,
// exactly once per Manager lifetime. Concurrent and repeat calls are no-ops.
// Failures never escape: they resolve to the unauthenticated state.
func (m *Manager) Bootstrap(ctx context.Context) {
	if !m.beginBootstrap() {
		return
	}
	// Every exit path, panics included, must release the guard into done.
	defer m.Dispatch(BootstrapFinished{})

	gen := m.generation.Load()

	v := m.storage.Validate(ctx)
	if !v.IsValid {
		// Leftover keys under an absent or inconsistent token are garbage.
		m.storage.Purge(ctx)
		if m.State().IsLoading {
			m.Dispatch(AuthError{Message: "stored session is not usable"})
		}
		if !v.HasConsistentData {
			m.emitAuditEvent(ctx, AuditEventBootstrapFailure, "", map[string]any{
				"reason": "inconsistent persisted record",
			})
		}
		return
	}

	// The client owns its in-memory token; hand it the persisted one before
	// asking for its local verdict.
	if token := m.storage.AccessToken(ctx); token != "" && !m.client.IsAuthenticated() {
		m.client.SetAuthToken(token)
	}

	if !m.client.IsAuthenticated() {
		m.storage.Purge(ctx)
		m.Dispatch(AuthLogout{})
		return
	}

	// Local state that already proves a consistent authenticated session
	// skips the network round trip within the same lifetime.
	state := m.State()
	if state.IsAuthenticated && state.User.Valid() && v.HasConsistentData {
		return
	}

	m.Dispatch(AuthStart{})

	user, err := m.client.Me(ctx)
	if m.generation.Load() != gen {
		// The session moved on while the check was in flight; this result
		// no longer describes it.
		return
	}
	if err != nil || !user.Valid() {
		m.client.ClearAuthToken()
		m.storage.Purge(ctx)
		m.Dispatch(AuthError{Message: ErrSessionExpired.Error()})
		metadata := map[string]any{}
		if err != nil {
			metadata["error"] = err.Error()
		} else {
			metadata["error"] = ErrIdentityIncomplete.Error()
		}
		m.emitAuditEvent(ctx, AuditEventBootstrapFailure, "", metadata)
		return
	}

	m.Dispatch(AuthSuccess{User: user, Permissions: user.Permissions})
	m.emitAuditEvent(ctx, AuditEventBootstrapSuccess, user.ID, nil)
}
