package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// Option customizes Manager construction.
type Option func(*Manager)

// WithLogger overrides the default stdout logger.
func WithLogger(logger Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithAuditSink configures an AuditSink for emitting session events.
func WithAuditSink(sink AuditSink) Option {
	return func(m *Manager) {
		m.audit = normalizeAuditSink(sink)
	}
}

// WithActivitySource wires the interaction event stream used for idle
// tracking.
func WithActivitySource(source ActivitySource) Option {
	return func(m *Manager) {
		m.source = normalizeActivitySource(source)
	}
}

// WithConfig replaces the stock tunables. Zero fields fall back to defaults.
// A non-empty KeyPrefix takes precedence over the Storage's own prefix.
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		m.config = cfg
		m.configSet = true
	}
}

// Manager is the session orchestrator: an explicit store object composing the
// reducer, the storage adapter, the bootstrap reconciler, and the activity
// tracker around a Client collaborator. It holds no package-level state, so
// independent sessions (tests included) never share anything.
type Manager struct {
	mu    sync.Mutex
	state AuthState

	// persistMu is acquired while mu is still held, so storage commits land in
	// the same order as their reductions.
	persistMu sync.Mutex

	client  Client
	storage *Storage
	logger  Logger
	now     func() time.Time
	audit   AuditSink
	source  ActivitySource
	config  Config

	// configSet records that WithConfig was applied, so a default KeyPrefix
	// never clobbers a prefix the Storage was built with.
	configSet bool

	// generation moves forward on every logout; call chains capture it at
	// start and discard their result when it is stale by resolution time.
	generation atomic.Uint64

	subMu   sync.Mutex
	subs    map[int]func(AuthState)
	nextSub int

	tracker activityTracker
}

// New builds a Manager around a Client and a Storage adapter. The initial
// state is derived synchronously from storage: a record that passes Migrate
// plus Validate restores the prior session, anything else starts
// unauthenticated.
func New(client Client, storage *Storage, opts ...Option) *Manager {
	m := &Manager{
		client:  client,
		storage: storage,
		logger:  defLogger{},
		now:     time.Now,
		audit:   noopAuditSink{},
		source:  noopActivitySource{},
		config:  DefaultConfig(),
		subs:    map[int]func(AuthState){},
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.configSet && m.config.KeyPrefix != "" && m.storage != nil {
		m.storage.prefix = m.config.KeyPrefix
	}
	m.config = m.config.withDefaults()

	m.state = m.initialState(context.Background())

	return m
}

// initialState restores what the persisted record proves, and nothing more:
// the user and permissions come back so the UI can render optimistically, but
// IsAuthenticated stays false until Bootstrap (or a login) verifies the
// session within this lifetime.
func (m *Manager) initialState(ctx context.Context) AuthState {
	state := NewAuthState()
	if m.storage == nil {
		return state
	}

	m.storage.Migrate(ctx)

	v := m.storage.Validate(ctx)
	if !v.IsValid {
		return state
	}

	state.User = m.storage.LoadUser(ctx)
	state.Permissions = m.storage.LoadPermissions(ctx)
	state.LastActivity = m.storage.LoadActivity(ctx)

	m.client.SetAuthToken(m.storage.AccessToken(ctx))
	return state
}

// State returns a snapshot of the current session state.
func (m *Manager) State() AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a listener notified after every transition, in dispatch
// order. The returned function removes it.
func (m *Manager) Subscribe(fn func(AuthState)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// Dispatch reduces one action onto the state. Dispatches are serialized on a
// single queue; persistence runs adjacent to (never inside) the reduction and
// commits in reduction order, then subscribers observe the new state.
func (m *Manager) Dispatch(action Action) {
	m.mu.Lock()
	prev := m.state
	m.state = Reduce(m.state, action, m.now())
	next := m.state
	m.persistMu.Lock()
	m.mu.Unlock()

	m.persist(action, next)
	m.persistMu.Unlock()

	m.syncTracker(prev, next)
	m.notify(next)
}

func (m *Manager) persist(action Action, next AuthState) {
	if m.storage == nil {
		return
	}
	ctx := context.Background()

	switch a := action.(type) {
	case AuthSuccess:
		// Three independent writes, last writer wins, no atomicity between
		// them. Validate treats a torn record as invalid rather than trying
		// partial recovery.
		m.storage.SaveUser(ctx, next.User)
		m.storage.SavePermissions(ctx, next.Permissions)
		if next.LastActivity != nil {
			m.storage.SaveActivity(ctx, *next.LastActivity)
		}
	case AuthError, AuthLogout:
		m.storage.Purge(ctx)
	case UpdateUser:
		m.storage.SaveUser(ctx, a.User)
	case UpdateActivity:
		if next.IsAuthenticated && next.LastActivity != nil {
			m.storage.SaveActivity(ctx, *next.LastActivity)
		}
	}
}

func (m *Manager) syncTracker(prev, next AuthState) {
	switch {
	case !prev.IsAuthenticated && next.IsAuthenticated:
		m.tracker.start(m)
	case prev.IsAuthenticated && !next.IsAuthenticated:
		m.tracker.stopTracking()
	}
}

func (m *Manager) notify(state AuthState) {
	m.subMu.Lock()
	fns := make([]func(AuthState), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// Login exchanges credentials through the Client, persists the normalized
// token pair, and installs the authenticated state. The error is returned
// after AuthError is dispatched so the caller can render it.
func (m *Manager) Login(ctx context.Context, payload LoginPayload) (*User, error) {
	if v, ok := payload.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login payload")
		}
	}

	gen := m.generation.Load()
	m.Dispatch(AuthStart{})

	result, err := m.client.Login(ctx, payload)
	if err != nil {
		if m.generation.Load() == gen {
			m.Dispatch(AuthError{Message: err.Error()})
		}
		m.emitAuditEvent(ctx, AuditEventLoginFailure, "", map[string]any{
			"identifier": payload.GetIdentifier(),
			"error":      err.Error(),
		})
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "login failed")
	}

	if m.generation.Load() != gen {
		// A logout landed while the exchange was in flight; installing this
		// result would silently re-authenticate the user.
		return nil, ErrSessionSuperseded
	}

	pair, err := NormalizeTokenPair(result)
	if err != nil {
		m.client.ClearAuthToken()
		m.Dispatch(AuthError{Message: err.Error()})
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed login response")
	}

	if !result.User.Valid() {
		m.client.ClearAuthToken()
		m.Dispatch(AuthError{Message: ErrIdentityIncomplete.Error()})
		return nil, ErrIdentityIncomplete
	}

	m.storage.SaveTokens(ctx, pair)
	m.client.SetAuthToken(pair.Access)

	m.Dispatch(AuthSuccess{User: result.User, Permissions: loginPermissions(result)})
	m.emitAuditEvent(ctx, AuditEventLoginSuccess, result.User.ID, nil)

	return result.User, nil
}

func loginPermissions(result *LoginResult) []string {
	if len(result.Permissions) > 0 {
		return result.Permissions
	}
	if result.User != nil {
		return result.User.Permissions
	}
	return nil
}

// Register delegates to the Client and returns the raw response. Registration
// success is not login success; no authenticated state is installed.
func (m *Manager) Register(ctx context.Context, data any) (map[string]any, error) {
	gen := m.generation.Load()
	m.Dispatch(AuthStart{})

	response, err := m.client.Register(ctx, data)
	if err != nil {
		if m.generation.Load() == gen {
			m.Dispatch(AuthError{Message: err.Error()})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "registration failed")
	}

	m.Dispatch(AuthSettle{})
	return response, nil
}

// Logout performs a best-effort remote invalidation, then unconditionally
// tears down the local session. It is the single exit path for every way a
// session ends. Idempotent.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.client.Logout(ctx); err != nil {
		m.logger.Debug("remote logout failed: %v", err)
	}

	userID := ""
	if u := m.State().User; u != nil {
		userID = u.ID
	}

	m.generation.Add(1)
	m.client.ClearAuthToken()
	m.Dispatch(AuthLogout{})
	m.emitAuditEvent(ctx, AuditEventLogout, userID, nil)
}

// RefreshAuth re-verifies the session against the remote identity check. Any
// failure routes through Logout rather than a bespoke error state.
func (m *Manager) RefreshAuth(ctx context.Context) (*User, error) {
	gen := m.generation.Load()

	user, err := m.client.Me(ctx)
	if m.generation.Load() != gen {
		return nil, ErrSessionSuperseded
	}
	if err != nil || !user.Valid() {
		m.Logout(ctx)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "session refresh failed")
		}
		return nil, ErrSessionExpired
	}

	m.Dispatch(AuthSuccess{User: user, Permissions: user.Permissions})
	return user, nil
}

// UpdateUser applies a partial profile update through the Client and installs
// the record the server returns; the partial is never trusted as state.
func (m *Manager) UpdateUser(ctx context.Context, partial map[string]any) (*User, error) {
	if m.State().User == nil {
		return nil, ErrNoUser
	}

	user, err := m.client.UpdateMe(ctx, partial)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "profile update failed")
	}
	if !user.Valid() {
		return nil, ErrIdentityIncomplete
	}

	m.Dispatch(UpdateUser{User: user})
	return user, nil
}

// HasPermission checks membership in the current permission set.
func (m *Manager) HasPermission(permission string) bool {
	return m.State().HasPermission(permission)
}

// HasRole exact-matches the current user's role.
func (m *Manager) HasRole(role string) bool {
	return m.State().HasRole(role)
}

// ClearError clears the error field only.
func (m *Manager) ClearError() {
	m.Dispatch(ClearError{})
}

// Close releases the activity tracker resources. The Manager is not usable
// afterwards.
func (m *Manager) Close() {
	m.tracker.stopTracking()
}

// DumpState renders the current state for debug logging.
func (m *Manager) DumpState() string {
	return print.MaybePrettyJSON(m.State())
}

func (m *Manager) checkIdle() {
	state := m.State()
	if !state.IsAuthenticated || state.LastActivity == nil {
		return
	}
	if m.now().Sub(*state.LastActivity) < m.config.IdleTimeout {
		return
	}

	ctx := context.Background()
	userID := ""
	if state.User != nil {
		userID = state.User.ID
	}
	m.emitAuditEvent(ctx, AuditEventIdleTimeout, userID, map[string]any{
		"idle_for": m.now().Sub(*state.LastActivity).String(),
	})
	m.Logout(ctx)
}

func (m *Manager) emitAuditEvent(ctx context.Context, eventType AuditEventType, userID string, metadata map[string]any) {
	event := AuditEvent{
		ID:         uuid.New(),
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: m.now(),
	}
	if err := m.audit.Record(ctx, event); err != nil {
		m.logger.Warn("audit sink record error: %v", err)
	}
}
