package session_test

import (
	"context"
	"sync/atomic"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/mock"
)

// MockClient implements session.Client
type MockClient struct {
	mock.Mock

	authenticated atomic.Bool
	meCalls       atomic.Int64

	// rejectLocalAuth forces the local check negative regardless of tokens,
	// e.g. a client that discarded its token while the record survived.
	rejectLocalAuth bool
}

func (m *MockClient) Login(ctx context.Context, payload session.LoginPayload) (*session.LoginResult, error) {
	args := m.Called(ctx, payload)
	result, _ := args.Get(0).(*session.LoginResult)
	return result, args.Error(1)
}

func (m *MockClient) Register(ctx context.Context, data any) (map[string]any, error) {
	args := m.Called(ctx, data)
	response, _ := args.Get(0).(map[string]any)
	return response, args.Error(1)
}

func (m *MockClient) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClient) Me(ctx context.Context) (*session.User, error) {
	m.meCalls.Add(1)
	args := m.Called(ctx)
	user, _ := args.Get(0).(*session.User)
	return user, args.Error(1)
}

func (m *MockClient) UpdateMe(ctx context.Context, partial map[string]any) (*session.User, error) {
	args := m.Called(ctx, partial)
	user, _ := args.Get(0).(*session.User)
	return user, args.Error(1)
}

// IsAuthenticated mirrors a real client's local token check instead of going
// through testify expectations: SetAuthToken/ClearAuthToken flip it the way
// an HTTP client's in-memory token would.
func (m *MockClient) IsAuthenticated() bool {
	if m.rejectLocalAuth {
		return false
	}
	return m.authenticated.Load()
}

func (m *MockClient) SetAuthToken(token string) {
	m.authenticated.Store(token != "")
}

func (m *MockClient) ClearAuthToken() {
	m.authenticated.Store(false)
}

func (m *MockClient) MeCalls() int64 {
	return m.meCalls.Load()
}

// allowLogout permits the best-effort remote invalidation any number of
// times, for tests that only care about local teardown.
func (m *MockClient) allowLogout() *MockClient {
	m.On("Logout", mock.Anything).Return(nil).Maybe()
	return m
}
