package session

import (
	"time"
)

// BootstrapPhase tracks the one-time startup reconciliation inside the state
// itself, so "is a check in flight" cannot desynchronize from the rest of the
// session the way side-channel flags can.
type BootstrapPhase int

const (
	// BootstrapPending means reconciliation has not been attempted yet.
	BootstrapPending BootstrapPhase = iota
	// BootstrapRunning means a reconciliation pass is in flight.
	BootstrapRunning
	// BootstrapDone means reconciliation completed (in any outcome).
	BootstrapDone
)

func (p BootstrapPhase) String() string {
	switch p {
	case BootstrapRunning:
		return "running"
	case BootstrapDone:
		return "done"
	default:
		return "pending"
	}
}

// AuthState is the in-memory session value owned by the reducer. It is a
// plain value; copies are cheap and transitions never mutate in place.
type AuthState struct {
	User            *User      `json:"user,omitempty"`
	IsAuthenticated bool       `json:"is_authenticated"`
	IsLoading       bool       `json:"is_loading"`
	Error           string     `json:"error,omitempty"`
	Permissions     []string   `json:"permissions,omitempty"`
	LastActivity    *time.Time `json:"last_activity,omitempty"`

	Bootstrap BootstrapPhase `json:"bootstrap_phase"`
}

// NewAuthState returns the default unauthenticated state.
func NewAuthState() AuthState {
	return AuthState{}
}

// HasError reports whether the state carries a terminal failure message.
func (s AuthState) HasError() bool {
	return s.Error != ""
}

// HasPermission checks membership in the session's permission set.
func (s AuthState) HasPermission(permission string) bool {
	for _, p := range s.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// HasRole exact-matches the user's single role field.
func (s AuthState) HasRole(role string) bool {
	return s.User != nil && s.User.Role == role
}

// IdleFor returns how long the session has been without tracked activity.
// Zero when unauthenticated or never stamped.
func (s AuthState) IdleFor(now time.Time) time.Duration {
	if !s.IsAuthenticated || s.LastActivity == nil {
		return 0
	}
	return now.Sub(*s.LastActivity)
}
