package session

import (
	"time"
)

// Reduce maps an action onto the next AuthState. It is pure: no persistence,
// no clocks beyond the injected now, no mutation of the input. Unknown
// actions return the state unchanged so the reduction stays total.
func Reduce(state AuthState, action Action, now time.Time) AuthState {
	switch a := action.(type) {
	case AuthStart:
		state.IsLoading = true
		state.Error = ""
		return state

	case AuthSuccess:
		stamp := now
		state.User = a.User
		state.Permissions = a.Permissions
		state.IsAuthenticated = true
		state.IsLoading = false
		state.Error = ""
		state.LastActivity = &stamp
		return state

	case AuthError:
		state.User = nil
		state.Permissions = nil
		state.IsAuthenticated = false
		state.IsLoading = false
		state.Error = a.Message
		state.LastActivity = nil
		return state

	case AuthLogout:
		next := NewAuthState()
		next.Bootstrap = state.Bootstrap
		return next

	case AuthSettle:
		state.IsLoading = false
		return state

	case UpdateUser:
		state.User = a.User
		return state

	case UpdateActivity:
		// Refusing the stamp here keeps an unauthenticated state from ever
		// looking half-authenticated, even if a caller forgets to gate.
		if !state.IsAuthenticated {
			return state
		}
		stamp := now
		state.LastActivity = &stamp
		return state

	case ClearError:
		state.Error = ""
		return state

	case BootstrapStarted:
		state.Bootstrap = BootstrapRunning
		return state

	case BootstrapFinished:
		state.Bootstrap = BootstrapDone
		return state
	}

	return state
}
