package session

// Action is a member of the session transition union. The set is closed;
// Reduce is total over it.
type Action interface {
	Type() string
}

// AuthStart marks a login, registration, or bootstrap check as in flight.
type AuthStart struct{}

func (AuthStart) Type() string { return "session.auth.start" }

// AuthSuccess installs an authenticated user and permission set.
type AuthSuccess struct {
	User        *User
	Permissions []string
}

func (AuthSuccess) Type() string { return "session.auth.success" }

// AuthError records a terminal failure and collapses the session.
type AuthError struct {
	Message string
}

func (AuthError) Type() string { return "session.auth.error" }

// AuthLogout resets to the default unauthenticated state. Idempotent.
type AuthLogout struct{}

func (AuthLogout) Type() string { return "session.auth.logout" }

// AuthSettle resolves an in-flight operation that terminates without
// changing authentication (e.g. a registration that succeeded).
type AuthSettle struct{}

func (AuthSettle) Type() string { return "session.auth.settle" }

// UpdateUser replaces the user record only.
type UpdateUser struct {
	User *User
}

func (UpdateUser) Type() string { return "session.user.update" }

// UpdateActivity refreshes the last-activity stamp.
type UpdateActivity struct{}

func (UpdateActivity) Type() string { return "session.activity.update" }

// ClearError clears the error field only.
type ClearError struct{}

func (ClearError) Type() string { return "session.error.clear" }

// BootstrapStarted marks the one-time reconciliation as in flight.
type BootstrapStarted struct{}

func (BootstrapStarted) Type() string { return "session.bootstrap.started" }

// BootstrapFinished marks the one-time reconciliation as complete.
type BootstrapFinished struct{}

func (BootstrapFinished) Type() string { return "session.bootstrap.finished" }
