package session

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredentials = "INVALID_CREDENTIALS"
	textCodeSessionExpired     = "SESSION_EXPIRED"
)

// ErrInvalidCredentials is returned when the credential exchange is rejected.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials)

// ErrSessionExpired is returned when the remote identity check no longer
// recognizes the persisted session.
var ErrSessionExpired = goerrors.New("session is no longer valid", goerrors.CategoryAuth).
	WithTextCode(textCodeSessionExpired)

// ErrNoUser is returned by operations that require an authenticated user.
var ErrNoUser = errors.New("no authenticated user")

// ErrIdentityIncomplete is returned when a collaborator hands back an
// identity record missing its id.
var ErrIdentityIncomplete = errors.New("identity record missing id")

// ErrSessionSuperseded is returned when a call chain resolves after the
// session generation moved on (e.g. a login landing after a logout); its
// result was discarded instead of dispatched.
var ErrSessionSuperseded = errors.New("session superseded")

// ErrMissingAccessToken is returned when a login response carries no access
// token under any of the accepted field names.
var ErrMissingAccessToken = errors.New("login response missing access token")

// IsSessionExpiredError will check for expired/invalidated sessions
func IsSessionExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionExpired) {
		return true
	}
	return strings.Contains(err.Error(), "session is no longer valid")
}
