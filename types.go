package session

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// User is the identity record held by the session. Only ID is required for
// the record to count as valid; everything else is carried opaquely for the
// application's benefit.
type User struct {
	ID             string         `json:"id,omitempty"`
	Role           string         `json:"role,omitempty"`
	FirstName      string         `json:"first_name,omitempty"`
	LastName       string         `json:"last_name,omitempty"`
	Username       string         `json:"username,omitempty"`
	Email          string         `json:"email,omitempty"`
	Phone          string         `json:"phone_number,omitempty"`
	ProfilePicture string         `json:"profile_picture,omitempty"`
	Permissions    []string       `json:"permissions,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// Valid reports whether the record is structurally usable as a session owner.
func (u *User) Valid() bool {
	return u != nil && u.ID != ""
}

// LoginResult is the raw credential-exchange response. Backends disagree on
// token field names (access vs access_token); NormalizeTokenPair collapses
// the variance before anything else sees it.
type LoginResult struct {
	Access       string   `json:"access,omitempty"`
	AccessToken  string   `json:"access_token,omitempty"`
	Refresh      string   `json:"refresh,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	User         *User    `json:"user,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
}

// Client is the identity/API collaborator this package drives. Implementations
// own transport and credential exchange; the session core treats tokens as
// opaque strings.
type Client interface {
	Login(ctx context.Context, payload LoginPayload) (*LoginResult, error)
	Register(ctx context.Context, data any) (map[string]any, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*User, error)
	UpdateMe(ctx context.Context, partial map[string]any) (*User, error)

	// IsAuthenticated is the client-local synchronous check (token held and
	// not known to be expired), distinct from the server-verified Me call.
	IsAuthenticated() bool
	SetAuthToken(token string)
	ClearAuthToken()
}

// LoginPayload carries credentials into Client.Login.
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
	GetExtendedSession() bool
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
