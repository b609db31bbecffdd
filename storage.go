package session

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// Logical names of the five persisted record entries, plus the retired names
// Migrate understands.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUser         = "user"
	keyPermissions  = "permissions"
	keyLastActivity = "last_activity"

	legacyKeyToken       = "auth_token"
	legacyKeyUser        = "auth_user"
	legacyKeyPermissions = "auth_permissions"
)

// DefaultKeyPrefix namespaces record keys in the backend.
const DefaultKeyPrefix = "auth"

// Validation is the result of a non-mutating inspection of the persisted
// record. IsValid is true only when a token is present and the rest of the
// record is consistent with it.
type Validation struct {
	IsValid           bool
	HasToken          bool
	HasConsistentData bool
}

// StorageOption customizes Storage construction.
type StorageOption func(*Storage)

// WithStorageLogger overrides the logger used for swallowed write failures.
func WithStorageLogger(logger Logger) StorageOption {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithKeyPrefix changes the backend key namespace.
func WithKeyPrefix(prefix string) StorageOption {
	return func(s *Storage) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// Storage is the typed adapter over the persisted record. Writes are
// best-effort: a failed Set returns false and logs, it never propagates an
// error, so storage can degrade without breaking the in-memory session.
type Storage struct {
	kv     KV
	prefix string
	logger Logger
}

// NewStorage wraps a KV backend.
func NewStorage(kv KV, opts ...StorageOption) *Storage {
	s := &Storage{
		kv:     kv,
		prefix: DefaultKeyPrefix,
		logger: defLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) key(name string) string {
	return s.prefix + ":" + name
}

// Get returns the stored value for a logical key name, or def on a miss.
func (s *Storage) Get(ctx context.Context, name, def string) string {
	if val, ok := s.kv.Get(ctx, s.key(name)); ok {
		return val
	}
	return def
}

// Set stores a value, reporting success. Failures are logged, not raised.
func (s *Storage) Set(ctx context.Context, name, value string) bool {
	if err := s.kv.Set(ctx, s.key(name), value); err != nil {
		s.logger.Debug("storage set %s: %v", name, err)
		return false
	}
	return true
}

func (s *Storage) delete(ctx context.Context, name string) {
	if err := s.kv.Delete(ctx, s.key(name)); err != nil {
		s.logger.Debug("storage delete %s: %v", name, err)
	}
}

// AccessToken returns the persisted access token, empty when absent.
func (s *Storage) AccessToken(ctx context.Context) string {
	return s.Get(ctx, keyAccessToken, "")
}

// RefreshToken returns the persisted refresh token, empty when absent.
func (s *Storage) RefreshToken(ctx context.Context) string {
	return s.Get(ctx, keyRefreshToken, "")
}

// SaveTokens persists a normalized token pair under the canonical keys.
func (s *Storage) SaveTokens(ctx context.Context, pair TokenPair) bool {
	ok := s.Set(ctx, keyAccessToken, pair.Access)
	if pair.Refresh != "" {
		ok = s.Set(ctx, keyRefreshToken, pair.Refresh) && ok
	}
	return ok
}

// SaveUser serializes and persists the user record.
func (s *Storage) SaveUser(ctx context.Context, user *User) bool {
	if user == nil {
		return false
	}
	raw, err := json.Marshal(user)
	if err != nil {
		s.logger.Debug("storage marshal user: %v", err)
		return false
	}
	return s.Set(ctx, keyUser, string(raw))
}

// LoadUser deserializes the persisted user, nil when absent or unreadable.
func (s *Storage) LoadUser(ctx context.Context) *User {
	raw := s.Get(ctx, keyUser, "")
	if raw == "" {
		return nil
	}
	user := new(User)
	if err := json.Unmarshal([]byte(raw), user); err != nil {
		s.logger.Debug("storage unmarshal user: %v", err)
		return nil
	}
	return user
}

// SavePermissions serializes and persists the permission list.
func (s *Storage) SavePermissions(ctx context.Context, permissions []string) bool {
	if permissions == nil {
		permissions = []string{}
	}
	raw, err := json.Marshal(permissions)
	if err != nil {
		s.logger.Debug("storage marshal permissions: %v", err)
		return false
	}
	return s.Set(ctx, keyPermissions, string(raw))
}

// LoadPermissions deserializes the persisted permission list.
func (s *Storage) LoadPermissions(ctx context.Context) []string {
	raw := s.Get(ctx, keyPermissions, "")
	if raw == "" {
		return nil
	}
	var permissions []string
	if err := json.Unmarshal([]byte(raw), &permissions); err != nil {
		s.logger.Debug("storage unmarshal permissions: %v", err)
		return nil
	}
	return permissions
}

// SaveActivity persists the last-activity stamp as RFC 3339.
func (s *Storage) SaveActivity(ctx context.Context, at time.Time) bool {
	return s.Set(ctx, keyLastActivity, at.UTC().Format(time.RFC3339))
}

// LoadActivity returns the persisted last-activity stamp, nil when absent or
// unreadable.
func (s *Storage) LoadActivity(ctx context.Context) *time.Time {
	raw := s.Get(ctx, keyLastActivity, "")
	if raw == "" {
		return nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &at
}

// Purge removes the whole persisted record, current and legacy keys alike.
// Idempotent.
func (s *Storage) Purge(ctx context.Context) {
	for _, name := range []string{
		keyAccessToken,
		keyRefreshToken,
		keyUser,
		keyPermissions,
		keyLastActivity,
		legacyKeyToken,
		legacyKeyUser,
		legacyKeyPermissions,
	} {
		s.delete(ctx, name)
	}
}

// Validate inspects the persisted record without mutating it. A token without
// a deserializable user carrying a non-empty id flags the record as
// inconsistent; partial records are invalid, never partially recovered.
func (s *Storage) Validate(ctx context.Context) Validation {
	v := Validation{HasConsistentData: true}

	if s.AccessToken(ctx) == "" {
		// No token means no session; whatever else is stored is garbage the
		// caller purges, it is never trusted here.
		return v
	}
	v.HasToken = true

	if !s.LoadUser(ctx).Valid() {
		v.HasConsistentData = false
		return v
	}

	v.IsValid = true
	return v
}

// Migrate rewrites records written under retired key names or formats into
// the current schema. It is idempotent and never promotes leftovers into a
// session that was not previously provable: legacy data without a legacy
// token is dropped, not migrated.
func (s *Storage) Migrate(ctx context.Context) {
	if s.AccessToken(ctx) == "" {
		if legacyToken := s.Get(ctx, legacyKeyToken, ""); legacyToken != "" {
			s.Set(ctx, keyAccessToken, legacyToken)
			if user := s.Get(ctx, legacyKeyUser, ""); user != "" && s.Get(ctx, keyUser, "") == "" {
				s.Set(ctx, keyUser, user)
			}
			if perms := s.Get(ctx, legacyKeyPermissions, ""); perms != "" && s.Get(ctx, keyPermissions, "") == "" {
				s.Set(ctx, keyPermissions, perms)
			}
		}
	}
	s.delete(ctx, legacyKeyToken)
	s.delete(ctx, legacyKeyUser)
	s.delete(ctx, legacyKeyPermissions)

	// Older builds stored the activity stamp as unix seconds.
	if raw := s.Get(ctx, keyLastActivity, ""); raw != "" {
		if _, err := time.Parse(time.RFC3339, raw); err != nil {
			if secs, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil {
				s.SaveActivity(ctx, time.Unix(secs, 0))
			} else {
				s.delete(ctx, keyLastActivity)
			}
		}
	}
}
