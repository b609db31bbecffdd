package session_test

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSession(t *testing.T, storage *session.Storage, id string) {
	t.Helper()
	ctx := context.Background()
	require.True(t, storage.SaveTokens(ctx, session.TokenPair{Access: "tok", Refresh: "ref"}))
	require.True(t, storage.SaveUser(ctx, &session.User{ID: id, Role: "admin"}))
	require.True(t, storage.SavePermissions(ctx, []string{"packages.read"}))
	require.True(t, storage.SaveActivity(ctx, time.Now()))
}

func TestStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoryKV()
	storage := session.NewStorage(kv)

	seedSession(t, storage, "42")

	assert.Equal(t, "tok", storage.AccessToken(ctx))
	assert.Equal(t, "ref", storage.RefreshToken(ctx))

	user := storage.LoadUser(ctx)
	require.NotNil(t, user)
	assert.Equal(t, "42", user.ID)
	assert.Equal(t, []string{"packages.read"}, storage.LoadPermissions(ctx))
	assert.NotNil(t, storage.LoadActivity(ctx))
}

func TestStorageSetSwallowsWriteFailures(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoryKV()
	storage := session.NewStorage(kv)

	kv.FailWrites(true)

	assert.False(t, storage.Set(ctx, "access_token", "tok"))
	assert.False(t, storage.SaveUser(ctx, &session.User{ID: "1"}))
	assert.Empty(t, storage.AccessToken(ctx))
}

func TestStoragePurgeRemovesEveryKey(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoryKV()
	storage := session.NewStorage(kv)
	seedSession(t, storage, "42")

	storage.Purge(ctx)

	assert.Zero(t, kv.Len())
	v := storage.Validate(ctx)
	assert.False(t, v.IsValid)
	assert.False(t, v.HasToken)
}

func TestValidateConsistentRecord(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoryKV()
	storage := session.NewStorage(kv)
	seedSession(t, storage, "42")

	v := storage.Validate(ctx)

	assert.True(t, v.IsValid)
	assert.True(t, v.HasToken)
	assert.True(t, v.HasConsistentData)
}

func TestValidateTokenWithoutUserIsInconsistent(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoryKV()
	storage := session.NewStorage(kv)

	storage.SaveTokens(ctx, session.TokenPair{Access: "tok"})

	v := storage.Validate(ctx)
	assert.False(t, v.IsValid)
	assert.True(t, v.HasToken)
	assert.False(t, v.HasConsistentData)
}

func TestValidateUserMissingIDIsInconsistent(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoryKV()
	storage := session.NewStorage(kv)

	storage.SaveTokens(ctx, session.TokenPair{Access: "tok"})
	storage.Set(ctx, "user", `{"role":"admin"}`)

	v := storage.Validate(ctx)
	assert.False(t, v.IsValid)
	assert.False(t, v.HasConsistentData)
}

func TestValidateDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoryKV()
	storage := session.NewStorage(kv)

	storage.SaveTokens(ctx, session.TokenPair{Access: "tok"})
	before := kv.Len()

	_ = storage.Validate(ctx)
	_ = storage.Validate(ctx)

	assert.Equal(t, before, kv.Len())
	assert.Equal(t, "tok", storage.AccessToken(ctx))
}

func TestValidateNoTokenMeansNoSession(t *testing.T) {
	ctx := context.Background()
	storage := session.NewStorage(session.NewMemoryKV())

	v := storage.Validate(ctx)
	assert.False(t, v.IsValid)
	assert.False(t, v.HasToken)
	assert.True(t, v.HasConsistentData)
}

func TestMigrateRewritesLegacyKeys(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoryKV()
	storage := session.NewStorage(kv)

	user, err := json.Marshal(&session.User{ID: "7"})
	require.NoError(t, err)
	storage.Set(ctx, "auth_token", "legacy-tok")
	storage.Set(ctx, "auth_user", string(user))
	storage.Set(ctx, "auth_permissions", `["users.read"]`)

	storage.Migrate(ctx)

	assert.Equal(t, "legacy-tok", storage.AccessToken(ctx))
	loaded := storage.LoadUser(ctx)
	require.NotNil(t, loaded)
	assert.Equal(t, "7", loaded.ID)
	assert.Equal(t, []string{"users.read"}, storage.LoadPermissions(ctx))

	// Old names are gone.
	assert.Equal(t, "", storage.Get(ctx, "auth_token", ""))
	assert.Equal(t, "", storage.Get(ctx, "auth_user", ""))
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoryKV()
	storage := session.NewStorage(kv)

	user, err := json.Marshal(&session.User{ID: "7"})
	require.NoError(t, err)
	storage.Set(ctx, "auth_token", "legacy-tok")
	storage.Set(ctx, "auth_user", string(user))

	storage.Migrate(ctx)
	snapshot := map[string]string{
		"access": storage.AccessToken(ctx),
		"user":   storage.Get(ctx, "user", ""),
		"perms":  storage.Get(ctx, "permissions", ""),
	}
	count := kv.Len()

	storage.Migrate(ctx)

	assert.Equal(t, snapshot["access"], storage.AccessToken(ctx))
	assert.Equal(t, snapshot["user"], storage.Get(ctx, "user", ""))
	assert.Equal(t, snapshot["perms"], storage.Get(ctx, "permissions", ""))
	assert.Equal(t, count, kv.Len())
}

func TestMigrateNeverInventsASession(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoryKV()
	storage := session.NewStorage(kv)

	// Legacy user without a legacy token was never a provable session.
	storage.Set(ctx, "auth_user", `{"id":"7"}`)
	storage.Set(ctx, "auth_permissions", `["users.read"]`)

	storage.Migrate(ctx)

	assert.Empty(t, storage.AccessToken(ctx))
	assert.Nil(t, storage.LoadUser(ctx))
	assert.False(t, storage.Validate(ctx).HasToken)
}

func TestMigrateConvertsUnixActivityStamp(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoryKV()
	storage := session.NewStorage(kv)

	at := time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC)
	storage.Set(ctx, "last_activity", strconv.FormatInt(at.Unix(), 10))

	storage.Migrate(ctx)

	loaded := storage.LoadActivity(ctx)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Equal(at))
}

func TestStorageKeyPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	kv := session.NewMemoryKV()
	admin := session.NewStorage(kv, session.WithKeyPrefix("admin"))
	client := session.NewStorage(kv, session.WithKeyPrefix("client"))

	admin.SaveTokens(ctx, session.TokenPair{Access: "admin-tok"})

	assert.Equal(t, "admin-tok", admin.AccessToken(ctx))
	assert.Empty(t, client.AccessToken(ctx))
}
