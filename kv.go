package session

import "context"

// KV is the minimal backend contract behind Storage. Implementations are safe
// for concurrent use. Get reports a miss as ("", false); lookup errors are
// treated as misses by the caller, write errors are surfaced so Storage can
// swallow and log them.
type KV interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
