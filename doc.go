// Package session manages a client-held authentication session: the in-memory
// auth state, its durable copy, and their reconciliation with the remote
// identity service.
//
// State machine:
//   - AuthState is owned by a pure reducer (Reduce). Every transition is total
//     and deterministic; persistence runs adjacent to dispatch, never inside
//     the reduction. The Manager serializes dispatches on a single queue so
//     subscribers observe transitions in order.
//
// Storage:
//   - Storage keeps the five-key persisted record (tokens, user, permissions,
//     last activity) behind a KV backend. Writes never fail loudly; storage is
//     a best-effort cache of the in-memory state. Validate inspects the record
//     without mutating it, Migrate rewrites legacy key layouts idempotently.
//     Memory, Redis, and Bun/SQLite backends ship with the package.
//
// Bootstrap:
//   - Bootstrap runs once per Manager lifetime, reconciling persisted data
//     with the remote identity check. The in-flight/done guard lives in the
//     state itself (BootstrapPhase), and every network chain captures a
//     session generation so results that arrive after a logout are discarded.
//
// Activity:
//   - An ActivitySource feeds interaction stamps while authenticated; a
//     recurring idle check forces the regular logout path once the inactivity
//     threshold is exceeded. AuditSink mirrors the best-effort event emitter
//     used across goliatone services.
package session
