package session

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// SessionRecord is a single key of the persisted record in the Bun backend.
type SessionRecord struct {
	bun.BaseModel `bun:"table:session_records,alias:sr"`
	Key           string `bun:"key,pk" json:"key"`
	Value         string `bun:"value,notnull" json:"value"`
}

// BunKV persists the session record through Bun, typically over SQLite for
// desktop/CLI clients that keep session state on disk.
type BunKV struct {
	db *bun.DB
}

// NewBunKV wraps an existing Bun handle, creating the record table if needed.
func NewBunKV(ctx context.Context, db *bun.DB) (*BunKV, error) {
	if _, err := db.NewCreateTable().
		Model((*SessionRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, err
	}
	return &BunKV{db: db}, nil
}

// OpenSQLiteKV opens (or creates) a SQLite-backed record at the given DSN,
// e.g. "file:session.db" or "file::memory:?cache=shared".
func OpenSQLiteKV(ctx context.Context, dsn string) (*BunKV, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	return NewBunKV(ctx, db)
}

// DB exposes the underlying handle, mostly for tests and lifecycle wiring.
func (b *BunKV) DB() *bun.DB {
	return b.db
}

func (b *BunKV) Get(ctx context.Context, key string) (string, bool) {
	record := new(SessionRecord)
	err := b.db.NewSelect().
		Model(record).
		Where("?TableAlias.key = ?", key).
		Scan(ctx)
	if err != nil {
		return "", false
	}
	return record.Value, true
}

func (b *BunKV) Set(ctx context.Context, key, value string) error {
	record := &SessionRecord{Key: key, Value: value}
	_, err := b.db.NewInsert().
		Model(record).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}

func (b *BunKV) Delete(ctx context.Context, key string) error {
	_, err := b.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return nil
}
