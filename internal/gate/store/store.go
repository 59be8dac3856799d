package store

import (
	"context"
	"errors"
	"time"

	"github.com/bitshala/guildgate/internal/gate/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. Sub-repositories keep concerns tidy and testable.
type Store interface {
	Tokens() Tokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Tokens interface {
	// CreateToken inserts a new unused token record (id and value are
	// generated by the caller). A duplicate value returns ErrAlreadyExists.
	CreateToken(ctx context.Context, t domain.Token) error

	// GetTokenByValue returns a token by its opaque value.
	GetTokenByValue(ctx context.Context, value string) (domain.Token, error)

	// RedeemToken atomically marks the token used and returns its role key.
	// It must guarantee at-most-one success per token value under concurrent
	// callers; every later (or losing) caller gets ErrNotFound. A token that
	// never existed and a token already consumed are indistinguishable here.
	RedeemToken(ctx context.Context, value string) (string, error)

	// MarkEmailSent records the delivery outcome of the invite email.
	// It never affects redeemability.
	MarkEmailSent(ctx context.Context, value string, sent bool) error

	// DeleteExpiredTokens removes every record whose expires_at is before
	// now, used or not. Returns the number of rows removed.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)

	// ListRecentTokens returns up to limit records, newest first.
	ListRecentTokens(ctx context.Context, limit int) ([]domain.Token, error)
}
