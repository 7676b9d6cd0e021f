package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx. Every
// store runs on it, so the same store works inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Stores bundles every store over one Querier.
type Stores struct {
	Users         *UsersStore
	Identities    *IdentitiesStore
	MagicLinks    *MagicLinkStore
	RefreshTokens *RefreshTokenStore
	EmailChanges  *EmailChangeStore
	Tours         *ToursStore
	Operators     *OperatorsStore
}

func NewStores(q Querier) *Stores {
	return &Stores{
		Users:         &UsersStore{q: q},
		Identities:    &IdentitiesStore{q: q},
		MagicLinks:    &MagicLinkStore{q: q},
		RefreshTokens: &RefreshTokenStore{q: q},
		EmailChanges:  &EmailChangeStore{q: q},
		Tours:         &ToursStore{q: q},
		Operators:     &OperatorsStore{q: q},
	}
}

// DB is the pool plus its store bundle, with transactional execution.
type DB struct {
	Pool *pgxpool.Pool
	*Stores
}

func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{Pool: pool, Stores: NewStores(pool)}
}

// InTx runs fn against a store bundle bound to one transaction. The
// transaction commits iff fn returns nil.
func (db *DB) InTx(ctx context.Context, fn func(s *Stores) error) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(NewStores(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
