// Package postgres implements the storage interfaces for PostgreSQL using
// pgxpool, database/sql and the goqu query builder. All tables live in a
// dedicated schema selected through the connection's search_path.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/mgcam/npg-porch/pkg/storage"
)

// DefaultSchema is the Postgres schema used when none is configured.
const DefaultSchema = "npg_porch"

// Options defines the configuration parameters for the PostgreSQL
// connection.
type Options struct {
	// Username is the PostgreSQL user to connect as.
	Username string
	// Password is the password for the specified user.
	Password string
	// Host is the PostgreSQL server hostname or IP address.
	Host string
	// SslMode specifies the SSL mode for the connection (e.g. "disable",
	// "require").
	SslMode string
	// Port is the PostgreSQL server port number.
	Port int
	// Database is the name of the database to connect to.
	Database string
	// Schema is the Postgres schema holding the porch tables. Empty selects
	// DefaultSchema. The schema is placed first on the search_path with
	// public as fallback, so queries stay unqualified.
	Schema string
	// ConnMaxLifetime is the maximum amount of time a connection may be
	// reused.
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum amount of time a connection may be
	// idle.
	ConnMaxIdleTime time.Duration
	// MaxOpenConnections is the maximum number of open connections.
	MaxOpenConnections int
	// MaxIdleConnections is the minimum number of pooled connections kept
	// ready.
	MaxIdleConnections int
}

// DB defines the subset of database/sql methods used by this package. Both
// *sql.DB and *sql.Tx satisfy this interface, allowing the same code paths
// to be used within and outside transactions.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Builder abstracts the minimal subset of goqu methods used by this package
// to construct queries. Both a goqu database handle and a transaction handle
// implement this interface.
type Builder interface {
	From(table ...interface{}) *goqu.SelectDataset
	Insert(table interface{}) *goqu.InsertDataset
	Update(table interface{}) *goqu.UpdateDataset
}

// PgSQL implements storage.Storage for PostgreSQL.
type PgSQL struct {
	// DB is the underlying executor, a *sql.DB outside transactions and a
	// *sql.Tx inside one.
	DB DB
	// Builder is the goqu handle used to construct SQL queries bound to DB.
	Builder Builder
	// Pool is the underlying pgx connection pool.
	Pool *pgxpool.Pool
}

var _ storage.Storage = (*PgSQL)(nil)

// Close closes the underlying pgx connection pool and its database/sql
// wrapper.
func (p *PgSQL) Close() error {
	if p.Pool != nil {
		p.Pool.Close()
	}
	if db, ok := p.DB.(*sql.DB); ok {
		_ = db.Close()
	}

	return nil
}

// Ping verifies the database is reachable.
func (p *PgSQL) Ping(ctx context.Context) error {
	if p.Pool != nil {
		if err := p.Pool.Ping(ctx); err != nil {
			return fmt.Errorf("could not ping postgres: %w", err)
		}

		return nil
	}

	if _, err := p.DB.ExecContext(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("could not ping postgres: %w", err)
	}

	return nil
}

// Commit commits the current transaction. It returns storage.ErrNotInTx if
// called when PgSQL is not in a transactional context.
func (p *PgSQL) Commit() error {
	db, ok := p.DB.(*sql.Tx)
	if !ok {
		return storage.ErrNotInTx
	}

	if err := db.Commit(); err != nil {
		return fmt.Errorf("could not commit tx: %w", err)
	}

	return nil
}

// Rollback aborts the current transaction. It returns storage.ErrNotInTx if
// called when PgSQL is not in a transactional context.
func (p *PgSQL) Rollback() error {
	db, ok := p.DB.(*sql.Tx)
	if !ok {
		return storage.ErrNotInTx
	}

	if err := db.Rollback(); err != nil {
		return fmt.Errorf("could not rollback tx: %w", err)
	}

	return nil
}

// Begin starts a new database transaction and returns a transactional PgSQL
// handle. If called while already inside a transaction, ErrAlreadyInTx is
// returned.
func (p *PgSQL) Begin(ctx context.Context) (storage.TxStorage, error) {
	db, ok := p.DB.(*sql.DB)
	if !ok {
		return nil, storage.ErrAlreadyInTx
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin tx: %w", err)
	}

	return &PgSQL{
		DB:      tx,
		Builder: goqu.NewTx("postgres", tx),
	}, nil
}

// WithTx starts a transaction, executes the provided callback with a
// transactional storage handle, and commits if the callback returns nil.
// If the callback returns an error, the transaction is rolled back.
func (p *PgSQL) WithTx(ctx context.Context, cb func(storage storage.AllStorage) error) error {
	tx, err := p.Begin(ctx)
	if err != nil {
		return err
	}

	if err := cb(tx); err != nil {
		_ = tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit tx: %w", err)
	}

	return nil
}

// mapUnique translates Postgres unique violations into storage.ErrDuplicate
// and leaves other errors untouched.
func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", storage.ErrDuplicate, pgErr.ConstraintName)
	}

	return err
}

// ConnString assembles a keyword/value connection string for the options.
func (o Options) ConnString() string {
	schema := o.Schema
	if schema == "" {
		schema = DefaultSchema
	}

	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s password=%s sslmode=%s search_path=%s,public",
		o.Host,
		o.Port,
		o.Username,
		o.Database,
		o.Password,
		o.SslMode,
		schema)
}

// New creates a new PostgreSQL storage instance backed by pgxpool, with a
// database/sql wrapper for compatibility with goqu and goose.
func New(ctx context.Context, options Options) (*PgSQL, error) {
	cfg, err := pgxpool.ParseConfig(options.ConnString())
	if err != nil {
		return nil, fmt.Errorf("could not parse pgxpool config: %w", err)
	}
	if options.MaxOpenConnections > 0 {
		cfg.MaxConns = int32(options.MaxOpenConnections) //nolint: gosec
	}
	if options.MaxIdleConnections > 0 {
		cfg.MinConns = int32(options.MaxIdleConnections) //nolint: gosec
	}
	if options.ConnMaxLifetime > 0 {
		cfg.MaxConnLifetime = options.ConnMaxLifetime
	}
	if options.ConnMaxIdleTime > 0 {
		cfg.MaxConnIdleTime = options.ConnMaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create pgx pool: %w", err)
	}

	// wrap the pool with a *sql.DB to keep compatibility with goqu and goose
	sqlDB := stdlib.OpenDBFromPool(pool)

	return &PgSQL{
		DB:      sqlDB,
		Builder: goqu.Dialect("postgres").DB(sqlDB),
		Pool:    pool,
	}, nil
}
