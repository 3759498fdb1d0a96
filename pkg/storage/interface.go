// Package storage defines the persistence interfaces the porch service
// relies on. It abstracts storage operations and transaction management so
// that different backends (e.g. PostgreSQL) can provide concrete
// implementations.
package storage

import "context"

// AllStorage is a composite interface that includes all domain-specific
// storage capabilities required by the service.
type AllStorage interface {
	PipelineStorage
	TaskStorage
	TokenStorage
}

// TxStorage describes a storage handle that operates within a database
// transaction. It exposes the same capabilities as AllStorage and
// additionally allows committing or rolling back the ongoing transaction.
// Implementations become unusable after Commit or Rollback.
type TxStorage interface {
	AllStorage

	// Commit finalizes the transaction, persisting all changes.
	Commit() error
	// Rollback aborts the transaction, discarding all uncommitted changes.
	Rollback() error
}

// Storage describes a non-transactional storage handle with the ability to
// start transactions and to release its resources.
type Storage interface {
	AllStorage

	// Close releases any resources held by the storage implementation, such
	// as the underlying connection pool.
	Close() error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Begin starts a new transaction and returns a TxStorage scoped to it.
	Begin(ctx context.Context) (TxStorage, error)
	// WithTx begins a transaction, invokes cb with a transactional handle,
	// and commits on success or rolls back when cb returns an error.
	WithTx(ctx context.Context, cb func(storage AllStorage) error) error
}
