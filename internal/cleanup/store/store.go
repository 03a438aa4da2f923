// Package store defines what the sweeper needs from the document store.
//
// The Mongo implementation lives in internal/cleanup/repository; MemoryStore in
// this package is an in-process implementation used by tests in other packages.
package store

import (
	"context"
	"time"

	"sweeper/pkg/model"
)

type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// ExpiryQuery selects documents of one child collection whose Field is
// strictly before Before.
type ExpiryQuery struct {
	Ref    model.CollectionRef
	Field  string
	Before time.Time
	Limit  int
	Order  SortOrder
}

// CountResult is the outcome of a server-side count. A non-nil Err means the
// aggregate path could not serve the count and the caller should scan instead.
type CountResult struct {
	Count int64
	Err   error
}

func (r CountResult) OK() bool {
	return r.Err == nil
}

// Store is the data access used by a sweep.
type Store interface {
	// StreamSpaces calls fn for every space in store order. An error returned
	// by fn stops the iteration and is returned unchanged.
	StreamSpaces(ctx context.Context, fn func(space *model.Space) error) error

	// FindExpired returns the ids of at most q.Limit matching documents.
	FindExpired(ctx context.Context, q ExpiryQuery) ([]any, error)

	// DeleteBatch atomically deletes the given documents and returns how many were removed.
	DeleteBatch(ctx context.Context, ref model.CollectionRef, ids []any) (int64, error)

	AggregateCount(ctx context.Context, ref model.CollectionRef) CountResult
	ScanCount(ctx context.Context, ref model.CollectionRef) (int64, error)

	SetUserCount(ctx context.Context, spaceID string, count int64) error
}

// LockTx is the view of the lock record inside a transaction.
type LockTx interface {
	// Get returns nil, nil when no lock record exists.
	Get(ctx context.Context) (*model.MaintenanceLock, error)
	Put(ctx context.Context, lock *model.MaintenanceLock) error
}

// LockTxFunc may be invoked more than once if the runner retries the transaction.
type LockTxFunc func(ctx context.Context, tx LockTx) error

type LockStore interface {
	RunLockTransaction(ctx context.Context, fn LockTxFunc) error
	DeleteLock(ctx context.Context) error
}
