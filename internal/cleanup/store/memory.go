package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"sweeper/pkg/model"
)

// ErrInjected is returned by MemoryStore operations configured to fail.
var ErrInjected = errors.New("injected store failure")

type memDoc struct {
	id         string
	collection string
	spaceID    string
	fields     map[string]time.Time
}

// MemoryStore implements Store and LockStore in memory.
// It is exported so that tests in other packages can use it.
type MemoryStore struct {
	mu       sync.Mutex
	lockMu   sync.Mutex
	spaces   []*model.Space
	children map[string][]*memDoc
	lock     *model.MaintenanceLock

	// Failure injection. A non-nil hook is consulted before the operation runs.
	FailFind       func(q ExpiryQuery) error
	FailDelete     func(ref model.CollectionRef) error
	FailAggregate  func(ref model.CollectionRef) error
	FailScan       func(ref model.CollectionRef) error
	FailSetCount   func(spaceID string) error
	FailIteration  func(scanned int) error
	FailLockTx     error
	FailDeleteLock error

	batchCommits map[string]int
	writes       int
	lockTxCalls  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		children:     make(map[string][]*memDoc),
		batchCommits: make(map[string]int),
	}
}

func childKey(collection, spaceID string) string {
	return spaceID + "/" + collection
}

func (m *MemoryStore) AddSpace(id string, currentUserCount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spaces = append(m.spaces, &model.Space{ID: id, CurrentUserCount: currentUserCount})
}

// AddChild inserts a child document with a single timestamp field. Ids are
// unique per collection; adding an existing id panics.
func (m *MemoryStore) AddChild(collection, spaceID, id, field string, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, docs := range m.children {
		for _, d := range docs {
			if d.collection == collection && d.id == id {
				panic(fmt.Sprintf("store: duplicate id %q in %s", id, collection))
			}
		}
	}
	key := childKey(collection, spaceID)
	m.children[key] = append(m.children[key], &memDoc{
		id:         id,
		collection: collection,
		spaceID:    spaceID,
		fields:     map[string]time.Time{field: ts},
	})
}

func (m *MemoryStore) Space(id string) (model.Space, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.spaces {
		if s.ID == id {
			return *s, true
		}
	}
	return model.Space{}, false
}

// ChildIDs returns the ids of the remaining documents, sorted.
func (m *MemoryStore) ChildIDs(collection, spaceID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.children[childKey(collection, spaceID)]
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.id)
	}
	sort.Strings(ids)
	return ids
}

// BatchCommits returns how many DeleteBatch calls were committed for a child collection.
func (m *MemoryStore) BatchCommits(collection, spaceID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCommits[childKey(collection, spaceID)]
}

// Writes returns the number of mutations applied to spaces or child documents.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemoryStore) Lock() *model.MaintenanceLock {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	if m.lock == nil {
		return nil
	}
	l := *m.lock
	return &l
}

func (m *MemoryStore) SetLock(lock *model.MaintenanceLock) {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	m.lock = lock
}

func (m *MemoryStore) LockTxCalls() int {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	return m.lockTxCalls
}

func (m *MemoryStore) StreamSpaces(ctx context.Context, fn func(space *model.Space) error) error {
	m.mu.Lock()
	snapshot := make([]model.Space, 0, len(m.spaces))
	for _, s := range m.spaces {
		snapshot = append(snapshot, *s)
	}
	m.mu.Unlock()

	for i := range snapshot {
		if m.FailIteration != nil {
			if err := m.FailIteration(i); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(&snapshot[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) FindExpired(ctx context.Context, q ExpiryQuery) ([]any, error) {
	if m.FailFind != nil {
		if err := m.FailFind(q); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*memDoc
	for _, d := range m.children[childKey(q.Ref.Collection, q.Ref.SpaceID)] {
		ts, ok := d.fields[q.Field]
		if ok && ts.Before(q.Before) {
			matched = append(matched, d)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].fields[q.Field], matched[j].fields[q.Field]
		if q.Order == Descending {
			return a.After(b)
		}
		return a.Before(b)
	})
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	ids := make([]any, 0, len(matched))
	for _, d := range matched {
		ids = append(ids, d.id)
	}
	return ids, nil
}

func (m *MemoryStore) DeleteBatch(ctx context.Context, ref model.CollectionRef, ids []any) (int64, error) {
	if m.FailDelete != nil {
		if err := m.FailDelete(ref); err != nil {
			return 0, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	remove := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if s, ok := id.(string); ok {
			remove[s] = struct{}{}
		}
	}

	key := childKey(ref.Collection, ref.SpaceID)
	kept := m.children[key][:0]
	var deleted int64
	for _, d := range m.children[key] {
		if _, ok := remove[d.id]; ok {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	m.children[key] = kept
	m.batchCommits[key]++
	m.writes++
	return deleted, nil
}

func (m *MemoryStore) AggregateCount(ctx context.Context, ref model.CollectionRef) CountResult {
	if m.FailAggregate != nil {
		if err := m.FailAggregate(ref); err != nil {
			return CountResult{Err: err}
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return CountResult{Count: int64(len(m.children[childKey(ref.Collection, ref.SpaceID)]))}
}

func (m *MemoryStore) ScanCount(ctx context.Context, ref model.CollectionRef) (int64, error) {
	if m.FailScan != nil {
		if err := m.FailScan(ref); err != nil {
			return 0, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for range m.children[childKey(ref.Collection, ref.SpaceID)] {
		n++
	}
	return n, nil
}

func (m *MemoryStore) SetUserCount(ctx context.Context, spaceID string, count int64) error {
	if m.FailSetCount != nil {
		if err := m.FailSetCount(spaceID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.spaces {
		if s.ID == spaceID {
			s.CurrentUserCount = count
			m.writes++
			return nil
		}
	}
	return errors.New("space not found: " + spaceID)
}

// RunLockTransaction serializes transactions, so concurrent callers observe
// each other's committed writes. A failed fn discards its writes.
func (m *MemoryStore) RunLockTransaction(ctx context.Context, fn LockTxFunc) error {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	m.lockTxCalls++

	if m.FailLockTx != nil {
		return m.FailLockTx
	}

	tx := &memLockTx{current: m.lock}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if tx.written {
		m.lock = tx.pending
	}
	return nil
}

func (m *MemoryStore) DeleteLock(ctx context.Context) error {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	if m.FailDeleteLock != nil {
		return m.FailDeleteLock
	}
	m.lock = nil
	return nil
}

type memLockTx struct {
	current *model.MaintenanceLock
	pending *model.MaintenanceLock
	written bool
}

func (tx *memLockTx) Get(ctx context.Context) (*model.MaintenanceLock, error) {
	if tx.current == nil {
		return nil, nil
	}
	l := *tx.current
	return &l, nil
}

func (tx *memLockTx) Put(ctx context.Context, lock *model.MaintenanceLock) error {
	l := *lock
	tx.pending = &l
	tx.written = true
	return nil
}
