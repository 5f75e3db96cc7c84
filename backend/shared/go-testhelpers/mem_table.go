package testhelpers

import (
	"context"
	"sort"
	"sync"

	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-repositories"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// memTable is an in-memory stand-in for a versioned table. Mutate holds the
// table lock for the whole callback, the way SELECT ... FOR UPDATE does.
type memTable[T repositories.EntityWithVersion] struct {
	mu    sync.Mutex
	rows  map[string]T
	order []string
	clone func(T) T
	audit *MemAuditLogRepository
}

func newMemTable[T repositories.EntityWithVersion](clone func(T) T, audit *MemAuditLogRepository) *memTable[T] {
	return &memTable[T]{rows: make(map[string]T), clone: clone, audit: audit}
}

func (m *memTable[T]) insert(e T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := e.GetID()
	if _, ok := m.rows[id]; !ok {
		m.order = append(m.order, id)
	}
	m.rows[id] = m.clone(e)
}

func (m *memTable[T]) get(id string) T {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		var zero T
		return zero
	}
	return m.clone(e)
}

// list returns matching rows, newest insert first.
func (m *memTable[T]) list(keep func(T) bool) []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []T
	for i := len(m.order) - 1; i >= 0; i-- {
		e := m.rows[m.order[i]]
		if keep == nil || keep(e) {
			out = append(out, m.clone(e))
		}
	}
	return out
}

func (m *memTable[T]) mutate(ctx context.Context, id string, expected *int64, fn repositories.MutateFunc[T]) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	cur, ok := m.rows[id]
	if !ok {
		return zero, pgx.ErrNoRows
	}
	work := m.clone(cur)
	if expected != nil && *expected != work.GetRowVersion() {
		return work, utils.ErrRowVersionConflict
	}
	audit, err := fn(work)
	if err != nil {
		return work, err
	}
	work.SetRowVersion(work.GetRowVersion() + 1)
	m.rows[id] = m.clone(work)
	if audit != nil && m.audit != nil {
		_ = m.audit.Create(ctx, audit)
	}
	return work, nil
}

// updateIfVersion backs UpdateIfVersion-style methods.
func (m *memTable[T]) updateIfVersion(e T, expected int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[e.GetID()]
	if !ok || cur.GetRowVersion() != expected {
		return 0
	}
	stored := m.clone(e)
	stored.SetRowVersion(expected + 1)
	m.rows[e.GetID()] = stored
	return 1
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func sortStable[T any](items []T, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}
