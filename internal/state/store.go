// Package state holds the process-wide application state: the latest health
// snapshot, the document-status map and the last query result.
//
// Writers (the monitors and orchestrators) see narrow interfaces; readers get
// deep-copied snapshots and change notifications. Every write is a full
// snapshot replace or a per-key merge, so concurrent writers are last-write-wins.
package state

import (
	"sync"
	"time"

	"github.com/kailas-cloud/ragdesk/internal/domain/docstatus"
	"github.com/kailas-cloud/ragdesk/internal/domain/health"
	"github.com/kailas-cloud/ragdesk/internal/domain/query"
)

// HealthWriter replaces the health snapshot.
type HealthWriter interface {
	SetHealth(h health.SystemHealth)
}

// DocumentStatusWriter merges ingestion status updates.
type DocumentStatusWriter interface {
	MergeDocumentStatus(update docstatus.Map)
}

// QueryResultWriter replaces or clears the last query result.
type QueryResultWriter interface {
	SetQueryResult(r query.Result)
	ClearQueryResult()
}

// Reader is the read side used by presentation.
type Reader interface {
	Snapshot() Snapshot
	Subscribe(fn func(Snapshot)) (cancel func())
}

// Snapshot is an immutable copy of the state.
type Snapshot struct {
	// Health is nil until the first poll completes.
	Health         *health.SystemHealth `json:"health"`
	DocumentStatus docstatus.Map        `json:"document_status"`
	// QueryResult is shared, not copied; results are never mutated after normalization.
	QueryResult query.Result `json:"query_result"`
	Version     uint64       `json:"version"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Store is the in-memory state container. The zero value is not usable; use New.
type Store struct {
	mu        sync.RWMutex
	health    *health.SystemHealth
	docs      docstatus.Map
	result    query.Result
	version   uint64
	updatedAt time.Time

	subMu  sync.Mutex
	subs   map[uint64]func(Snapshot)
	nextID uint64
}

var (
	_ HealthWriter         = (*Store)(nil)
	_ DocumentStatusWriter = (*Store)(nil)
	_ QueryResultWriter    = (*Store)(nil)
	_ Reader               = (*Store)(nil)
)

// New creates an empty Store.
func New() *Store {
	return &Store{
		docs: docstatus.Map{},
		subs: make(map[uint64]func(Snapshot)),
	}
}

// SetHealth replaces the health snapshot wholesale.
func (s *Store) SetHealth(h health.SystemHealth) {
	s.update(func() { s.health = &h })
}

// MergeDocumentStatus overwrites existing keys and adds new ones.
func (s *Store) MergeDocumentStatus(update docstatus.Map) {
	s.update(func() { s.docs.Merge(update) })
}

// SetQueryResult replaces the last query result. Results never accumulate.
func (s *Store) SetQueryResult(r query.Result) {
	s.update(func() { s.result = r })
}

// ClearQueryResult drops the last query result.
func (s *Store) ClearQueryResult() {
	s.update(func() { s.result = nil })
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called after every write. fn runs on the
// writer's goroutine and must not block. The returned cancel is idempotent.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) update(mutate func()) {
	s.mu.Lock()
	mutate()
	s.version++
	s.updatedAt = time.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		DocumentStatus: s.docs.Clone(),
		QueryResult:    s.result,
		Version:        s.version,
		UpdatedAt:      s.updatedAt,
	}
	if s.health != nil {
		h := *s.health
		snap.Health = &h
	}
	return snap
}
