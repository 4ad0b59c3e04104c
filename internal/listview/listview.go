// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package listview holds the in-memory page of records a view displays. A
// view changes only through its own fetches and through bus events; a newer
// fetch cancels an older one so a slow response never overwrites a later
// result.
package listview

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/syncbus"
	"github.com/pdiddy/deck-engine/pkg/types"
)

var (
	// ErrSuperseded is returned by a Load that a newer Load replaced.
	ErrSuperseded = errors.New("fetch superseded")

	// ErrClosed is returned by Load after Close.
	ErrClosed = errors.New("view closed")
)

// Fetcher loads one page of records.
type Fetcher[T syncbus.Record] func(ctx context.Context, q types.ListQuery) (types.Page[T], error)

// View is a live list of records. Its methods are safe for concurrent use;
// the mutex stands in for the single event loop that serializes fetch
// completions, user mutations, and bus events.
type View[T syncbus.Record] struct {
	fetch  Fetcher[T]
	accept func(T) bool
	log    *zap.Logger
	unsub  func()

	mu       sync.Mutex
	items    []T
	total    int
	query    types.ListQuery
	gen      uint64
	inflight context.CancelFunc
	closed   bool
}

// Option configures a View.
type Option[T syncbus.Record] func(*View[T])

// WithFilter sets the predicate an update event must satisfy to enter the
// view. Deletes are always applied.
func WithFilter[T syncbus.Record](accept func(T) bool) Option[T] {
	return func(v *View[T]) { v.accept = accept }
}

// WithLogger sets the logger.
func WithLogger[T syncbus.Record](l *zap.Logger) Option[T] {
	return func(v *View[T]) { v.log = l }
}

// New creates a view and subscribes it to topic.
func New[T syncbus.Record](topic *syncbus.Topic[T], fetch Fetcher[T], opts ...Option[T]) *View[T] {
	v := &View[T]{fetch: fetch, log: zap.NewNop()}
	for _, opt := range opts {
		opt(v)
	}
	v.unsub = topic.Subscribe(syncbus.Handler[T]{
		OnUpdated: v.applyUpdated,
		OnDeleted: v.applyDeleted,
	})
	return v
}

// InCollection accepts presentations synthesized from collectionID.
func InCollection(collectionID string) func(types.PresentationRecord) bool {
	return func(p types.PresentationRecord) bool { return p.InCollection(collectionID) }
}

// QuestionsInCollection accepts questions attached to collectionID.
func QuestionsInCollection(collectionID string) func(types.QuestionRecord) bool {
	return func(q types.QuestionRecord) bool { return q.CollectionID == collectionID }
}

// Load fetches q and replaces the view contents. Any in-flight Load is
// cancelled first and returns ErrSuperseded.
func (v *View[T]) Load(ctx context.Context, q types.ListQuery) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if v.inflight != nil {
		v.inflight()
	}
	v.gen++
	gen := v.gen
	fctx, cancel := context.WithCancel(ctx)
	v.inflight = cancel
	v.mu.Unlock()

	page, err := v.fetch(fctx, q)

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen || v.closed {
		v.log.Debug("discarding stale page", zap.Uint64("generation", gen))
		return ErrSuperseded
	}
	v.inflight = nil
	cancel()
	if err != nil {
		return err
	}
	v.items = page.Items
	v.total = page.TotalCount
	v.query = q
	return nil
}

// Items returns a copy of the current records.
func (v *View[T]) Items() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]T, len(v.items))
	copy(out, v.items)
	return out
}

// TotalCount returns the total reported by the last fetch, adjusted by
// events since.
func (v *View[T]) TotalCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.total
}

// Query returns the query of the last applied fetch.
func (v *View[T]) Query() types.ListQuery {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// Close cancels any in-flight fetch and unsubscribes from the bus.
func (v *View[T]) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	if v.inflight != nil {
		v.inflight()
		v.inflight = nil
	}
	v.mu.Unlock()
	v.unsub()
}

// applyUpdated replaces the record with the same id, or prepends it.
func (v *View[T]) applyUpdated(rec T) {
	if v.accept != nil && !v.accept(rec) {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	id := rec.RecordID()
	for i, it := range v.items {
		if it.RecordID() == id {
			v.items[i] = rec
			return
		}
	}
	items := make([]T, 0, len(v.items)+1)
	items = append(items, rec)
	v.items = append(items, v.items...)
	v.total++
}

// applyDeleted removes the record with id, if present.
func (v *View[T]) applyDeleted(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, it := range v.items {
		if it.RecordID() == id {
			v.items = append(v.items[:i:i], v.items[i+1:]...)
			if v.total > 0 {
				v.total--
			}
			return
		}
	}
}
