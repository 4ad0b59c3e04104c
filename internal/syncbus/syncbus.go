// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package syncbus is the in-process publish/subscribe channel that keeps
// independent views of the same records consistent. There is one typed topic
// per entity kind. Delivery is synchronous, in subscription order, and
// at-most-once per emission.
package syncbus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// Record is anything with a stable id.
type Record interface {
	RecordID() string
}

// Entity kinds.
const (
	EntityPresentation = "presentation"
	EntityQuestion     = "question"
)

// UpdatedEvent returns the event name for an upsert, e.g. presentation-updated.
func UpdatedEvent(entity string) string { return entity + "-updated" }

// DeletedEvent returns the event name for a removal, e.g. presentation-deleted.
func DeletedEvent(entity string) string { return entity + "-deleted" }

// Handler receives events. Either callback may be nil.
type Handler[T Record] struct {
	OnUpdated func(rec T)
	OnDeleted func(id string)
}

// Mirror forwards locally published events to other processes.
type Mirror interface {
	Forward(ctx context.Context, env Envelope) error
}

// Envelope is the wire form of an event.
type Envelope struct {
	Event  string          `json:"event"`
	Origin string          `json:"origin"`
	Record json.RawMessage `json:"record,omitempty"`
	ID     string          `json:"id,omitempty"`
}

type subscription[T Record] struct {
	id int
	h  Handler[T]
}

// Topic carries events for one entity kind.
type Topic[T Record] struct {
	entity string
	origin string
	mirror Mirror
	log    *zap.Logger

	mu     sync.Mutex
	nextID int
	subs   []subscription[T]
}

// NewTopic creates a topic. mirror may be nil.
func NewTopic[T Record](entity string, mirror Mirror, log *zap.Logger) *Topic[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Topic[T]{entity: entity, origin: uuid.NewString(), mirror: mirror, log: log}
}

// Entity returns the entity kind of the topic.
func (t *Topic[T]) Entity() string { return t.entity }

// Subscribe registers h and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (t *Topic[T]) Subscribe(h Handler[T]) (unsubscribe func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscription[T]{id: id, h: h})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, s := range t.subs {
			if s.id == id {
				t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
				return
			}
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (t *Topic[T]) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// PublishUpdated announces a full record to every subscriber, then to the
// mirror.
func (t *Topic[T]) PublishUpdated(ctx context.Context, rec T) {
	t.deliverUpdated(rec)
	if t.mirror == nil {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		t.log.Warn("encoding event for mirror failed", zap.String("event", UpdatedEvent(t.entity)), zap.Error(err))
		return
	}
	t.forward(ctx, Envelope{Event: UpdatedEvent(t.entity), Origin: t.origin, Record: raw})
}

// PublishDeleted announces a removal by id to every subscriber, then to the
// mirror.
func (t *Topic[T]) PublishDeleted(ctx context.Context, id string) {
	t.deliverDeleted(id)
	if t.mirror != nil {
		t.forward(ctx, Envelope{Event: DeletedEvent(t.entity), Origin: t.origin, ID: id})
	}
}

func (t *Topic[T]) snapshot() []subscription[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]subscription[T], len(t.subs))
	copy(out, t.subs)
	return out
}

func (t *Topic[T]) deliverUpdated(rec T) {
	event := UpdatedEvent(t.entity)
	t.log.Debug("delivering", zap.String("event", event), zap.String("id", rec.RecordID()))
	for _, s := range t.snapshot() {
		if s.h.OnUpdated != nil {
			t.safely(event, func() { s.h.OnUpdated(rec) })
		}
	}
}

func (t *Topic[T]) deliverDeleted(id string) {
	event := DeletedEvent(t.entity)
	t.log.Debug("delivering", zap.String("event", event), zap.String("id", id))
	for _, s := range t.snapshot() {
		if s.h.OnDeleted != nil {
			t.safely(event, func() { s.h.OnDeleted(id) })
		}
	}
}

// safely runs one handler; a panicking subscriber does not stop delivery to
// the rest.
func (t *Topic[T]) safely(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("subscriber panicked", zap.String("event", event), zap.Any("panic", r))
		}
	}()
	fn()
}

func (t *Topic[T]) forward(ctx context.Context, env Envelope) {
	if err := t.mirror.Forward(ctx, env); err != nil {
		t.log.Warn("mirroring event failed", zap.String("event", env.Event), zap.Error(err))
	}
}

// Receive delivers an event that arrived from another process to local
// subscribers only. Events this topic published itself, and events for
// other entity kinds, are ignored. It reports whether the event was
// delivered.
func (t *Topic[T]) Receive(env Envelope) bool {
	if env.Origin == t.origin {
		return false
	}
	switch env.Event {
	case UpdatedEvent(t.entity):
		var rec T
		if err := json.Unmarshal(env.Record, &rec); err != nil {
			t.log.Warn("decoding mirrored event failed", zap.String("event", env.Event), zap.Error(err))
			return false
		}
		t.deliverUpdated(rec)
		return true
	case DeletedEvent(t.entity):
		if env.ID == "" {
			return false
		}
		t.deliverDeleted(env.ID)
		return true
	}
	return false
}

// Bus holds the topics of the application. It is built once by the
// composition root and injected into publishers and subscribers.
type Bus struct {
	Presentations *Topic[types.PresentationRecord]
	Questions     *Topic[types.QuestionRecord]
}

// NewBus creates a bus. mirror may be nil.
func NewBus(mirror Mirror, log *zap.Logger) *Bus {
	return &Bus{
		Presentations: NewTopic[types.PresentationRecord](EntityPresentation, mirror, log),
		Questions:     NewTopic[types.QuestionRecord](EntityQuestion, mirror, log),
	}
}

// Receive routes a mirrored envelope to the matching topic.
func (b *Bus) Receive(env Envelope) bool {
	return b.Presentations.Receive(env) || b.Questions.Receive(env)
}
