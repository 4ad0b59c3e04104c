// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mutation applies record changes optimistically and reconciles them
// with the backend. Deletes are announced on the bus before the backend call
// runs; creates and updates are announced only after the backend confirms.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/deck-engine/internal/syncbus"
)

// State is the lifecycle of one mutation.
type State int

const (
	Pending State = iota
	Confirmed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled-back"
	default:
		return "pending"
	}
}

// DefaultConcurrency caps concurrent backend calls of a batch delete.
const DefaultConcurrency = 4

// Notifier surfaces failures to the user.
type Notifier interface {
	NotifyFailure(op string, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(op string, err error)

// NotifyFailure calls f.
func (f NotifierFunc) NotifyFailure(op string, err error) { f(op, err) }

// Mutation tracks one in-flight change.
type Mutation struct {
	done chan struct{}

	mu    sync.Mutex
	state State
	err   error
}

func newMutation() *Mutation {
	return &Mutation{done: make(chan struct{})}
}

func (m *Mutation) resolve(state State, err error) {
	m.mu.Lock()
	m.state = state
	m.err = err
	m.mu.Unlock()
	close(m.done)
}

// State returns the current state.
func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the backend failure of a rolled-back mutation.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Done is closed when the mutation leaves Pending.
func (m *Mutation) Done() <-chan struct{} { return m.done }

// Wait blocks until the mutation resolves or ctx is done.
func (m *Mutation) Wait(ctx context.Context) (State, error) {
	select {
	case <-m.done:
		return m.State(), m.Err()
	case <-ctx.Done():
		return Pending, ctx.Err()
	}
}

// Controller runs mutations for one entity topic.
type Controller[T syncbus.Record] struct {
	topic       *syncbus.Topic[T]
	notifier    Notifier
	log         *zap.Logger
	concurrency int
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	concurrency int
	log         *zap.Logger
}

// WithConcurrency caps concurrent backend calls of a batch delete.
func WithConcurrency(n int) Option { return func(o *options) { o.concurrency = n } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// NewController creates a Controller. notifier may be nil.
func NewController[T syncbus.Record](topic *syncbus.Topic[T], notifier Notifier, opts ...Option) *Controller[T] {
	o := options{concurrency: DefaultConcurrency, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	if notifier == nil {
		notifier = NotifierFunc(func(string, error) {})
	}
	return &Controller[T]{topic: topic, notifier: notifier, log: o.log, concurrency: o.concurrency}
}

// Delete removes victims optimistically. Every deletion is announced before
// Delete returns; the backend calls then run in the background. A victim
// whose backend call fails is restored by a compensating update event, the
// failure is reported to the notifier, and the mutation resolves RolledBack.
func (c *Controller[T]) Delete(ctx context.Context, victims []T, remove func(ctx context.Context, id string) error) *Mutation {
	m := newMutation()
	if len(victims) == 0 {
		m.resolve(Confirmed, nil)
		return m
	}

	for _, v := range victims {
		c.topic.PublishDeleted(ctx, v.RecordID())
	}

	go func() {
		errs := make([]error, len(victims))
		var g errgroup.Group
		g.SetLimit(c.concurrency)
		for i, v := range victims {
			g.Go(func() error {
				if err := remove(ctx, v.RecordID()); err != nil {
					errs[i] = fmt.Errorf("deleting %s: %w", v.RecordID(), err)
				}
				return nil
			})
		}
		_ = g.Wait()

		var failed []error
		for i, err := range errs {
			if err == nil {
				continue
			}
			failed = append(failed, err)
			c.log.Warn("delete rejected, restoring",
				zap.String("entity", c.topic.Entity()),
				zap.String("id", victims[i].RecordID()),
				zap.Error(err))
			c.topic.PublishUpdated(ctx, victims[i])
		}
		if len(failed) == 0 {
			m.resolve(Confirmed, nil)
			return
		}
		err := errors.Join(failed...)
		c.notifier.NotifyFailure("delete "+c.topic.Entity(), err)
		m.resolve(RolledBack, err)
	}()
	return m
}

// Save runs save and announces the authoritative record only after the
// backend confirms it. Nothing is announced on failure.
func (c *Controller[T]) Save(ctx context.Context, save func(ctx context.Context) (T, error)) (T, error) {
	rec, err := save(ctx)
	if err != nil {
		c.notifier.NotifyFailure("save "+c.topic.Entity(), err)
		var zero T
		return zero, err
	}
	c.topic.PublishUpdated(ctx, rec)
	return rec, nil
}
