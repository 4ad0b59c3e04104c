// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mutation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/deck-engine/internal/syncbus"
	"github.com/pdiddy/deck-engine/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// eventLog records topic events.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, s)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func watch(topic *syncbus.Topic[types.PresentationRecord]) *eventLog {
	l := &eventLog{}
	topic.Subscribe(syncbus.Handler[types.PresentationRecord]{
		OnUpdated: func(r types.PresentationRecord) { l.add("upd:" + r.ID) },
		OnDeleted: func(id string) { l.add("del:" + id) },
	})
	return l
}

type notes struct {
	mu   sync.Mutex
	ops  []string
	errs []error
}

func (n *notes) NotifyFailure(op string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ops = append(n.ops, op)
	n.errs = append(n.errs, err)
}

func wait(t *testing.T, m *Mutation) (State, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Wait(ctx)
}

func TestDelete_AnnouncesBeforeBackendResolves(t *testing.T) {
	topic := syncbus.NewTopic[types.PresentationRecord](syncbus.EntityPresentation, nil, nil)
	log := watch(topic)
	c := NewController(topic, nil)

	release := make(chan struct{})
	m := c.Delete(context.Background(), []types.PresentationRecord{{ID: "p1"}}, func(context.Context, string) error {
		<-release
		return nil
	})

	assert.Equal(t, []string{"del:p1"}, log.snapshot())
	assert.Equal(t, Pending, m.State())

	close(release)
	state, err := wait(t, m)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, state)
	assert.Equal(t, []string{"del:p1"}, log.snapshot())
}

func TestDelete_FailureRestoresAndNotifies(t *testing.T) {
	topic := syncbus.NewTopic[types.PresentationRecord](syncbus.EntityPresentation, nil, nil)
	log := watch(topic)
	n := &notes{}
	c := NewController(topic, n)

	rejected := errors.New("backend said no")
	m := c.Delete(context.Background(), []types.PresentationRecord{{ID: "p1"}}, func(context.Context, string) error {
		return rejected
	})

	state, err := wait(t, m)
	assert.Equal(t, RolledBack, state)
	assert.ErrorIs(t, err, rejected)
	assert.ErrorIs(t, m.Err(), rejected)
	assert.Equal(t, []string{"del:p1", "upd:p1"}, log.snapshot())
	require.Len(t, n.ops, 1)
	assert.Equal(t, "delete presentation", n.ops[0])
}

func TestDelete_BatchPartialFailure(t *testing.T) {
	topic := syncbus.NewTopic[types.PresentationRecord](syncbus.EntityPresentation, nil, nil)
	log := watch(topic)
	n := &notes{}
	c := NewController(topic, n, WithConcurrency(2))

	victims := []types.PresentationRecord{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	var mu sync.Mutex
	var called []string
	m := c.Delete(context.Background(), victims, func(_ context.Context, id string) error {
		mu.Lock()
		called = append(called, id)
		mu.Unlock()
		if id == "b" {
			return errors.New("locked")
		}
		return nil
	})

	state, err := wait(t, m)
	assert.Equal(t, RolledBack, state)
	assert.ErrorContains(t, err, "deleting b")
	assert.ElementsMatch(t, []string{"a", "b", "c"}, called)
	assert.Equal(t, []string{"del:a", "del:b", "del:c", "upd:b"}, log.snapshot())
	assert.Len(t, n.ops, 1)
}

func TestDelete_Empty(t *testing.T) {
	topic := syncbus.NewTopic[types.PresentationRecord](syncbus.EntityPresentation, nil, nil)
	m := NewController(topic, nil).Delete(context.Background(), nil, func(context.Context, string) error {
		t.Fatal("no backend call expected")
		return nil
	})
	state, err := wait(t, m)
	assert.NoError(t, err)
	assert.Equal(t, Confirmed, state)
}

func TestMutation_WaitHonorsContext(t *testing.T) {
	topic := syncbus.NewTopic[types.PresentationRecord](syncbus.EntityPresentation, nil, nil)
	release := make(chan struct{})
	m := NewController(topic, nil).Delete(context.Background(), []types.PresentationRecord{{ID: "x"}},
		func(context.Context, string) error { <-release; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state, err := m.Wait(ctx)
	assert.Equal(t, Pending, state)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	<-m.Done()
	assert.Equal(t, Confirmed, m.State())
}

func TestSave_PublishesOnlyAfterConfirmation(t *testing.T) {
	topic := syncbus.NewTopic[types.PresentationRecord](syncbus.EntityPresentation, nil, nil)
	log := watch(topic)
	n := &notes{}
	c := NewController(topic, n)

	rec, err := c.Save(context.Background(), func(context.Context) (types.PresentationRecord, error) {
		assert.Empty(t, log.snapshot(), "nothing announced before confirmation")
		return types.PresentationRecord{ID: "server-id"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "server-id", rec.ID)
	assert.Equal(t, []string{"upd:server-id"}, log.snapshot())

	_, err = c.Save(context.Background(), func(context.Context) (types.PresentationRecord, error) {
		return types.PresentationRecord{}, errors.New("rejected")
	})
	assert.Error(t, err)
	assert.Equal(t, []string{"upd:server-id"}, log.snapshot())
	assert.Equal(t, []string{"save presentation"}, n.ops)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "confirmed", Confirmed.String())
	assert.Equal(t, "rolled-back", RolledBack.String())
}
