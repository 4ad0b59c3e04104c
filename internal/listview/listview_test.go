// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package listview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/deck-engine/internal/mutation"
	"github.com/pdiddy/deck-engine/internal/syncbus"
	"github.com/pdiddy/deck-engine/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func rec(id string, collections ...string) types.PresentationRecord {
	return types.PresentationRecord{ID: id, CollectionIDs: collections}
}

func ids(items []types.PresentationRecord) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func staticFetch(items []types.PresentationRecord, total int) Fetcher[types.PresentationRecord] {
	return func(context.Context, types.ListQuery) (types.Page[types.PresentationRecord], error) {
		return types.Page[types.PresentationRecord]{Items: items, TotalCount: total}, nil
	}
}

func newTopic() *syncbus.Topic[types.PresentationRecord] {
	return syncbus.NewTopic[types.PresentationRecord](syncbus.EntityPresentation, nil, nil)
}

func TestLoad(t *testing.T) {
	v := New(newTopic(), staticFetch([]types.PresentationRecord{rec("a"), rec("b")}, 12))
	defer v.Close()

	q := types.ListQuery{Page: 2, Limit: 2, Search: "x"}
	require.NoError(t, v.Load(context.Background(), q))
	assert.Equal(t, []string{"a", "b"}, ids(v.Items()))
	assert.Equal(t, 12, v.TotalCount())
	assert.Equal(t, q, v.Query())
}

func TestLoad_ErrorKeepsState(t *testing.T) {
	calls := 0
	v := New(newTopic(), func(context.Context, types.ListQuery) (types.Page[types.PresentationRecord], error) {
		calls++
		if calls > 1 {
			return types.Page[types.PresentationRecord]{}, errors.New("offline")
		}
		return types.Page[types.PresentationRecord]{Items: []types.PresentationRecord{rec("a")}, TotalCount: 1}, nil
	})
	defer v.Close()

	require.NoError(t, v.Load(context.Background(), types.ListQuery{}))
	assert.EqualError(t, v.Load(context.Background(), types.ListQuery{Page: 2}), "offline")
	assert.Equal(t, []string{"a"}, ids(v.Items()))
}

func TestLoad_SupersededByCancellation(t *testing.T) {
	started := make(chan struct{})
	v := New(newTopic(), func(ctx context.Context, q types.ListQuery) (types.Page[types.PresentationRecord], error) {
		if q.Page == 1 {
			close(started)
			<-ctx.Done()
			return types.Page[types.PresentationRecord]{}, ctx.Err()
		}
		return types.Page[types.PresentationRecord]{Items: []types.PresentationRecord{rec("page2")}, TotalCount: 5}, nil
	})
	defer v.Close()

	first := make(chan error, 1)
	go func() { first <- v.Load(context.Background(), types.ListQuery{Page: 1}) }()
	<-started

	require.NoError(t, v.Load(context.Background(), types.ListQuery{Page: 2}))

	select {
	case err := <-first:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(5 * time.Second):
		t.Fatal("stale fetch was not cancelled")
	}
	assert.Equal(t, []string{"page2"}, ids(v.Items()))
	assert.Equal(t, 2, v.Query().Page)
}

func TestLoad_SlowStaleResponseDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	v := New(newTopic(), func(_ context.Context, q types.ListQuery) (types.Page[types.PresentationRecord], error) {
		if q.Page == 1 {
			close(started)
			<-release // ignores cancellation
			return types.Page[types.PresentationRecord]{Items: []types.PresentationRecord{rec("stale")}}, nil
		}
		return types.Page[types.PresentationRecord]{Items: []types.PresentationRecord{rec("fresh")}}, nil
	})
	defer v.Close()

	first := make(chan error, 1)
	go func() { first <- v.Load(context.Background(), types.ListQuery{Page: 1}) }()
	<-started
	require.NoError(t, v.Load(context.Background(), types.ListQuery{Page: 2}))
	close(release)

	assert.ErrorIs(t, <-first, ErrSuperseded)
	assert.Equal(t, []string{"fresh"}, ids(v.Items()))
}

func TestClose(t *testing.T) {
	topic := newTopic()
	started := make(chan struct{})
	v := New(topic, func(ctx context.Context, _ types.ListQuery) (types.Page[types.PresentationRecord], error) {
		close(started)
		<-ctx.Done()
		return types.Page[types.PresentationRecord]{}, ctx.Err()
	})
	assert.Equal(t, 1, topic.Subscribers())

	done := make(chan error, 1)
	go func() { done <- v.Load(context.Background(), types.ListQuery{}) }()
	<-started
	v.Close()
	v.Close()

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.ErrorIs(t, v.Load(context.Background(), types.ListQuery{}), ErrClosed)
	assert.Equal(t, 0, topic.Subscribers())
}

func TestEvents_ReplacePrependDelete(t *testing.T) {
	topic := newTopic()
	v := New(topic, staticFetch([]types.PresentationRecord{rec("a"), rec("b")}, 2))
	defer v.Close()
	require.NoError(t, v.Load(context.Background(), types.ListQuery{}))
	ctx := context.Background()

	renamed := rec("b")
	renamed.Title = "renamed"
	topic.PublishUpdated(ctx, renamed)
	assert.Equal(t, []string{"a", "b"}, ids(v.Items()))
	assert.Equal(t, "renamed", v.Items()[1].Title)
	assert.Equal(t, 2, v.TotalCount())

	topic.PublishUpdated(ctx, rec("c"))
	assert.Equal(t, []string{"c", "a", "b"}, ids(v.Items()))
	assert.Equal(t, 3, v.TotalCount())

	topic.PublishDeleted(ctx, "a")
	assert.Equal(t, []string{"c", "b"}, ids(v.Items()))
	assert.Equal(t, 2, v.TotalCount())

	topic.PublishDeleted(ctx, "missing")
	assert.Equal(t, 2, v.TotalCount())
}

func TestEvents_CollectionFilter(t *testing.T) {
	topic := newTopic()
	v := New(topic, staticFetch(nil, 0), WithFilter(InCollection("col-1")))
	defer v.Close()

	topic.PublishUpdated(context.Background(), rec("x", "col-2"))
	topic.PublishUpdated(context.Background(), rec("y", "col-2", "col-1"))
	assert.Equal(t, []string{"y"}, ids(v.Items()))
	assert.Equal(t, 1, v.TotalCount())
}

func TestQuestionsInCollection(t *testing.T) {
	f := QuestionsInCollection("c")
	assert.True(t, f(types.QuestionRecord{CollectionID: "c"}))
	assert.False(t, f(types.QuestionRecord{CollectionID: "d"}))
}

func TestOptimisticDelete_AllViewsBeforeBackend(t *testing.T) {
	topic := newTopic()
	all := []types.PresentationRecord{rec("a", "c1"), rec("b", "c1")}
	library := New(topic, staticFetch(all, 2))
	defer library.Close()
	collection := New(topic, staticFetch(all, 2), WithFilter(InCollection("c1")))
	defer collection.Close()
	ctx := context.Background()
	require.NoError(t, library.Load(ctx, types.ListQuery{}))
	require.NoError(t, collection.Load(ctx, types.ListQuery{CollectionID: "c1"}))

	var notified error
	c := mutation.NewController(topic, mutation.NotifierFunc(func(_ string, err error) { notified = err }))

	release := make(chan struct{})
	m := c.Delete(ctx, []types.PresentationRecord{all[0]}, func(context.Context, string) error {
		<-release
		return errors.New("server down")
	})

	// Both views dropped the record before the backend answered.
	assert.Equal(t, []string{"b"}, ids(library.Items()))
	assert.Equal(t, []string{"b"}, ids(collection.Items()))
	assert.Equal(t, mutation.Pending, m.State())

	close(release)
	state, err := m.Wait(ctx)
	assert.Equal(t, mutation.RolledBack, state)
	assert.Error(t, err)
	assert.Error(t, notified)

	// The compensating update restores the record at the top.
	assert.Equal(t, []string{"a", "b"}, ids(library.Items()))
	assert.Equal(t, []string{"a", "b"}, ids(collection.Items()))
	assert.Equal(t, 2, library.TotalCount())
}
