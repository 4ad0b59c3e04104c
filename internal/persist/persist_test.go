// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package persist

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deck-engine/internal/mutation"
	"github.com/pdiddy/deck-engine/internal/syncbus"
	"github.com/pdiddy/deck-engine/pkg/types"
)

type fakeSaver struct {
	gotDraft  types.PresentationRecord
	gotData   string
	gotFormat types.ExportFormat
	resp      types.PresentationRecord
	err       error
}

func (f *fakeSaver) SavePresentation(_ context.Context, draft types.PresentationRecord, data string, format types.ExportFormat) (types.PresentationRecord, error) {
	f.gotDraft, f.gotData, f.gotFormat = draft, data, format
	return f.resp, f.err
}

func setup(saver Saver) (*Persister, *[]string, *[]error) {
	topic := syncbus.NewTopic[types.PresentationRecord](syncbus.EntityPresentation, nil, nil)
	var events []string
	topic.Subscribe(syncbus.Handler[types.PresentationRecord]{
		OnUpdated: func(r types.PresentationRecord) { events = append(events, r.ID) },
	})
	var failures []error
	ctrl := mutation.NewController(topic, mutation.NotifierFunc(func(_ string, err error) { failures = append(failures, err) }))
	return New(saver, ctrl, nil), &events, &failures
}

func TestPersist_Success(t *testing.T) {
	saver := &fakeSaver{resp: types.PresentationRecord{ID: "server-1", SlideCount: 5}}
	p, events, failures := setup(saver)

	artifact := []byte{0x00, 0xff, 'd', 'e', 'c', 'k'}
	rec, err := p.Persist(context.Background(), types.PresentationRecord{ID: "draft-1", SlideCount: 5}, artifact, types.ExportPDF)
	require.NoError(t, err)

	assert.Equal(t, "server-1", rec.ID, "the backend record wins")
	assert.Equal(t, "draft-1", saver.gotDraft.ID)
	assert.Equal(t, types.ExportPDF, saver.gotFormat)
	decoded, err := base64.StdEncoding.DecodeString(saver.gotData)
	require.NoError(t, err)
	assert.Equal(t, artifact, decoded)
	assert.Equal(t, []string{"server-1"}, *events)
	assert.Empty(t, *failures)
}

func TestPersist_FailureAnnouncesNothing(t *testing.T) {
	rejected := errors.New("status error")
	p, events, failures := setup(&fakeSaver{err: rejected})

	_, err := p.Persist(context.Background(), types.PresentationRecord{ID: "d"}, []byte("x"), types.ExportHTML)
	assert.ErrorIs(t, err, rejected)
	assert.Empty(t, *events)
	assert.Len(t, *failures, 1)
}

func TestPersist_EmptyArtifact(t *testing.T) {
	saver := &fakeSaver{}
	p, events, _ := setup(saver)
	_, err := p.Persist(context.Background(), types.PresentationRecord{}, nil, types.ExportHTML)
	assert.ErrorIs(t, err, ErrEmptyArtifact)
	assert.Empty(t, saver.gotData)
	assert.Empty(t, *events)
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "aGk=", Encode([]byte("hi")))
}
