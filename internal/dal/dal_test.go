package dal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/confsite/agendacache/internal/store"
	syncengine "github.com/confsite/agendacache/internal/sync"
	"github.com/confsite/agendacache/pkg/agenda"
	"github.com/confsite/agendacache/pkg/provider"
)

type staticProvider struct {
	talks   []agenda.RawTalk
	version string
}

func (p *staticProvider) Name() provider.Kind { return provider.KindStatic }

func (p *staticProvider) Fetch(_ context.Context, version string) (*provider.Snapshot, error) {
	if version != "" && version == p.version {
		return nil, provider.ErrNotModified
	}
	return &provider.Snapshot{Talks: p.talks, Version: p.version}, nil
}

func newService(t *testing.T) *Service {
	t.Helper()
	s := store.NewMemory()
	p := &staticProvider{
		version: "v1",
		talks: []agenda.RawTalk{
			{
				Speaker:         "Bram de Vries",
				Talk:            "Profiling Go Services",
				TimeISO:         "2025-11-21T11:00:00Z",
				DurationMinutes: 45,
				Room:            "Room 2",
				Type:            "workshop",
				Track:           "ops",
			},
			{
				Speaker:         "Ana Gómez",
				Talk:            "Generics in Anger",
				TimeISO:         "2025-11-21T10:00:00Z",
				DurationMinutes: 45,
				Room:            "Room 1",
				Type:            "talk",
				Track:           "language",
			},
			{
				Speaker:         "Ana Gómez, Bram de Vries",
				Talk:            "Closing Panel",
				TimeISO:         "2025-11-22T17:00:00Z",
				DurationMinutes: 30,
				Room:            "Main Hall",
				Type:            "keynote",
				Track:           "general",
			},
		},
	}
	engine := syncengine.New(s, p, nil, time.Hour)
	return New(s, engine, nil)
}

func TestGetAgendaLazyIngestion(t *testing.T) {
	svc := newService(t)

	// First call ingests the bundled dataset into the empty store.
	res := svc.GetAgenda(context.Background(), agenda.Filter{})
	require.NoError(t, res.Err)
	require.Len(t, res.Talks, 3)
	require.Equal(t, "Generics in Anger", res.Talks[0].Title, "ascending by start time")
	require.Equal(t, "Closing Panel", res.Talks[2].Title)

	filtered := svc.GetAgenda(context.Background(), agenda.Filter{Day: "2025-11-21", Track: "ops"})
	require.NoError(t, filtered.Err)
	require.Len(t, filtered.Talks, 1)
	require.Equal(t, "Profiling Go Services", filtered.Talks[0].Title)
}

func TestGetTalkByIDThenSlug(t *testing.T) {
	svc := newService(t)
	svc.GetAgenda(context.Background(), agenda.Filter{})

	bySlug, err := svc.GetTalk(context.Background(), "generics-in-anger")
	require.NoError(t, err)
	require.NotNil(t, bySlug)

	byID, err := svc.GetTalk(context.Background(), bySlug.ID)
	require.NoError(t, err)
	require.Equal(t, bySlug.Title, byID.Title)

	missing, err := svc.GetTalk(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestGetSpeakers(t *testing.T) {
	svc := newService(t)
	svc.GetAgenda(context.Background(), agenda.Filter{})

	speakers, err := svc.GetSpeakers(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, speakers, 2)
	require.Equal(t, "Ana Gómez", speakers[0].Name)
	require.Equal(t, "Bram de Vries", speakers[1].Name)

	filtered, err := svc.GetSpeakers(context.Background(), "VRIES")
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	sp, err := svc.GetSpeaker(context.Background(), "ana-gomez")
	require.NoError(t, err)
	require.NotNil(t, sp)

	missing, err := svc.GetSpeaker(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestJoinReads(t *testing.T) {
	svc := newService(t)
	svc.GetAgenda(context.Background(), agenda.Filter{})

	talks, err := svc.GetTalksBySpeaker(context.Background(), "ana-gomez")
	require.NoError(t, err)
	require.Len(t, talks, 2)

	speakers, err := svc.GetSpeakersForTalk(context.Background(), "closing-panel")
	require.NoError(t, err)
	require.Len(t, speakers, 2)

	none, err := svc.GetTalksBySpeaker(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestClearAllThenReingest(t *testing.T) {
	svc := newService(t)
	svc.GetAgenda(context.Background(), agenda.Filter{})

	require.NoError(t, svc.ClearAll(context.Background()))

	res := svc.GetAgenda(context.Background(), agenda.Filter{})
	require.NoError(t, res.Err)
	require.Len(t, res.Talks, 3, "empty store repopulates on next read")
}
