// Package dal is the single entry point for agenda reads. It hides the
// backing provider behind the sync engine and answers lookups from the
// local store.
package dal

import (
	"context"
	"log/slog"

	"github.com/confsite/agendacache/internal/store"
	syncengine "github.com/confsite/agendacache/internal/sync"
	"github.com/confsite/agendacache/pkg/agenda"
)

// Service exposes provider-independent read operations over the cache.
type Service struct {
	store  store.Store
	engine *syncengine.Engine
	logger *slog.Logger
}

// New creates the data access layer over an opened store and sync engine.
func New(s store.Store, e *syncengine.Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, engine: e, logger: logger}
}

// GetAgenda returns the cached talks matching the filter, sorted ascending
// by start time. An empty store triggers a blocking first ingestion; a
// cache older than the freshness threshold triggers a background
// revalidation while the cached rows are returned immediately.
func (s *Service) GetAgenda(ctx context.Context, f agenda.Filter) syncengine.Result {
	return s.engine.Agenda(ctx, f)
}

// GetTalk looks a talk up by primary key first, then by slug.
// A missing talk is a nil result, not an error.
func (s *Service) GetTalk(ctx context.Context, idOrSlug string) (*agenda.Talk, error) {
	talk, err := s.store.GetTalkByID(ctx, idOrSlug)
	if err != nil || talk != nil {
		return talk, err
	}
	return s.store.GetTalkBySlug(ctx, idOrSlug)
}

// GetSpeakers returns speakers sorted alphabetically by name. A non-empty
// name narrows the list by case-insensitive substring match.
func (s *Service) GetSpeakers(ctx context.Context, name string) ([]agenda.Speaker, error) {
	return s.store.ListSpeakers(ctx, name)
}

// GetSpeaker looks a speaker up by primary key first, then by slug.
func (s *Service) GetSpeaker(ctx context.Context, idOrSlug string) (*agenda.Speaker, error) {
	speaker, err := s.store.GetSpeakerByID(ctx, idOrSlug)
	if err != nil || speaker != nil {
		return speaker, err
	}
	return s.store.GetSpeakerBySlug(ctx, idOrSlug)
}

// GetTalksBySpeaker returns a speaker's talks in schedule order, or nil
// when the speaker is unknown.
func (s *Service) GetTalksBySpeaker(ctx context.Context, idOrSlug string) ([]agenda.Talk, error) {
	speaker, err := s.GetSpeaker(ctx, idOrSlug)
	if err != nil || speaker == nil {
		return nil, err
	}
	return s.store.ListTalksBySpeaker(ctx, speaker.ID)
}

// GetSpeakersForTalk returns everyone presenting the given talk.
func (s *Service) GetSpeakersForTalk(ctx context.Context, idOrSlug string) ([]agenda.Speaker, error) {
	talk, err := s.GetTalk(ctx, idOrSlug)
	if err != nil || talk == nil {
		return nil, err
	}
	return s.store.ListSpeakersForTalk(ctx, talk.ID)
}

// Refresh forces a revalidation against the provider.
func (s *Service) Refresh(ctx context.Context) error {
	return s.engine.Refresh(ctx)
}

// ClearAll performs a hard reset of the whole cache.
func (s *Service) ClearAll(ctx context.Context) error {
	s.logger.Warn("clearing all cached data")
	return s.store.ClearAll(ctx)
}
