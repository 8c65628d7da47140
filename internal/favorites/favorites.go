// Package favorites implements the user-local bookmark and reminder
// subsystem layered on the same store as the agenda cache.
package favorites

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/confsite/agendacache/internal/store"
	"github.com/confsite/agendacache/pkg/agenda"
)

// Service manages favorites and scheduled reminders. The favorite set is
// mirrored in memory so toggles apply optimistically: the visible state
// flips before the durable write and rolls back if that write fails.
type Service struct {
	store  store.Store
	logger *slog.Logger
	clock  func() time.Time

	mu     sync.Mutex
	set    map[string]bool
	loaded bool
}

// New creates a favorites service over an opened store.
func New(s store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, logger: logger, clock: time.Now}
}

// load populates the in-memory set from the store once.
func (s *Service) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	favs, err := s.store.ListFavorites(ctx)
	if err != nil {
		return err
	}
	s.set = make(map[string]bool, len(favs))
	for _, fav := range favs {
		s.set[fav.TalkID] = true
	}
	s.loaded = true
	return nil
}

// ToggleFavorite flips the favorite state of a talk and reports the new
// state. The flip is optimistic: on a failed durable write the previous
// in-memory state is restored and the error returned.
func (s *Service) ToggleFavorite(ctx context.Context, talkID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return false, err
	}

	// Snapshot, apply, attempt, restore on failure.
	was := s.set[talkID]
	now := !was
	s.set[talkID] = now

	var err error
	if now {
		_, err = s.store.AddFavorite(ctx, talkID, s.clock())
	} else {
		err = s.store.RemoveFavorite(ctx, talkID)
	}
	if err != nil {
		s.set[talkID] = was
		s.logger.Warn("favorite toggle rolled back", "talk", talkID, "error", err)
		return was, err
	}
	return now, nil
}

// IsFavorite reports whether a talk is currently favorited.
func (s *Service) IsFavorite(ctx context.Context, talkID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx); err != nil {
		return false, err
	}
	return s.set[talkID], nil
}

// Favorites returns the stored favorite rows in the order they were added.
func (s *Service) Favorites(ctx context.Context) ([]agenda.Favorite, error) {
	return s.store.ListFavorites(ctx)
}

// FavoriteTalks resolves the favorite set to talk records, skipping
// favorites whose talks disappeared in a later ingestion.
func (s *Service) FavoriteTalks(ctx context.Context) ([]agenda.Talk, error) {
	favs, err := s.store.ListFavorites(ctx)
	if err != nil {
		return nil, err
	}

	var talks []agenda.Talk
	for _, fav := range favs {
		talk, err := s.store.GetTalkByID(ctx, fav.TalkID)
		if err != nil {
			return nil, err
		}
		if talk != nil {
			talks = append(talks, *talk)
		}
	}
	return talks, nil
}

// Conflicts recomputes the schedule clashes within the current favorite
// set: overlapping time windows in different rooms.
func (s *Service) Conflicts(ctx context.Context) ([]string, error) {
	talks, err := s.FavoriteTalks(ctx)
	if err != nil {
		return nil, err
	}
	return agenda.DetectConflicts(talks), nil
}

// ScheduleNotification upserts the single pending reminder for a talk.
func (s *Service) ScheduleNotification(ctx context.Context, talkID string, notifyAt time.Time) error {
	return s.store.PutNotification(ctx, talkID, notifyAt)
}

// PendingNotifications returns reminders due at or before now. Callers
// surface each one and then delete it via RemoveNotification.
func (s *Service) PendingNotifications(ctx context.Context, now time.Time) ([]agenda.Notification, error) {
	return s.store.DueNotifications(ctx, now)
}

// RemoveNotification consumes a surfaced reminder.
func (s *Service) RemoveNotification(ctx context.Context, talkID string) error {
	return s.store.DeleteNotification(ctx, talkID)
}
