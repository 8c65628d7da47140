package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/confsite/agendacache/internal/favorites"
	"github.com/confsite/agendacache/internal/store"
	syncengine "github.com/confsite/agendacache/internal/sync"
	"github.com/confsite/agendacache/pkg/notify"
)

// Scheduler runs periodic revalidation and the due-reminder sweep.
type Scheduler struct {
	engine    *syncengine.Engine
	favorites *favorites.Service
	store     store.Store
	notifier  *notify.Manager
	logger    *slog.Logger

	syncInterval  time.Duration
	checkInterval time.Duration
}

// New creates a scheduler.
func New(
	engine *syncengine.Engine,
	favs *favorites.Service,
	s store.Store,
	notifier *notify.Manager,
	logger *slog.Logger,
	syncInterval, checkInterval time.Duration,
) *Scheduler {
	if syncInterval <= 0 {
		syncInterval = time.Hour
	}
	if checkInterval <= 0 {
		checkInterval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		engine:        engine,
		favorites:     favs,
		store:         s,
		notifier:      notifier,
		logger:        logger,
		syncInterval:  syncInterval,
		checkInterval: checkInterval,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	syncTicker := time.NewTicker(s.syncInterval)
	checkTicker := time.NewTicker(s.checkInterval)
	defer syncTicker.Stop()
	defer checkTicker.Stop()

	// Revalidate immediately on start so the daemon never serves a
	// day-old cache for a full interval.
	s.revalidate(ctx)

	s.logger.Info("scheduler running",
		"sync_interval", s.syncInterval,
		"reminder_interval", s.checkInterval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-syncTicker.C:
			s.revalidate(ctx)
		case <-checkTicker.C:
			s.deliverDueReminders(ctx, time.Now())
		}
	}
}

func (s *Scheduler) revalidate(ctx context.Context) {
	if err := s.engine.Refresh(ctx); err != nil {
		s.logger.Warn("scheduled revalidation failed", "error", err)
	}
}

// deliverDueReminders surfaces every reminder whose time has passed and
// deletes it once broadcast. Failed deliveries stay queued for the next
// sweep.
func (s *Scheduler) deliverDueReminders(ctx context.Context, now time.Time) {
	due, err := s.favorites.PendingNotifications(ctx, now)
	if err != nil {
		s.logger.Warn("reminder sweep failed", "error", err)
		return
	}

	for _, n := range due {
		talk, err := s.store.GetTalkByID(ctx, n.TalkID)
		if err != nil {
			s.logger.Warn("reminder talk lookup failed", "talk", n.TalkID, "error", err)
			continue
		}
		if talk == nil {
			// The talk vanished in a later ingestion; drop the reminder.
			_ = s.favorites.RemoveNotification(ctx, n.TalkID)
			continue
		}

		if s.notifier.HasNotifiers() {
			reminder := &notify.Reminder{Talk: *talk, NotifyAt: n.NotifyAt}
			if err := s.notifier.Broadcast(ctx, reminder); err != nil {
				s.logger.Warn("reminder delivery failed", "talk", n.TalkID, "error", err)
				continue
			}
		}

		if err := s.favorites.RemoveNotification(ctx, n.TalkID); err != nil {
			s.logger.Warn("reminder cleanup failed", "talk", n.TalkID, "error", err)
			continue
		}
		s.logger.Info("reminder delivered", "talk", talk.Title, "starts", talk.StartTime)
	}
}
