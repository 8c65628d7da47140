package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/confsite/agendacache/internal/favorites"
	"github.com/confsite/agendacache/internal/store"
	"github.com/confsite/agendacache/pkg/agenda"
	"github.com/confsite/agendacache/pkg/notify"
)

type recordingNotifier struct {
	err  error
	sent []*notify.Reminder
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(_ context.Context, rem *notify.Reminder) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, rem)
	return nil
}

func setup(t *testing.T, n notify.Notifier) (*Scheduler, store.Store, *favorites.Service, string) {
	t.Helper()
	mem := store.NewMemory()
	ds, err := agenda.Normalize([]agenda.RawTalk{{
		Speaker:         "Ana Gómez",
		Talk:            "Generics in Anger",
		TimeISO:         "2025-11-21T10:00:00Z",
		DurationMinutes: 45,
		Room:            "Room 1",
		Type:            "talk",
	}})
	require.NoError(t, err)
	require.NoError(t, mem.ReplaceAgenda(context.Background(), ds, "v1", time.Now()))

	favs := favorites.New(mem, nil)
	mgr := notify.NewManager([]notify.Notifier{n})
	sched := New(nil, favs, mem, mgr, nil, time.Hour, time.Minute)
	return sched, mem, favs, ds.Talks[0].ID
}

func TestDeliverDueReminders(t *testing.T) {
	ctx := context.Background()
	rec := &recordingNotifier{}
	sched, _, favs, talkID := setup(t, rec)

	notifyAt := time.Date(2025, 11, 21, 9, 45, 0, 0, time.UTC)
	require.NoError(t, favs.ScheduleNotification(ctx, talkID, notifyAt))

	// Not yet due: nothing happens.
	sched.deliverDueReminders(ctx, notifyAt.Add(-time.Minute))
	require.Empty(t, rec.sent)

	// Due: delivered once, then consumed.
	sched.deliverDueReminders(ctx, notifyAt)
	require.Len(t, rec.sent, 1)
	require.Equal(t, "Generics in Anger", rec.sent[0].Talk.Title)

	sched.deliverDueReminders(ctx, notifyAt.Add(time.Minute))
	require.Len(t, rec.sent, 1, "consumed reminders do not fire again")
}

func TestFailedDeliveryStaysQueued(t *testing.T) {
	ctx := context.Background()
	rec := &recordingNotifier{err: errors.New("webhook down")}
	sched, _, favs, talkID := setup(t, rec)

	notifyAt := time.Date(2025, 11, 21, 9, 45, 0, 0, time.UTC)
	require.NoError(t, favs.ScheduleNotification(ctx, talkID, notifyAt))

	sched.deliverDueReminders(ctx, notifyAt)

	due, err := favs.PendingNotifications(ctx, notifyAt)
	require.NoError(t, err)
	require.Len(t, due, 1, "undelivered reminder retried next sweep")

	rec.err = nil
	sched.deliverDueReminders(ctx, notifyAt)
	require.Len(t, rec.sent, 1)

	due, err = favs.PendingNotifications(ctx, notifyAt)
	require.NoError(t, err)
	require.Empty(t, due)
}

func TestReminderForVanishedTalkIsDropped(t *testing.T) {
	ctx := context.Background()
	rec := &recordingNotifier{}
	sched, _, favs, _ := setup(t, rec)

	notifyAt := time.Date(2025, 11, 21, 9, 45, 0, 0, time.UTC)
	require.NoError(t, favs.ScheduleNotification(ctx, "gone-talk", notifyAt))

	sched.deliverDueReminders(ctx, notifyAt)
	require.Empty(t, rec.sent)

	due, err := favs.PendingNotifications(ctx, notifyAt)
	require.NoError(t, err)
	require.Empty(t, due, "orphaned reminder removed")
}
