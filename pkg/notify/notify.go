// Package notify delivers talk reminders to configured destinations.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confsite/agendacache/pkg/agenda"
)

// Reminder is the payload sent when a scheduled notification comes due.
type Reminder struct {
	Talk     agenda.Talk `json:"talk"`
	NotifyAt time.Time   `json:"notify_at"`
}

// StartsIn returns how long until the talk begins, measured from now.
// Negative when the talk already started.
func (r *Reminder) StartsIn(now time.Time) time.Duration {
	return r.Talk.TimeISO.Sub(now).Round(time.Minute)
}

// Notifier delivers reminders to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, r *Reminder) error
}

// Manager broadcasts reminders to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a reminder manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers reports whether at least one destination is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a reminder to every destination, collecting failures.
func (m *Manager) Broadcast(ctx context.Context, r *Reminder) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
