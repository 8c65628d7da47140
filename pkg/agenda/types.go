package agenda

import "time"

// TalkType classifies a scheduled session.
type TalkType string

const (
	TypeKeynote  TalkType = "keynote"
	TypeTalk     TalkType = "talk"
	TypeWorkshop TalkType = "workshop"
)

// RawTalk is the source record shape shared by every provider: the bundled
// dataset, the remote agenda endpoint and the schedule feed all produce it.
type RawTalk struct {
	Speaker         string `json:"speaker"`
	Talk            string `json:"talk"`
	Description     string `json:"description"`
	TimeRaw         string `json:"timeRaw"`
	TimeISO         string `json:"timeISO"`
	DurationMinutes int    `json:"durationMinutes"`
	DurationHuman   string `json:"durationHuman"`
	Room            string `json:"room"`
	Type            string `json:"type"`
	Track           string `json:"track"`
}

// Talk is a normalized scheduled session.
type Talk struct {
	ID              string    `json:"id" db:"id"`
	Slug            string    `json:"slug" db:"slug"`
	Day             string    `json:"day" db:"day"`
	Track           string    `json:"track" db:"track"`
	Room            string    `json:"room" db:"room"`
	StartTime       string    `json:"startTime" db:"start_time"`
	EndTime         string    `json:"endTime" db:"end_time"`
	Speaker         string    `json:"speaker" db:"speaker"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description" db:"description"`
	TimeISO         time.Time `json:"timeISO" db:"time_iso"`
	DurationMinutes int       `json:"durationMinutes" db:"duration_minutes"`
	Type            TalkType  `json:"type" db:"type"`
}

// End returns the instant the talk finishes.
func (t Talk) End() time.Time {
	return t.TimeISO.Add(time.Duration(t.DurationMinutes) * time.Minute)
}

// Speaker is a person presenting one or more talks. Identity is derived
// from the display name, so the same name always maps to the same speaker.
type Speaker struct {
	ID   string `json:"id" db:"id"`
	Slug string `json:"slug" db:"slug"`
	Name string `json:"name" db:"name"`
}

// TalkSpeaker joins talks to speakers many-to-many.
type TalkSpeaker struct {
	TalkID    string `json:"talk_id" db:"talk_id"`
	SpeakerID string `json:"speaker_id" db:"speaker_id"`
}

// Favorite is a user bookmark of a talk. At most one row exists per talk.
type Favorite struct {
	ID      int64     `json:"id" db:"id"`
	TalkID  string    `json:"talk_id" db:"talk_id"`
	AddedAt time.Time `json:"added_at" db:"added_at"`
}

// Notification is a pending local reminder for a talk. One per talk,
// last write wins; consumed and deleted once surfaced.
type Notification struct {
	TalkID   string    `json:"talk_id" db:"talk_id"`
	NotifyAt time.Time `json:"notify_at" db:"notify_at"`
}

// Filter narrows an agenda listing. Empty fields are unconstrained;
// set fields combine with AND semantics.
type Filter struct {
	Day   string
	Track string
	Type  string
	Room  string
}

// IsZero reports whether no filter field is set.
func (f Filter) IsZero() bool {
	return f.Day == "" && f.Track == "" && f.Type == "" && f.Room == ""
}

// Matches reports whether a talk passes every set filter field.
func (f Filter) Matches(t Talk) bool {
	if f.Day != "" && t.Day != f.Day {
		return false
	}
	if f.Track != "" && t.Track != f.Track {
		return false
	}
	if f.Type != "" && string(t.Type) != f.Type {
		return false
	}
	if f.Room != "" && t.Room != f.Room {
		return false
	}
	return true
}
