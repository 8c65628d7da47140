package agenda

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func rawTalk(title, speaker, iso, room string, minutes int) RawTalk {
	return RawTalk{
		Speaker:         speaker,
		Talk:            title,
		Description:     "about " + title,
		TimeISO:         iso,
		DurationMinutes: minutes,
		Room:            room,
		Type:            "talk",
		Track:           "general",
	}
}

func TestNormalize(t *testing.T) {
	ds, err := Normalize([]RawTalk{
		rawTalk("Profiling Go Services", "Ana Gómez", "2025-11-21T11:00:00Z", "Room 2", 45),
		rawTalk("Generics in Anger", "Bram de Vries", "2025-11-21T10:00:00Z", "Room 1", 45),
	})
	require.NoError(t, err)

	require.Len(t, ds.Talks, 2)
	require.Equal(t, "Generics in Anger", ds.Talks[0].Title, "talks sorted by start time")
	require.Equal(t, "generics-in-anger", ds.Talks[0].Slug)
	require.Equal(t, "2025-11-21", ds.Talks[0].Day)
	require.Equal(t, "10:00", ds.Talks[0].StartTime)
	require.Equal(t, "10:45", ds.Talks[0].EndTime)

	require.Len(t, ds.Speakers, 2)
	require.Equal(t, "Ana Gómez", ds.Speakers[0].Name, "speakers sorted by name")
	require.Len(t, ds.Relations, 2)
}

func TestNormalizeDeduplicatesSpeakers(t *testing.T) {
	ds, err := Normalize([]RawTalk{
		rawTalk("Talk One", "Ana Gómez", "2025-11-21T10:00:00Z", "Room 1", 30),
		rawTalk("Talk Two", "Ana Gómez", "2025-11-21T11:00:00Z", "Room 1", 30),
		rawTalk("Talk Three", "Ana Gómez, Bram de Vries", "2025-11-21T12:00:00Z", "Room 1", 30),
	})
	require.NoError(t, err)

	require.Len(t, ds.Speakers, 2, "same name must collapse to one speaker")
	require.Len(t, ds.Relations, 4)

	ana := SpeakerID("Ana Gómez")
	var anaTalks int
	for _, rel := range ds.Relations {
		if rel.SpeakerID == ana {
			anaTalks++
		}
	}
	require.Equal(t, 3, anaTalks)
}

func TestNormalizeValidation(t *testing.T) {
	base := rawTalk("ok", "someone", "2025-11-21T10:00:00Z", "Room 1", 30)

	tests := []struct {
		name   string
		mutate func(*RawTalk)
		field  string
	}{
		{"empty title", func(r *RawTalk) { r.Talk = "  " }, "talk"},
		{"empty speaker", func(r *RawTalk) { r.Speaker = "" }, "speaker"},
		{"bad time", func(r *RawTalk) { r.TimeISO = "tomorrow-ish" }, "timeISO"},
		{"zero duration", func(r *RawTalk) { r.DurationMinutes = 0 }, "durationMinutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			ds, err := Normalize([]RawTalk{r})
			require.Nil(t, ds)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestTalkIDStable(t *testing.T) {
	start := time.Date(2025, 11, 21, 10, 0, 0, 0, time.UTC)
	id := TalkID("Generics in Anger", start, "Room 1")

	require.Equal(t, id, TalkID("Generics in Anger", start, "Room 1"))
	require.NotEqual(t, id, TalkID("Generics in Anger", start, "Room 2"))
	require.NotEqual(t, id, TalkID("Generics in Anger", start.Add(time.Hour), "Room 1"))
	require.Len(t, id, 12)
}
