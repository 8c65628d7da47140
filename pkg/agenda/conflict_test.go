package agenda

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func talkAt(id, room string, start time.Time, minutes int) Talk {
	return Talk{ID: id, Room: room, TimeISO: start, DurationMinutes: minutes}
}

func TestDetectConflicts(t *testing.T) {
	base := time.Date(2025, 11, 21, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		talks []Talk
		want  []string
	}{
		{
			name: "overlap across rooms",
			talks: []Talk{
				talkAt("a", "Room 1", base, 60),
				talkAt("b", "Room 2", base.Add(30*time.Minute), 60),
			},
			want: []string{"a", "b"},
		},
		{
			name: "same room never conflicts",
			talks: []Talk{
				talkAt("a", "Room 1", base, 60),
				talkAt("b", "Room 1", base.Add(30*time.Minute), 60),
			},
			want: []string{},
		},
		{
			name: "back to back",
			talks: []Talk{
				talkAt("a", "Room 1", base, 60),
				talkAt("b", "Room 2", base.Add(60*time.Minute), 60),
			},
			want: []string{},
		},
		{
			name: "three way",
			talks: []Talk{
				talkAt("a", "Room 1", base, 60),
				talkAt("b", "Room 2", base.Add(15*time.Minute), 60),
				talkAt("c", "Room 3", base.Add(30*time.Minute), 60),
				talkAt("d", "Room 1", base.Add(3*time.Hour), 30),
			},
			want: []string{"a", "b", "c"},
		},
		{
			name:  "empty",
			talks: nil,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DetectConflicts(tt.talks))
		})
	}
}

func TestConflictPairs(t *testing.T) {
	base := time.Date(2025, 11, 21, 10, 0, 0, 0, time.UTC)
	pairs := ConflictPairs([]Talk{
		talkAt("a", "Room 1", base, 60),
		talkAt("b", "Room 2", base.Add(30*time.Minute), 60),
		talkAt("c", "Room 1", base.Add(2*time.Hour), 30),
	})
	require.Equal(t, []Conflict{{TalkA: "a", TalkB: "b"}}, pairs)
}
