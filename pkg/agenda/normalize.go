package agenda

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ValidationError reports a malformed source record. Ingestion aborts on
// the first one; the previous cache contents stay authoritative.
type ValidationError struct {
	Index int
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid talk record %d: %s: %s", e.Index, e.Field, e.Msg)
}

// Dataset is the normalized output of one ingestion.
type Dataset struct {
	Talks     []Talk
	Speakers  []Speaker
	Relations []TalkSpeaker
}

// TalkID derives a stable, content-based identity for a talk. Title, start
// time and room together identify a session; positional ids would silently
// re-point favorites whenever the source array is reordered.
func TalkID(title string, timeISO time.Time, room string) string {
	sum := sha256.Sum256([]byte(title + "|" + timeISO.UTC().Format(time.RFC3339) + "|" + room))
	return hex.EncodeToString(sum[:])[:12]
}

// SpeakerID derives a speaker identity from the display name.
func SpeakerID(name string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(name))))
	return hex.EncodeToString(sum[:])[:12]
}

// SplitSpeakers splits a comma-joined speaker field into trimmed names.
func SplitSpeakers(field string) []string {
	var names []string
	for _, part := range strings.Split(field, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Normalize validates raw source records and produces the talk, speaker and
// relation rows for one ingestion. Speakers are deduplicated by normalized
// name across the whole dataset; talks keep the comma-joined display field.
func Normalize(raw []RawTalk) (*Dataset, error) {
	ds := &Dataset{}
	seenSpeakers := make(map[string]bool)
	seenTalks := make(map[string]bool)

	for i, r := range raw {
		if strings.TrimSpace(r.Talk) == "" {
			return nil, &ValidationError{Index: i, Field: "talk", Msg: "empty title"}
		}
		if strings.TrimSpace(r.Speaker) == "" {
			return nil, &ValidationError{Index: i, Field: "speaker", Msg: "empty speaker"}
		}
		start, err := time.Parse(time.RFC3339, r.TimeISO)
		if err != nil {
			return nil, &ValidationError{Index: i, Field: "timeISO", Msg: err.Error()}
		}
		if r.DurationMinutes <= 0 {
			return nil, &ValidationError{Index: i, Field: "durationMinutes", Msg: "must be positive"}
		}

		talk := Talk{
			ID:              TalkID(r.Talk, start, r.Room),
			Slug:            Slugify(r.Talk),
			Day:             start.Format("2006-01-02"),
			Track:           r.Track,
			Room:            r.Room,
			StartTime:       start.Format("15:04"),
			Speaker:         r.Speaker,
			Title:           r.Talk,
			Description:     r.Description,
			TimeISO:         start,
			DurationMinutes: r.DurationMinutes,
			Type:            TalkType(r.Type),
		}
		talk.EndTime = talk.End().Format("15:04")

		if seenTalks[talk.ID] {
			return nil, &ValidationError{Index: i, Field: "talk", Msg: "duplicate session " + talk.ID}
		}
		seenTalks[talk.ID] = true
		ds.Talks = append(ds.Talks, talk)

		for _, name := range SplitSpeakers(r.Speaker) {
			id := SpeakerID(name)
			if !seenSpeakers[id] {
				seenSpeakers[id] = true
				ds.Speakers = append(ds.Speakers, Speaker{ID: id, Slug: Slugify(name), Name: name})
			}
			ds.Relations = append(ds.Relations, TalkSpeaker{TalkID: talk.ID, SpeakerID: id})
		}
	}

	sort.Slice(ds.Talks, func(i, j int) bool { return ds.Talks[i].TimeISO.Before(ds.Talks[j].TimeISO) })
	sort.Slice(ds.Speakers, func(i, j int) bool { return ds.Speakers[i].Name < ds.Speakers[j].Name })
	return ds, nil
}
