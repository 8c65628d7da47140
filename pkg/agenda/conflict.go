package agenda

import "sort"

// Conflict pairs two favorited talks whose time windows overlap in
// different rooms. Same-room sessions run back to back and cannot clash.
type Conflict struct {
	TalkA string `json:"talk_a"`
	TalkB string `json:"talk_b"`
}

// DetectConflicts compares every pair of talks and returns the ids involved
// in at least one overlap, sorted. Intervals are half-open
// [start, start+duration), so a talk ending exactly when another starts
// does not conflict. Quadratic, which is fine for a favorites-sized set.
func DetectConflicts(talks []Talk) []string {
	conflicted := make(map[string]bool)
	for i := 0; i < len(talks); i++ {
		for j := i + 1; j < len(talks); j++ {
			if Overlaps(talks[i], talks[j]) {
				conflicted[talks[i].ID] = true
				conflicted[talks[j].ID] = true
			}
		}
	}

	ids := make([]string, 0, len(conflicted))
	for id := range conflicted {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ConflictPairs returns each conflicting pair explicitly.
func ConflictPairs(talks []Talk) []Conflict {
	var pairs []Conflict
	for i := 0; i < len(talks); i++ {
		for j := i + 1; j < len(talks); j++ {
			if Overlaps(talks[i], talks[j]) {
				pairs = append(pairs, Conflict{TalkA: talks[i].ID, TalkB: talks[j].ID})
			}
		}
	}
	return pairs
}

// Overlaps reports whether two talks clash: overlapping half-open time
// windows in different rooms.
func Overlaps(a, b Talk) bool {
	if a.Room == b.Room {
		return false
	}
	return a.TimeISO.Before(b.End()) && b.TimeISO.Before(a.End())
}
