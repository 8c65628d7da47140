package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/confsite/agendacache/pkg/agenda"
)

// MemoryStore is a Store kept entirely in process memory. It backs the
// degraded mode used when SQLite cannot be opened (quota, read-only
// filesystem) so a session still works, just without persistence.
type MemoryStore struct {
	mu sync.RWMutex

	talks     map[string]agenda.Talk
	speakers  map[string]agenda.Speaker
	relations map[agenda.TalkSpeaker]bool
	favorites map[string]agenda.Favorite
	notifs    map[string]agenda.Notification
	meta      map[string]string
	nextFavID int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	m := &MemoryStore{}
	m.reset()
	return m
}

func (m *MemoryStore) reset() {
	m.talks = make(map[string]agenda.Talk)
	m.speakers = make(map[string]agenda.Speaker)
	m.relations = make(map[agenda.TalkSpeaker]bool)
	m.favorites = make(map[string]agenda.Favorite)
	m.notifs = make(map[string]agenda.Notification)
	m.meta = make(map[string]string)
	m.nextFavID = 0
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) ReplaceAgenda(_ context.Context, ds *agenda.Dataset, version string, syncedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.talks = make(map[string]agenda.Talk, len(ds.Talks))
	for _, t := range ds.Talks {
		m.talks[t.ID] = t
	}
	m.speakers = make(map[string]agenda.Speaker, len(ds.Speakers))
	for _, sp := range ds.Speakers {
		m.speakers[sp.ID] = sp
	}
	m.relations = make(map[agenda.TalkSpeaker]bool, len(ds.Relations))
	for _, rel := range ds.Relations {
		m.relations[rel] = true
	}
	m.meta[MetaSourceVersion] = version
	m.meta[MetaLastSyncAt] = syncedAt.UTC().Format(time.RFC3339)
	return nil
}

func (m *MemoryStore) ListTalks(_ context.Context, f agenda.Filter) ([]agenda.Talk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var talks []agenda.Talk
	for _, t := range m.talks {
		if f.Matches(t) {
			talks = append(talks, t)
		}
	}
	sortTalks(talks)
	return talks, nil
}

func (m *MemoryStore) GetTalkByID(_ context.Context, id string) (*agenda.Talk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.talks[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (m *MemoryStore) GetTalkBySlug(_ context.Context, slug string) (*agenda.Talk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.talks {
		if t.Slug == slug {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) CountTalks(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.talks), nil
}

func (m *MemoryStore) ListSpeakers(_ context.Context, name string) ([]agenda.Speaker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(name)
	var speakers []agenda.Speaker
	for _, sp := range m.speakers {
		if needle == "" || strings.Contains(strings.ToLower(sp.Name), needle) {
			speakers = append(speakers, sp)
		}
	}
	sortSpeakers(speakers)
	return speakers, nil
}

func (m *MemoryStore) GetSpeakerByID(_ context.Context, id string) (*agenda.Speaker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sp, ok := m.speakers[id]; ok {
		return &sp, nil
	}
	return nil, nil
}

func (m *MemoryStore) GetSpeakerBySlug(_ context.Context, slug string) (*agenda.Speaker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sp := range m.speakers {
		if sp.Slug == slug {
			sp := sp
			return &sp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListTalksBySpeaker(_ context.Context, speakerID string) ([]agenda.Talk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var talks []agenda.Talk
	for rel := range m.relations {
		if rel.SpeakerID == speakerID {
			if t, ok := m.talks[rel.TalkID]; ok {
				talks = append(talks, t)
			}
		}
	}
	sortTalks(talks)
	return talks, nil
}

func (m *MemoryStore) ListSpeakersForTalk(_ context.Context, talkID string) ([]agenda.Speaker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var speakers []agenda.Speaker
	for rel := range m.relations {
		if rel.TalkID == talkID {
			if sp, ok := m.speakers[rel.SpeakerID]; ok {
				speakers = append(speakers, sp)
			}
		}
	}
	sortSpeakers(speakers)
	return speakers, nil
}

func (m *MemoryStore) AddFavorite(_ context.Context, talkID string, addedAt time.Time) (*agenda.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fav, ok := m.favorites[talkID]; ok {
		return &fav, nil
	}
	m.nextFavID++
	fav := agenda.Favorite{ID: m.nextFavID, TalkID: talkID, AddedAt: addedAt.UTC()}
	m.favorites[talkID] = fav
	return &fav, nil
}

func (m *MemoryStore) RemoveFavorite(_ context.Context, talkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.favorites, talkID)
	return nil
}

func (m *MemoryStore) ListFavorites(_ context.Context) ([]agenda.Favorite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	favs := make([]agenda.Favorite, 0, len(m.favorites))
	for _, fav := range m.favorites {
		favs = append(favs, fav)
	}
	sort.Slice(favs, func(i, j int) bool { return favs[i].ID < favs[j].ID })
	return favs, nil
}

func (m *MemoryStore) PutNotification(_ context.Context, talkID string, notifyAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifs[talkID] = agenda.Notification{TalkID: talkID, NotifyAt: notifyAt.UTC()}
	return nil
}

func (m *MemoryStore) DueNotifications(_ context.Context, now time.Time) ([]agenda.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []agenda.Notification
	for _, n := range m.notifs {
		if !n.NotifyAt.After(now.UTC()) {
			due = append(due, n)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NotifyAt.Before(due[j].NotifyAt) })
	return due, nil
}

func (m *MemoryStore) DeleteNotification(_ context.Context, talkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notifs, talkID)
	return nil
}

func (m *MemoryStore) GetMeta(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meta[key], nil
}

func (m *MemoryStore) SetMeta(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[key] = value
	return nil
}

func (m *MemoryStore) ClearAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return nil
}

func sortTalks(talks []agenda.Talk) {
	sort.Slice(talks, func(i, j int) bool { return talks[i].TimeISO.Before(talks[j].TimeISO) })
}

func sortSpeakers(speakers []agenda.Speaker) {
	sort.Slice(speakers, func(i, j int) bool {
		return strings.ToLower(speakers[i].Name) < strings.ToLower(speakers[j].Name)
	})
}
