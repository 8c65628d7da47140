package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/confsite/agendacache/pkg/agenda"
)

// ErrStorageUnavailable marks a store that cannot be opened or written.
// Callers degrade to memory-only operation instead of failing outright.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Sync metadata keys.
const (
	MetaLastSyncAt    = "last_sync_at"
	MetaSourceVersion = "source_version"
)

// Store is the persistence interface for the agenda cache.
type Store interface {
	// ReplaceAgenda overwrites the talks, speakers and relation tables with
	// one ingested dataset and records the source version and sync time.
	// The whole replacement is a single transaction: readers see either the
	// old dataset or the new one, never a mix.
	ReplaceAgenda(ctx context.Context, ds *agenda.Dataset, version string, syncedAt time.Time) error

	ListTalks(ctx context.Context, f agenda.Filter) ([]agenda.Talk, error)
	GetTalkByID(ctx context.Context, id string) (*agenda.Talk, error)
	GetTalkBySlug(ctx context.Context, slug string) (*agenda.Talk, error)
	CountTalks(ctx context.Context) (int, error)

	ListSpeakers(ctx context.Context, name string) ([]agenda.Speaker, error)
	GetSpeakerByID(ctx context.Context, id string) (*agenda.Speaker, error)
	GetSpeakerBySlug(ctx context.Context, slug string) (*agenda.Speaker, error)
	ListTalksBySpeaker(ctx context.Context, speakerID string) ([]agenda.Talk, error)
	ListSpeakersForTalk(ctx context.Context, talkID string) ([]agenda.Speaker, error)

	AddFavorite(ctx context.Context, talkID string, addedAt time.Time) (*agenda.Favorite, error)
	RemoveFavorite(ctx context.Context, talkID string) error
	ListFavorites(ctx context.Context) ([]agenda.Favorite, error)

	PutNotification(ctx context.Context, talkID string, notifyAt time.Time) error
	DueNotifications(ctx context.Context, now time.Time) ([]agenda.Notification, error)
	DeleteNotification(ctx context.Context, talkID string) error

	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error

	ClearAll(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens the SQLite database at path and runs migrations. Failures are
// wrapped as ErrStorageUnavailable.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite %s: %v", ErrStorageUnavailable, path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping sqlite %s: %v", ErrStorageUnavailable, path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: run migrations: %v", ErrStorageUnavailable, err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceAgenda(ctx context.Context, ds *agenda.Dataset, version string, syncedAt time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace agenda: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM talk_speakers", "DELETE FROM talks", "DELETE FROM speakers"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear agenda tables: %w", err)
		}
	}

	for i := range ds.Talks {
		t := &ds.Talks[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO talks (id, slug, day, track, room, start_time, end_time, speaker, title, description, time_iso, duration_minutes, type)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, t.ID, t.Slug, t.Day, t.Track, t.Room, t.StartTime, t.EndTime,
			t.Speaker, t.Title, t.Description, t.TimeISO, t.DurationMinutes, t.Type)
		if err != nil {
			return fmt.Errorf("insert talk %s: %w", t.ID, err)
		}
	}

	for _, sp := range ds.Speakers {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO speakers (id, slug, name) VALUES (?, ?, ?)",
			sp.ID, sp.Slug, sp.Name); err != nil {
			return fmt.Errorf("insert speaker %s: %w", sp.ID, err)
		}
	}

	for _, rel := range ds.Relations {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO talk_speakers (talk_id, speaker_id) VALUES (?, ?)",
			rel.TalkID, rel.SpeakerID); err != nil {
			return fmt.Errorf("insert relation %s/%s: %w", rel.TalkID, rel.SpeakerID, err)
		}
	}

	for key, value := range map[string]string{
		MetaSourceVersion: version,
		MetaLastSyncAt:    syncedAt.UTC().Format(time.RFC3339),
	} {
		if err := upsertMeta(ctx, tx, key, value); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace agenda: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListTalks(ctx context.Context, f agenda.Filter) ([]agenda.Talk, error) {
	query := "SELECT * FROM talks WHERE 1=1"
	var args []any

	if f.Day != "" {
		query += " AND day = ?"
		args = append(args, f.Day)
	}
	if f.Track != "" {
		query += " AND track = ?"
		args = append(args, f.Track)
	}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, f.Type)
	}
	if f.Room != "" {
		query += " AND room = ?"
		args = append(args, f.Room)
	}

	query += " ORDER BY time_iso ASC"

	var talks []agenda.Talk
	if err := s.db.SelectContext(ctx, &talks, query, args...); err != nil {
		return nil, fmt.Errorf("list talks: %w", err)
	}
	return talks, nil
}

func (s *SQLiteStore) GetTalkByID(ctx context.Context, id string) (*agenda.Talk, error) {
	return s.getTalk(ctx, "SELECT * FROM talks WHERE id = ?", id)
}

func (s *SQLiteStore) GetTalkBySlug(ctx context.Context, slug string) (*agenda.Talk, error) {
	return s.getTalk(ctx, "SELECT * FROM talks WHERE slug = ?", slug)
}

func (s *SQLiteStore) getTalk(ctx context.Context, query, arg string) (*agenda.Talk, error) {
	var t agenda.Talk
	err := s.db.GetContext(ctx, &t, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get talk %s: %w", arg, err)
	}
	return &t, nil
}

func (s *SQLiteStore) CountTalks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM talks"); err != nil {
		return 0, fmt.Errorf("count talks: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) ListSpeakers(ctx context.Context, name string) ([]agenda.Speaker, error) {
	query := "SELECT * FROM speakers"
	var args []any
	if name != "" {
		query += " WHERE name LIKE ?"
		args = append(args, "%"+name+"%")
	}
	query += " ORDER BY name COLLATE NOCASE ASC"

	var speakers []agenda.Speaker
	if err := s.db.SelectContext(ctx, &speakers, query, args...); err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	return speakers, nil
}

func (s *SQLiteStore) GetSpeakerByID(ctx context.Context, id string) (*agenda.Speaker, error) {
	return s.getSpeaker(ctx, "SELECT * FROM speakers WHERE id = ?", id)
}

func (s *SQLiteStore) GetSpeakerBySlug(ctx context.Context, slug string) (*agenda.Speaker, error) {
	return s.getSpeaker(ctx, "SELECT * FROM speakers WHERE slug = ?", slug)
}

func (s *SQLiteStore) getSpeaker(ctx context.Context, query, arg string) (*agenda.Speaker, error) {
	var sp agenda.Speaker
	err := s.db.GetContext(ctx, &sp, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get speaker %s: %w", arg, err)
	}
	return &sp, nil
}

func (s *SQLiteStore) ListTalksBySpeaker(ctx context.Context, speakerID string) ([]agenda.Talk, error) {
	var talks []agenda.Talk
	err := s.db.SelectContext(ctx, &talks, `
		SELECT t.* FROM talks t
		JOIN talk_speakers ts ON ts.talk_id = t.id
		WHERE ts.speaker_id = ?
		ORDER BY t.time_iso ASC
	`, speakerID)
	if err != nil {
		return nil, fmt.Errorf("list talks by speaker %s: %w", speakerID, err)
	}
	return talks, nil
}

func (s *SQLiteStore) ListSpeakersForTalk(ctx context.Context, talkID string) ([]agenda.Speaker, error) {
	var speakers []agenda.Speaker
	err := s.db.SelectContext(ctx, &speakers, `
		SELECT sp.* FROM speakers sp
		JOIN talk_speakers ts ON ts.speaker_id = sp.id
		WHERE ts.talk_id = ?
		ORDER BY sp.name COLLATE NOCASE ASC
	`, talkID)
	if err != nil {
		return nil, fmt.Errorf("list speakers for talk %s: %w", talkID, err)
	}
	return speakers, nil
}

// AddFavorite bookmarks a talk. Adding an already-favorited talk is a
// no-op that returns the existing row.
func (s *SQLiteStore) AddFavorite(ctx context.Context, talkID string, addedAt time.Time) (*agenda.Favorite, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (talk_id, added_at) VALUES (?, ?)
		ON CONFLICT(talk_id) DO NOTHING
	`, talkID, addedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("add favorite %s: %w", talkID, err)
	}

	var fav agenda.Favorite
	if err := s.db.GetContext(ctx, &fav, "SELECT * FROM favorites WHERE talk_id = ?", talkID); err != nil {
		return nil, fmt.Errorf("get favorite %s: %w", talkID, err)
	}
	return &fav, nil
}

func (s *SQLiteStore) RemoveFavorite(ctx context.Context, talkID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM favorites WHERE talk_id = ?", talkID); err != nil {
		return fmt.Errorf("remove favorite %s: %w", talkID, err)
	}
	return nil
}

func (s *SQLiteStore) ListFavorites(ctx context.Context) ([]agenda.Favorite, error) {
	var favs []agenda.Favorite
	if err := s.db.SelectContext(ctx, &favs, "SELECT * FROM favorites ORDER BY added_at ASC"); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return favs, nil
}

// PutNotification upserts the single pending reminder for a talk.
func (s *SQLiteStore) PutNotification(ctx context.Context, talkID string, notifyAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (talk_id, notify_at) VALUES (?, ?)
		ON CONFLICT(talk_id) DO UPDATE SET notify_at = excluded.notify_at
	`, talkID, notifyAt.UTC())
	if err != nil {
		return fmt.Errorf("put notification %s: %w", talkID, err)
	}
	return nil
}

func (s *SQLiteStore) DueNotifications(ctx context.Context, now time.Time) ([]agenda.Notification, error) {
	var due []agenda.Notification
	err := s.db.SelectContext(ctx, &due,
		"SELECT * FROM notifications WHERE notify_at <= ? ORDER BY notify_at ASC", now.UTC())
	if err != nil {
		return nil, fmt.Errorf("due notifications: %w", err)
	}
	return due, nil
}

func (s *SQLiteStore) DeleteNotification(ctx context.Context, talkID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE talk_id = ?", talkID); err != nil {
		return fmt.Errorf("delete notification %s: %w", talkID, err)
	}
	return nil
}

func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM sync_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	return upsertMeta(ctx, s.db, key, value)
}

func upsertMeta(ctx context.Context, e sqlx.ExecerContext, key, value string) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// ClearAll empties every table in one transaction, leaving the schema
// intact and ready for repopulation.
func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear all: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"talk_speakers", "talks", "speakers", "favorites", "notifications", "sync_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear all: %w", err)
	}
	return nil
}
