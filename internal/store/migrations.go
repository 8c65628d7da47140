package store

const schema = `
CREATE TABLE IF NOT EXISTS talks (
    id               TEXT PRIMARY KEY,
    slug             TEXT NOT NULL,
    day              TEXT NOT NULL,
    track            TEXT NOT NULL DEFAULT '',
    room             TEXT NOT NULL DEFAULT '',
    start_time       TEXT NOT NULL,
    end_time         TEXT NOT NULL,
    speaker          TEXT NOT NULL,
    title            TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    time_iso         DATETIME NOT NULL,
    duration_minutes INTEGER NOT NULL,
    type             TEXT NOT NULL DEFAULT 'talk'
);

CREATE INDEX IF NOT EXISTS idx_talks_slug ON talks(slug);
CREATE INDEX IF NOT EXISTS idx_talks_day ON talks(day);
CREATE INDEX IF NOT EXISTS idx_talks_track ON talks(track);
CREATE INDEX IF NOT EXISTS idx_talks_room ON talks(room);
CREATE INDEX IF NOT EXISTS idx_talks_type ON talks(type);
CREATE INDEX IF NOT EXISTS idx_talks_time ON talks(time_iso);

CREATE TABLE IF NOT EXISTS speakers (
    id   TEXT PRIMARY KEY,
    slug TEXT NOT NULL,
    name TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_speakers_slug ON speakers(slug);
CREATE INDEX IF NOT EXISTS idx_speakers_name ON speakers(name);

CREATE TABLE IF NOT EXISTS talk_speakers (
    talk_id    TEXT NOT NULL,
    speaker_id TEXT NOT NULL,
    PRIMARY KEY (talk_id, speaker_id)
);

CREATE INDEX IF NOT EXISTS idx_talk_speakers_speaker ON talk_speakers(speaker_id);

CREATE TABLE IF NOT EXISTS favorites (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    talk_id  TEXT NOT NULL UNIQUE,
    added_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
    talk_id   TEXT PRIMARY KEY,
    notify_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_at ON notifications(notify_at);

CREATE TABLE IF NOT EXISTS sync_meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
