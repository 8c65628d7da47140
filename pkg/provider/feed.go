package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/confsite/agendacache/pkg/agenda"
)

const defaultTalkMinutes = 30

// Feed ingests the agenda from an RSS/Atom schedule feed with one entry
// per session, the format pretalx-style tooling publishes. Session
// metadata rides on prefixed categories: "track:storage", "room:Room 1",
// "type:workshop", "duration:45". Entries missing a duration default to a
// 30 minute slot.
type Feed struct {
	client *http.Client
	parser *gofeed.Parser
	url    string
}

// NewFeed creates a schedule-feed provider for url.
func NewFeed(url string, client *http.Client) *Feed {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Feed{client: client, parser: gofeed.NewParser(), url: url}
}

func (f *Feed) Name() Kind { return KindFeed }

func (f *Feed) Fetch(ctx context.Context, version string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("User-Agent", "agendacache/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch schedule feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("schedule feed status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read schedule feed: %w", err)
	}

	fp := Fingerprint(payload)
	if version != "" && fp == version {
		return nil, ErrNotModified
	}

	parsed, err := f.parser.ParseString(string(payload))
	if err != nil {
		return nil, fmt.Errorf("parse schedule feed: %w", err)
	}

	var talks []agenda.RawTalk
	for _, entry := range parsed.Items {
		if entry.PublishedParsed == nil {
			continue
		}
		start := entry.PublishedParsed.UTC()

		raw := agenda.RawTalk{
			Speaker:         entrySpeakers(entry),
			Talk:            entry.Title,
			Description:     entry.Description,
			TimeRaw:         start.Format("Monday 15:04"),
			TimeISO:         start.Format(time.RFC3339),
			DurationMinutes: defaultTalkMinutes,
			Type:            string(agenda.TypeTalk),
		}

		for _, cat := range entry.Categories {
			key, value, ok := strings.Cut(cat, ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "track":
				raw.Track = value
			case "room":
				raw.Room = value
			case "type":
				raw.Type = value
			case "duration":
				if minutes, err := strconv.Atoi(value); err == nil && minutes > 0 {
					raw.DurationMinutes = minutes
				}
			}
		}
		raw.DurationHuman = fmt.Sprintf("%d min", raw.DurationMinutes)

		talks = append(talks, raw)
	}

	return &Snapshot{Talks: talks, Version: fp}, nil
}

func entrySpeakers(entry *gofeed.Item) string {
	var names []string
	for _, a := range entry.Authors {
		if a != nil && a.Name != "" {
			names = append(names, a.Name)
		}
	}
	if len(names) == 0 && entry.Author != nil {
		names = append(names, entry.Author.Name)
	}
	return strings.Join(names, ", ")
}
