package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/confsite/agendacache/pkg/agenda"
)

// Remote fetches the agenda from the conference HTTP API. It revalidates
// conditionally: the stored version is sent as If-None-Match, and a 304
// response (or an unchanged ETag) maps to ErrNotModified.
type Remote struct {
	client  *http.Client
	baseURL string
}

// NewRemote creates a remote agenda provider for baseURL, e.g.
// "https://api.example.dev". The agenda is read from {baseURL}/agenda.
func NewRemote(baseURL string, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Remote{client: client, baseURL: baseURL}
}

func (r *Remote) Name() Kind { return KindRemote }

func (r *Remote) Fetch(ctx context.Context, version string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/agenda", nil)
	if err != nil {
		return nil, fmt.Errorf("create agenda request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if version != "" {
		req.Header.Set("If-None-Match", version)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch agenda: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, ErrNotModified
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agenda endpoint status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read agenda body: %w", err)
	}

	fp := resp.Header.Get("ETag")
	if fp == "" {
		fp = Fingerprint(payload)
	}
	if version != "" && fp == version {
		return nil, ErrNotModified
	}

	var talks []agenda.RawTalk
	if err := json.Unmarshal(payload, &talks); err != nil {
		return nil, fmt.Errorf("decode agenda payload: %w", err)
	}
	return &Snapshot{Talks: talks, Version: fp}, nil
}
