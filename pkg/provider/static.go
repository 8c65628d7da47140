package provider

import (
	"context"
	"encoding/json"
	"fmt"

	_ "embed"

	"github.com/confsite/agendacache/pkg/agenda"
)

//go:embed data/talks.json
var bundledTalks []byte

// Static serves the agenda dataset bundled into the binary. It is the
// default provider: the site works offline out of the box and the remote
// source can take over with a config switch.
type Static struct {
	data []byte
}

// NewStatic returns the bundled-dataset provider.
func NewStatic() *Static {
	return &Static{data: bundledTalks}
}

func (s *Static) Name() Kind { return KindStatic }

func (s *Static) Fetch(_ context.Context, version string) (*Snapshot, error) {
	fp := Fingerprint(s.data)
	if version != "" && version == fp {
		return nil, ErrNotModified
	}

	var talks []agenda.RawTalk
	if err := json.Unmarshal(s.data, &talks); err != nil {
		return nil, fmt.Errorf("parse bundled dataset: %w", err)
	}
	return &Snapshot{Talks: talks, Version: fp}, nil
}
