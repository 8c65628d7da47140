package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/confsite/agendacache/pkg/agenda"
)

// Kind identifies which backing source an agenda snapshot came from.
type Kind string

const (
	KindStatic Kind = "static"
	KindRemote Kind = "remote"
	KindFeed   Kind = "feed"
)

// ErrNotModified signals that the source content matches the version the
// caller already holds; the cache must be left untouched.
var ErrNotModified = errors.New("source not modified")

// Snapshot is one fetched representation of the agenda source.
type Snapshot struct {
	Talks []agenda.RawTalk
	// Version fingerprints the payload: an ETag when the source supplies
	// one, otherwise a content hash. Stored after ingestion and handed
	// back on the next Fetch for conditional revalidation.
	Version string
}

// Provider is the interface every agenda source implements. Fetch receives
// the version from the previous successful ingestion ("" on first load)
// and returns ErrNotModified when the source has not changed since.
type Provider interface {
	Name() Kind
	Fetch(ctx context.Context, version string) (*Snapshot, error)
}

// Fingerprint hashes a payload into a version token for sources without
// native version signalling.
func Fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:16]
}
