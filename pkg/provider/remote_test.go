package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const agendaJSON = `[{
	"speaker": "Ana Gómez",
	"talk": "Generics in Anger",
	"timeISO": "2025-11-21T10:00:00Z",
	"durationMinutes": 45,
	"room": "Room 1",
	"type": "talk",
	"track": "language"
}]`

func TestRemoteFetch(t *testing.T) {
	var gotIfNoneMatch string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/agenda", r.URL.Path)
		gotIfNoneMatch = r.Header.Get("If-None-Match")
		if gotIfNoneMatch == `"v7"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v7"`)
		w.Write([]byte(agendaJSON))
	}))
	defer srv.Close()

	p := NewRemote(srv.URL, srv.Client())
	require.Equal(t, KindRemote, p.Name())

	snap, err := p.Fetch(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, gotIfNoneMatch)
	require.Equal(t, `"v7"`, snap.Version)
	require.Len(t, snap.Talks, 1)
	require.Equal(t, "Generics in Anger", snap.Talks[0].Talk)

	_, err = p.Fetch(context.Background(), snap.Version)
	require.ErrorIs(t, err, ErrNotModified)
	require.Equal(t, `"v7"`, gotIfNoneMatch)
}

func TestRemoteUnchangedETagWithoutConditionalSupport(t *testing.T) {
	// A source that ignores If-None-Match but sends a stable ETag still
	// short-circuits the overwrite.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"stable"`)
		w.Write([]byte(agendaJSON))
	}))
	defer srv.Close()

	p := NewRemote(srv.URL, srv.Client())
	_, err := p.Fetch(context.Background(), `"stable"`)
	require.ErrorIs(t, err, ErrNotModified)
}

func TestRemoteFallsBackToPayloadHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(agendaJSON))
	}))
	defer srv.Close()

	p := NewRemote(srv.URL, srv.Client())
	snap, err := p.Fetch(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, Fingerprint([]byte(agendaJSON)), snap.Version)

	_, err = p.Fetch(context.Background(), snap.Version)
	require.ErrorIs(t, err, ErrNotModified)
}

func TestRemoteErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed payload", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewRemote(srv.URL, srv.Client())
			_, err := p.Fetch(context.Background(), "")
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrNotModified)
		})
	}
}
