package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticFetch(t *testing.T) {
	p := NewStatic()
	require.Equal(t, KindStatic, p.Name())

	snap, err := p.Fetch(context.Background(), "")
	require.NoError(t, err)
	require.NotEmpty(t, snap.Talks)
	require.NotEmpty(t, snap.Version)

	for _, raw := range snap.Talks {
		require.NotEmpty(t, raw.Talk)
		require.NotEmpty(t, raw.Speaker)
		require.NotEmpty(t, raw.TimeISO)
		require.Positive(t, raw.DurationMinutes)
	}
}

func TestStaticNotModified(t *testing.T) {
	p := NewStatic()

	snap, err := p.Fetch(context.Background(), "")
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), snap.Version)
	require.ErrorIs(t, err, ErrNotModified)

	changed, err := p.Fetch(context.Background(), "some-old-version")
	require.NoError(t, err)
	require.Equal(t, snap.Version, changed.Version)
}
