package agenda

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Go Concurrency Patterns", "go-concurrency-patterns"},
		{"accents", "Señales y Canales en Go", "senales-y-canales-en-go"},
		{"punctuation", "What's New in Go 1.25?", "what-s-new-in-go-1-25"},
		{"collapses runs", "a  --  b", "a-b"},
		{"trims edges", "  ¡Hola!  ", "hola"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	titles := []string{
		"Go Concurrency Patterns",
		"Déjà Vu: Caching All Over Again",
		"100% Coverage & Other Lies",
	}
	for _, title := range titles {
		slug := Slugify(title)
		require.Equal(t, slug, Slugify(slug), "slugifying a slug must be a fixed point")
	}
}
