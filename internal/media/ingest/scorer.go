package ingest

import (
	"context"

	"github.com/yungbote/mediahub-backend/internal/media/fingerprint"
)

type Score struct {
	Value float64
	Color string
}

// Scorer rates an asset and picks its dominant colour.
type Scorer interface {
	Score(ctx context.Context, d *fingerprint.Decoded) (Score, error)
}

// PlaceholderScorer returns a neutral score until a quality model is wired in.
type PlaceholderScorer struct{}

func (PlaceholderScorer) Score(context.Context, *fingerprint.Decoded) (Score, error) {
	return Score{Value: 0.5, Color: "#FFFFFF"}, nil
}
