package images

import (
	"context"
	"fmt"
	"net/url"

	"votewallet/internal/types"
)

const placeholderName = "placeholder"

// PlaceholderProvider always succeeds with a generated initial-letter
// avatar. It terminates the chain so every business ends a run with some
// image.
type PlaceholderProvider struct {
	baseURL string
}

func NewPlaceholderProvider(baseURL string) *PlaceholderProvider {
	if baseURL == "" {
		baseURL = "https://ui-avatars.example/api"
	}
	return &PlaceholderProvider{baseURL: baseURL}
}

func (p *PlaceholderProvider) Name() string { return placeholderName }

func (p *PlaceholderProvider) Find(ctx context.Context, b *types.Business) ([]types.ImageCandidate, error) {
	params := url.Values{
		"name": {b.Name},
		"size": {"256"},
	}
	return []types.ImageCandidate{{
		URL:        fmt.Sprintf("%s?%s", p.baseURL, params.Encode()),
		Width:      256,
		Height:     256,
		Format:     types.FormatPNG,
		Source:     placeholderName,
		Confidence: 0.1,
	}}, nil
}
