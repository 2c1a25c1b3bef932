// Package images sources logos and photos for businesses. Providers are
// tried in a fixed chain; every candidate they return competes in a single
// selection pass and only the winner lands on the business record.
package images

import (
	"context"
	"sort"

	"votewallet/internal/types"
)

// Provider finds image candidates for one business. Providers return an
// empty slice when they have nothing; errors are reserved for transport
// failures.
type Provider interface {
	Name() string
	Find(ctx context.Context, b *types.Business) ([]types.ImageCandidate, error)
}

// formatRank orders formats for selection: PNG beats SVG beats JPEG beats
// everything else.
func formatRank(f types.ImageFormat) int {
	switch f {
	case types.FormatPNG:
		return 3
	case types.FormatSVG:
		return 2
	case types.FormatJPEG:
		return 1
	}
	return 0
}

// SelectBest ranks candidates by confidence, then pixel area, then format
// preference, and returns the winner. An empty slice returns nil.
func SelectBest(candidates []types.ImageCandidate) *types.ImageCandidate {
	if len(candidates) == 0 {
		return nil
	}

	ranked := make([]types.ImageCandidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		if ranked[i].PixelArea() != ranked[j].PixelArea() {
			return ranked[i].PixelArea() > ranked[j].PixelArea()
		}
		return formatRank(ranked[i].Format) > formatRank(ranked[j].Format)
	})

	winner := ranked[0]
	return &winner
}
