// Package sources hosts the data source adapters that feed the sync
// pipeline. Each adapter normalizes a third-party API's records into
// candidates; the registry fans a query out across every enabled adapter.
package sources

import (
	"context"

	"votewallet/internal/types"
)

// Adapter fetches business candidates from one external source.
//
// Search returns zero or more normalized candidates for a free-text query
// scoped to a region. Adapters must respect ctx cancellation and surface
// transport failures wrapped in types.ErrSourceUnavailable or
// types.ErrRateLimited so the pipeline can classify them.
type Adapter interface {
	Name() string
	Search(ctx context.Context, query, region string) ([]types.Candidate, error)
}
