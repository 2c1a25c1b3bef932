package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"votewallet/internal/logging"
	"votewallet/internal/retry"
	"votewallet/internal/types"
)

// Updater is the store surface the engine persists winners through.
type Updater interface {
	UpdateBusiness(b *types.Business) error
}

// EngineStats counts one image sourcing run.
type EngineStats struct {
	Processed  int `json:"processed"`
	Found      int `json:"found"`
	Downloaded int `json:"downloaded"`
	Failed     int `json:"failed"`
}

// SuccessRate returns the fraction of processed businesses that ended with
// a validated image.
func (s EngineStats) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Downloaded) / float64(s.Processed)
}

// Engine walks businesses through the provider chain, validates the
// winning candidate by downloading it, and persists the result.
type Engine struct {
	providers   []Provider
	store       Updater
	http        *http.Client
	minByteSize int64
	retryCfg    retry.Config
}

// NewEngine builds an engine over an ordered provider chain.
func NewEngine(providers []Provider, store Updater, timeout time.Duration, minByteSize int64) *Engine {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if minByteSize <= 0 {
		minByteSize = 1024
	}
	return &Engine{
		providers:   providers,
		store:       store,
		http:        &http.Client{Timeout: timeout},
		minByteSize: minByteSize,
		retryCfg:    retry.DefaultConfig(),
	}
}

// Run sources images for every business in the slice and returns run
// statistics. Individual failures mark the business for retry on the next
// run instead of aborting the batch.
func (e *Engine) Run(ctx context.Context, businesses []*types.Business) (EngineStats, error) {
	var stats EngineStats
	timer := logging.StartTimer(logging.CategoryPerformance, "image backfill")
	defer timer.StopWithInfo()

	for _, b := range businesses {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Processed++

		candidate, err := e.findBest(ctx, b)
		if err != nil {
			logging.ImagesWarn("image search failed for %q: %v", b.Name, err)
			e.markRetry(b)
			stats.Failed++
			continue
		}
		if candidate == nil {
			e.markRetry(b)
			stats.Failed++
			continue
		}
		stats.Found++

		if err := e.validateDownload(ctx, candidate); err != nil {
			logging.ImagesDebug("candidate %s for %q failed validation: %v", candidate.URL, b.Name, err)
			e.markRetry(b)
			stats.Failed++
			continue
		}
		stats.Downloaded++

		b.LogoURL = candidate.URL
		if b.Attributes.GetBool(types.AttrImageRetry) {
			b.Attributes = b.Attributes.SetBool(types.AttrImageRetry, false)
		}
		if err := e.store.UpdateBusiness(b); err != nil {
			return stats, fmt.Errorf("persist image for %s: %w", b.ID, err)
		}
	}

	logging.Images("image run: %d processed, %d found, %d downloaded, %.0f%% success",
		stats.Processed, stats.Found, stats.Downloaded, stats.SuccessRate()*100)
	return stats, nil
}

// findBest collects candidates across the chain and picks the winner. The
// chain stops early once a provider yields a high-confidence candidate,
// so the expensive tail providers only run for hard cases.
func (e *Engine) findBest(ctx context.Context, b *types.Business) (*types.ImageCandidate, error) {
	var all []types.ImageCandidate

	for _, provider := range e.providers {
		candidates, err := retry.Do(ctx, e.retryCfg, provider.Name(),
			func(ctx context.Context) ([]types.ImageCandidate, error) {
				return provider.Find(ctx, b)
			})
		if err != nil {
			logging.ImagesDebug("provider %s failed for %q: %v", provider.Name(), b.Name, err)
			continue
		}
		all = append(all, candidates...)

		if best := SelectBest(all); best != nil && best.Confidence >= 0.8 {
			return best, nil
		}
	}
	return SelectBest(all), nil
}

// validateDownload fetches the candidate and checks it is a real image of
// a plausible size. SVG dimensions are declared, not intrinsic, so only
// the byte size check applies to them.
func (e *Engine) validateDownload(ctx context.Context, c *types.ImageCandidate) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.http.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: status %d", resp.StatusCode)
	}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(ct, "image") {
		return fmt.Errorf("content type %q is not an image", ct)
	}

	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return fmt.Errorf("read image body: %w", err)
	}
	if n < e.minByteSize {
		return fmt.Errorf("image is %d bytes, below minimum %d", n, e.minByteSize)
	}

	c.ByteSize = n
	return nil
}

func (e *Engine) markRetry(b *types.Business) {
	b.Attributes = b.Attributes.SetBool(types.AttrImageRetry, true)
	if err := e.store.UpdateBusiness(b); err != nil {
		logging.ImagesWarn("could not mark %s for image retry: %v", b.ID, err)
	}
}
