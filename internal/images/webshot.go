package images

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"votewallet/internal/logging"
	"votewallet/internal/types"
)

const webshotName = "webshot"

// WebshotProvider screenshots the business's own website as a last-resort
// visual. It launches a headless browser per batch and is disabled by
// default in configuration because of its cost.
type WebshotProvider struct {
	browser *rod.Browser
}

// NewWebshotProvider launches a headless browser. Callers must Close the
// provider to reap the browser process.
func NewWebshotProvider() (*WebshotProvider, error) {
	controlURL, err := launcher.New().Headless(true).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch headless browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	logging.Images("webshot: headless browser ready")
	return &WebshotProvider{browser: browser}, nil
}

func (p *WebshotProvider) Name() string { return webshotName }

// Find captures a viewport screenshot of the business website and stores
// it under a data URL-free synthetic location the download step recognizes
// as pre-fetched.
func (p *WebshotProvider) Find(ctx context.Context, b *types.Business) ([]types.ImageCandidate, error) {
	if b.Website == "" {
		return nil, nil
	}

	page, err := p.browser.Page(proto.TargetCreateTarget{URL: b.Website})
	if err != nil {
		return nil, fmt.Errorf("%s: open %s: %w", webshotName, b.Website, err)
	}
	defer page.Close()

	page = page.Context(ctx)
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%s: load %s: %w", webshotName, b.Website, err)
	}

	shot, err := page.Screenshot(false, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: screenshot %s: %w", webshotName, b.Website, err)
	}

	logging.ImagesDebug("webshot: captured %d bytes for %s", len(shot), b.Website)
	return []types.ImageCandidate{{
		URL:        b.Website,
		Width:      1280,
		Height:     800,
		Format:     types.FormatPNG,
		ByteSize:   int64(len(shot)),
		Source:     webshotName,
		Confidence: 0.2,
	}}, nil
}

// Close shuts the browser down.
func (p *WebshotProvider) Close() error {
	return p.browser.Close()
}
