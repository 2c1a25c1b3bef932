package images

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"votewallet/internal/logging"
	"votewallet/internal/types"
)

const logoCDNName = "logocdn"

// LogoCDNProvider derives a logo URL from the business's website domain
// via a logo CDN. Cheap and first in the chain: one HEAD-equivalent probe
// per business.
type LogoCDNProvider struct {
	http    *http.Client
	baseURL string
}

func NewLogoCDNProvider(client *http.Client, baseURL string) *LogoCDNProvider {
	if baseURL == "" {
		baseURL = "https://img.logo.dev"
	}
	return &LogoCDNProvider{http: client, baseURL: baseURL}
}

func (p *LogoCDNProvider) Name() string { return logoCDNName }

// Find probes the CDN for the business's domain. Businesses without a
// website yield nothing.
func (p *LogoCDNProvider) Find(ctx context.Context, b *types.Business) ([]types.ImageCandidate, error) {
	domain := domainOf(b.Website)
	if domain == "" {
		return nil, nil
	}

	logoURL := fmt.Sprintf("%s/%s", strings.TrimRight(p.baseURL, "/"), domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", logoCDNName, types.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.ImagesDebug("logocdn: no logo for %s (status %d)", domain, resp.StatusCode)
		return nil, nil
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(ct), "image") {
		return nil, nil
	}

	return []types.ImageCandidate{{
		URL:        logoURL,
		Width:      128,
		Height:     128,
		Format:     types.FormatFromContentType(ct),
		ByteSize:   resp.ContentLength,
		Source:     logoCDNName,
		Confidence: 0.8,
	}}, nil
}

// domainOf extracts the registrable host from a website URL.
func domainOf(website string) string {
	if website == "" {
		return ""
	}
	u, err := url.Parse(website)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
