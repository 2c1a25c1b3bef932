package images

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"votewallet/internal/types"
)

const photoSearchName = "photosearch"

// PhotoSearchProvider queries a stock photo search API for storefront
// photos when no logo can be found. Results are generic imagery, so
// confidence stays low.
type PhotoSearchProvider struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func NewPhotoSearchProvider(client *http.Client, baseURL, apiKey string) *PhotoSearchProvider {
	if baseURL == "" {
		baseURL = "https://photos.example/api/search"
	}
	return &PhotoSearchProvider{http: client, baseURL: baseURL, apiKey: apiKey}
}

func (p *PhotoSearchProvider) Name() string { return photoSearchName }

type photoSearchResponse struct {
	Photos []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Mime   string `json:"mime"`
	} `json:"photos"`
}

// Find searches for photos of the business by name and city. Without an
// API key the provider is inert.
func (p *PhotoSearchProvider) Find(ctx context.Context, b *types.Business) ([]types.ImageCandidate, error) {
	if p.apiKey == "" {
		return nil, nil
	}

	params := url.Values{
		"query":    {b.Name + " " + b.City},
		"per_page": {"5"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", photoSearchName, types.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w: status %d", photoSearchName, types.ErrSourceUnavailable, resp.StatusCode)
	}

	var parsed photoSearchResponse
	if err := decodeBody(photoSearchName, resp, &parsed); err != nil {
		return nil, err
	}

	var out []types.ImageCandidate
	for _, photo := range parsed.Photos {
		if photo.URL == "" {
			continue
		}
		out = append(out, types.ImageCandidate{
			URL:        photo.URL,
			Width:      photo.Width,
			Height:     photo.Height,
			Format:     types.FormatFromContentType(photo.Mime),
			Source:     photoSearchName,
			Confidence: 0.4,
		})
	}
	return out, nil
}

// decodeBody reads and unmarshals a JSON response body.
func decodeBody(source string, resp *http.Response, out any) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", source, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", source, err)
	}
	return nil
}
