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

const wikimediaName = "wikimedia"

const userAgent = "VoteWithYourWallet/1.0 (business data pipeline)"

// logoKeywords mark an image filename as a plausible brand mark.
var logoKeywords = []string{
	"logo", "wordmark", "emblem", "symbol", "brand", "trademark",
	"corporate", "company_logo", "logotype", "mark", "insignia",
}

// skipKeywords mark wiki furniture that is never a business logo.
var skipKeywords = []string{
	"commons-logo", "wiki", "wikidata", "wikimedia", "edit-icon",
	"ambox", "merge", "disambig",
}

// minLogoWidth rejects favicon-sized images.
const minLogoWidth = 100

// WikimediaProvider pulls logos from the images on a business's Wikipedia
// article.
type WikimediaProvider struct {
	http    *http.Client
	baseURL string
}

func NewWikimediaProvider(client *http.Client, baseURL string) *WikimediaProvider {
	if baseURL == "" {
		baseURL = "https://en.wikipedia.org/w/api.php"
	}
	return &WikimediaProvider{http: client, baseURL: baseURL}
}

func (p *WikimediaProvider) Name() string { return wikimediaName }

type imageListResponse struct {
	Query struct {
		Pages map[string]struct {
			Title  string `json:"title"`
			Images []struct {
				Title string `json:"title"`
			} `json:"images"`
		} `json:"pages"`
	} `json:"query"`
}

type imageInfoResponse struct {
	Query struct {
		Pages map[string]struct {
			ImageInfo []struct {
				URL         string `json:"url"`
				Width       int    `json:"width"`
				Height      int    `json:"height"`
				Size        int64  `json:"size"`
				Mime        string `json:"mime"`
				ExtMetadata map[string]struct {
					Value string `json:"value"`
				} `json:"extmetadata"`
			} `json:"imageinfo"`
		} `json:"pages"`
	} `json:"query"`
}

// Find lists the images on the business's article, filters them down to
// plausible logos by filename, and resolves dimensions and licensing for
// the survivors. Only PNG and SVG files at least 100px wide qualify.
func (p *WikimediaProvider) Find(ctx context.Context, b *types.Business) ([]types.ImageCandidate, error) {
	titles := p.articleTitles(b)

	for _, title := range titles {
		files, err := p.listImages(ctx, title)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			continue
		}

		var candidates []types.ImageCandidate
		for _, file := range files {
			if !isLogoFilename(file) {
				continue
			}
			c, err := p.resolveImage(ctx, file)
			if err != nil {
				logging.ImagesDebug("wikimedia: skipping %s: %v", file, err)
				continue
			}
			if c != nil {
				candidates = append(candidates, *c)
			}
		}
		if len(candidates) > 0 {
			logging.Images("wikimedia: %d logo candidates for %q via %q", len(candidates), b.Name, title)
			return candidates, nil
		}
	}
	return nil, nil
}

// articleTitles returns the page titles to try, preferring a page the
// wikipedia source adapter already resolved.
func (p *WikimediaProvider) articleTitles(b *types.Business) []string {
	if page, ok := b.Attributes.Get(types.AttrWikipediaPage); ok && page != "" {
		return []string{page}
	}
	return []string{
		b.Name,
		b.Name + ", Inc.",
		b.Name + " Inc.",
		"The " + b.Name + " Company",
	}
}

func (p *WikimediaProvider) listImages(ctx context.Context, title string) ([]string, error) {
	params := url.Values{
		"action":  {"query"},
		"titles":  {title},
		"prop":    {"images"},
		"imlimit": {"50"},
		"format":  {"json"},
	}

	var resp imageListResponse
	if err := p.getJSON(ctx, params, &resp); err != nil {
		return nil, err
	}

	var files []string
	for _, page := range resp.Query.Pages {
		for _, img := range page.Images {
			files = append(files, img.Title)
		}
	}
	return files, nil
}

func (p *WikimediaProvider) resolveImage(ctx context.Context, fileTitle string) (*types.ImageCandidate, error) {
	params := url.Values{
		"action": {"query"},
		"titles": {fileTitle},
		"prop":   {"imageinfo"},
		"iiprop": {"url|size|mime|extmetadata"},
		"format": {"json"},
	}

	var resp imageInfoResponse
	if err := p.getJSON(ctx, params, &resp); err != nil {
		return nil, err
	}

	for _, page := range resp.Query.Pages {
		for _, info := range page.ImageInfo {
			format := types.FormatFromContentType(info.Mime)
			if format != types.FormatPNG && format != types.FormatSVG {
				continue
			}
			if info.Width < minLogoWidth {
				continue
			}

			license := ""
			if lic, ok := info.ExtMetadata["LicenseShortName"]; ok {
				license = lic.Value
			}
			return &types.ImageCandidate{
				URL:        info.URL,
				Width:      info.Width,
				Height:     info.Height,
				Format:     format,
				ByteSize:   info.Size,
				Source:     wikimediaName,
				License:    license,
				Confidence: 0.9,
			}, nil
		}
	}
	return nil, nil
}

func (p *WikimediaProvider) getJSON(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", wikimediaName, types.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %w: status %d", wikimediaName, types.ErrSourceUnavailable, resp.StatusCode)
	}
	return decodeBody(wikimediaName, resp, out)
}

// isLogoFilename applies the keyword filters to a wiki file title.
func isLogoFilename(title string) bool {
	lower := strings.ToLower(title)
	for _, skip := range skipKeywords {
		if strings.Contains(lower, skip) {
			return false
		}
	}
	for _, kw := range logoKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
