package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"votewallet/internal/logging"
	"votewallet/internal/types"
)

const wikipediaName = "wikipedia"

// foundedPattern pulls a founding year out of intro prose like
// "founded in 1971" or "established 1923".
var foundedPattern = regexp.MustCompile(`(?i)(?:founded|established|incorporated)\s+(?:in\s+)?(\d{4})`)

// employeesPattern matches "12,000 employees" and similar phrasings.
var employeesPattern = regexp.MustCompile(`(?i)([\d,]+)\s+(?:employees|workers|staff)`)

// WikipediaAdapter enriches businesses from Wikipedia article intros.
type WikipediaAdapter struct {
	client  *Client
	baseURL string
}

func NewWikipediaAdapter(client *Client, baseURL string) *WikipediaAdapter {
	if baseURL == "" {
		baseURL = "https://en.wikipedia.org/w/api.php"
	}
	return &WikipediaAdapter{client: client, baseURL: baseURL}
}

func (a *WikipediaAdapter) Name() string { return wikipediaName }

// nameVariations lists the article titles to try for a business name, in
// order of likelihood. Company articles frequently carry corporate suffixes
// the directory name omits.
func nameVariations(name string) []string {
	return []string{
		name,
		name + ", Inc.",
		name + " Inc.",
		"The " + name + " Company",
	}
}

type wikiQueryResponse struct {
	Query struct {
		Pages map[string]wikiPage `json:"pages"`
	} `json:"query"`
}

type wikiPage struct {
	PageID  int64  `json:"pageid"`
	Title   string `json:"title"`
	Missing *any   `json:"missing,omitempty"`
	Extract string `json:"extract"`
}

// Search tries each title variation of the query until an article resolves,
// and returns at most one candidate carrying the article's intro text. The
// region only scopes the candidate's city field; Wikipedia has no regional
// index to query.
func (a *WikipediaAdapter) Search(ctx context.Context, query, region string) ([]types.Candidate, error) {
	if query == "" {
		return nil, nil
	}

	for _, title := range nameVariations(query) {
		page, err := a.fetchIntro(ctx, title)
		if err != nil {
			return nil, err
		}
		if page == nil {
			continue
		}

		logging.Sources("wikipedia: resolved %q via title %q", query, page.Title)
		c := types.Candidate{
			Name:        query,
			Description: summarize(page.Extract),
			City:        region,
			Source:      wikipediaName,
			DataQuality: 4,
		}
		c.Attributes = c.Attributes.Set(types.AttrWikipediaPage, page.Title)
		if m := foundedPattern.FindStringSubmatch(page.Extract); m != nil {
			if year, err := strconv.Atoi(m[1]); err == nil {
				c.FoundedYear = year
			}
		}
		if m := employeesPattern.FindStringSubmatch(page.Extract); m != nil {
			raw := strings.ReplaceAll(m[1], ",", "")
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				c.EmployeeCount = n
			}
		}
		return []types.Candidate{c}, nil
	}

	logging.SourcesDebug("wikipedia: no article for %q", query)
	return nil, nil
}

func (a *WikipediaAdapter) fetchIntro(ctx context.Context, title string) (*wikiPage, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"format":      {"json"},
		"redirects":   {"1"},
		"titles":      {title},
	}

	var resp wikiQueryResponse
	err := a.client.GetJSON(ctx, wikipediaName, a.baseURL+"?"+params.Encode(), &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch article %q: %w", title, err)
	}

	for _, page := range resp.Query.Pages {
		if page.Missing != nil || page.PageID == 0 || page.Extract == "" {
			continue
		}
		return &page, nil
	}
	return nil, nil
}

// summarize truncates an article intro to its first few sentences.
func summarize(extract string) string {
	extract = strings.TrimSpace(extract)
	const maxLen = 500
	if len(extract) <= maxLen {
		return extract
	}
	cut := extract[:maxLen]
	if idx := strings.LastIndex(cut, ". "); idx > 0 {
		return cut[:idx+1]
	}
	return cut
}
