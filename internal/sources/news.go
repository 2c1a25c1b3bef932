package sources

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"votewallet/internal/logging"
	"votewallet/internal/types"
)

const newsName = "news"

// axisKeywords maps story vocabulary to the alignment axis it signals.
var axisKeywords = map[string][]string{
	types.AxisLiberal:      {"progressive", "liberal", "democrat", "labor union", "lgbtq", "abortion rights"},
	types.AxisConservative: {"conservative", "republican", "traditional values", "second amendment", "pro-life"},
	types.AxisLibertarian:  {"libertarian", "deregulation", "free market", "limited government"},
	types.AxisGreen:        {"climate", "renewable", "sustainability", "environmental", "carbon neutral", "green energy"},
	types.AxisCentrist:     {"bipartisan", "moderate", "centrist", "nonpartisan"},
}

// negativeKeywords flip a story's impact from positive to negative.
var negativeKeywords = []string{
	"boycott", "backlash", "criticized", "lawsuit against", "violation",
	"fined", "scandal", "accused", "opposes", "against",
}

// NewsAdapter scrapes a news search endpoint for political statements
// attributable to a business.
type NewsAdapter struct {
	client  *Client
	baseURL string
}

func NewNewsAdapter(client *Client, baseURL string) *NewsAdapter {
	if baseURL == "" {
		baseURL = "https://news.example/search"
	}
	return &NewsAdapter{client: client, baseURL: baseURL}
}

func (a *NewsAdapter) Name() string { return newsName }

// Search fetches the search page for the query, extracts the page title and
// visible text, and turns keyword hits into statement activities on a single
// low-quality candidate. A page with no axis signal yields no candidates.
func (a *NewsAdapter) Search(ctx context.Context, query, region string) ([]types.Candidate, error) {
	if query == "" {
		return nil, nil
	}

	params := url.Values{"q": {query + " " + region}}
	body, err := a.client.Get(ctx, newsName, a.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	title, text := extractText(body)
	activities := scanStatements(query, title, text)
	if len(activities) == 0 {
		logging.SourcesDebug("news: no political signal for %q", query)
		return nil, nil
	}

	c := types.Candidate{
		Name:        query,
		City:        region,
		Source:      newsName,
		DataQuality: 3,
		Activities:  activities,
	}
	logging.Sources("news: %d statement signals for %q", len(activities), query)
	return []types.Candidate{c}, nil
}

// extractText parses an HTML document and returns its title plus the
// concatenated visible text, scripts and styles excluded.
func extractText(body []byte) (title, text string) {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return "", ""
	}

	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title":
				if n.FirstChild != nil && title == "" {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
		}
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				sb.WriteString(trimmed)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return title, sb.String()
}

// scanStatements scores the page text against the axis vocabularies. One
// activity per axis at most; impact flips to negative when the text also
// carries adversarial vocabulary.
func scanStatements(business, title, text string) []types.PoliticalActivity {
	lower := strings.ToLower(title + " " + text)
	if !strings.Contains(lower, strings.ToLower(business)) {
		return nil
	}

	impact := types.ImpactPositive
	for _, kw := range negativeKeywords {
		if strings.Contains(lower, kw) {
			impact = types.ImpactNegative
			break
		}
	}

	var out []types.PoliticalActivity
	for _, axis := range types.AxisNames() {
		hits := 0
		for _, kw := range axisKeywords[axis] {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		confidence := 0.2 + 0.1*float64(hits)
		if confidence > 0.6 {
			confidence = 0.6
		}
		out = append(out, types.PoliticalActivity{
			Type:        types.ActivityStatement,
			Impact:      impact,
			Axis:        axis,
			Description: "press coverage: " + firstNonEmpty(title, "untitled article"),
			SourceType:  newsName,
			Confidence:  confidence,
		})
	}
	return out
}
