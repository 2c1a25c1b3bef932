package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"votewallet/internal/logging"
	"votewallet/internal/types"
)

const donationsName = "donations"

// partyAxes maps donation recipient party codes to alignment axes.
var partyAxes = map[string]string{
	"DEM": types.AxisLiberal,
	"REP": types.AxisConservative,
	"GOP": types.AxisConservative,
	"LIB": types.AxisLibertarian,
	"GRN": types.AxisGreen,
	"IND": types.AxisCentrist,
}

// DonationsAdapter pulls corporate political contribution records from a
// campaign finance API. It requires an API key and reports itself
// unavailable without one.
type DonationsAdapter struct {
	client  *Client
	baseURL string
	apiKey  string
}

func NewDonationsAdapter(client *Client, baseURL, apiKey string) *DonationsAdapter {
	if baseURL == "" {
		baseURL = "https://api.fec.example/v1/contributions"
	}
	return &DonationsAdapter{client: client, baseURL: baseURL, apiKey: apiKey}
}

func (a *DonationsAdapter) Name() string { return donationsName }

type donationsResponse struct {
	Results []donationRecord `json:"results"`
}

type donationRecord struct {
	ContributorName string  `json:"contributor_name"`
	ContributorCity string  `json:"contributor_city"`
	CommitteeName   string  `json:"committee_name"`
	CommitteeParty  string  `json:"committee_party"`
	Amount          float64 `json:"amount"`
	Date            string  `json:"date"`
	SourceURL       string  `json:"source_url"`
}

// Search looks up contribution records whose contributor name matches the
// query and returns one candidate per distinct contributor, each carrying
// its donation activities.
func (a *DonationsAdapter) Search(ctx context.Context, query, region string) ([]types.Candidate, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("%s: %w: missing API key", donationsName, types.ErrSourceUnavailable)
	}
	if query == "" {
		return nil, nil
	}

	params := url.Values{
		"api_key":          {a.apiKey},
		"contributor_name": {query},
		"per_page":         {"50"},
	}
	if region != "" {
		params.Set("contributor_city", region)
	}

	var resp donationsResponse
	if err := a.client.GetJSON(ctx, donationsName, a.baseURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	// Group records by contributor so double-listed filings collapse into
	// one candidate with several activities.
	byContributor := make(map[string]*types.Candidate)
	var order []string
	for _, rec := range resp.Results {
		if rec.ContributorName == "" || rec.Amount <= 0 {
			continue
		}
		key := strings.ToLower(rec.ContributorName) + "|" + strings.ToLower(rec.ContributorCity)
		c, ok := byContributor[key]
		if !ok {
			c = &types.Candidate{
				Name:        rec.ContributorName,
				City:        firstNonEmpty(rec.ContributorCity, region),
				Source:      donationsName,
				DataQuality: 7,
			}
			byContributor[key] = c
			order = append(order, key)
		}
		c.Activities = append(c.Activities, donationActivity(rec))
	}

	out := make([]types.Candidate, 0, len(order))
	for _, key := range order {
		out = append(out, *byContributor[key])
	}
	logging.Sources("donations: %d records, %d contributors for %q", len(resp.Results), len(out), query)
	return out, nil
}

func donationActivity(rec donationRecord) types.PoliticalActivity {
	axis, ok := partyAxes[strings.ToUpper(rec.CommitteeParty)]
	confidence := 0.9
	if !ok {
		axis = types.AxisCentrist
		confidence = 0.5
	}

	date, _ := time.Parse("2006-01-02", rec.Date)
	return types.PoliticalActivity{
		Type:        types.ActivityDonation,
		Date:        date,
		Amount:      rec.Amount,
		Impact:      types.ImpactPositive,
		Axis:        axis,
		Description: fmt.Sprintf("contribution to %s", rec.CommitteeName),
		SourceURL:   rec.SourceURL,
		SourceType:  donationsName,
		Confidence:  confidence,
	}
}
