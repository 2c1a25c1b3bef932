package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"votewallet/internal/logging"
	"votewallet/internal/types"
)

const overpassName = "overpass"

// shopCategories maps OpenStreetMap shop/amenity tag values to directory
// categories. Unmapped values fall through to a cleaned-up tag value.
var shopCategories = map[string]string{
	"supermarket": "Grocery",
	"convenience": "Grocery",
	"greengrocer": "Grocery",
	"bakery":      "Bakery",
	"butcher":     "Grocery",
	"cafe":        "Cafe",
	"coffee":      "Cafe",
	"restaurant":  "Restaurant",
	"fast_food":   "Restaurant",
	"bar":         "Bar",
	"pub":         "Bar",
	"clothes":     "Retail",
	"shoes":       "Retail",
	"books":       "Bookstore",
	"hardware":    "Hardware",
	"doityourself": "Hardware",
	"pharmacy":    "Pharmacy",
	"bank":        "Finance",
	"fuel":        "Automotive",
	"car_repair":  "Automotive",
	"hairdresser": "Beauty",
	"beauty":      "Beauty",
	"gym":         "Fitness",
	"fitness_centre": "Fitness",
}

// OverpassAdapter reads businesses from OpenStreetMap via the Overpass API.
type OverpassAdapter struct {
	client  *Client
	baseURL string
}

func NewOverpassAdapter(client *Client, baseURL string) *OverpassAdapter {
	if baseURL == "" {
		baseURL = "https://overpass-api.de/api/interpreter"
	}
	return &OverpassAdapter{client: client, baseURL: baseURL}
}

func (a *OverpassAdapter) Name() string { return overpassName }

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center,omitempty"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Search queries named shops and amenities inside the region's named area.
// An empty query matches every named element in the area.
func (a *OverpassAdapter) Search(ctx context.Context, query, region string) ([]types.Candidate, error) {
	ql := buildOverpassQuery(query, region)

	body, err := a.client.PostForm(ctx, overpassName, a.baseURL, url.Values{"data": {ql}})
	if err != nil {
		return nil, err
	}

	var resp overpassResponse
	if err := decodeJSON(overpassName, body, &resp); err != nil {
		return nil, err
	}

	var out []types.Candidate
	for _, el := range resp.Elements {
		c, ok := a.toCandidate(el, region)
		if !ok {
			continue
		}
		out = append(out, c)
	}
	logging.Sources("overpass: %d elements, %d candidates for %q in %q",
		len(resp.Elements), len(out), query, region)
	return out, nil
}

func buildOverpassQuery(query, region string) string {
	nameFilter := ""
	if query != "" {
		nameFilter = fmt.Sprintf(`["name"~%q,i]`, query)
	} else {
		nameFilter = `["name"]`
	}

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n")
	fmt.Fprintf(&b, "area[name=%q]->.searchArea;\n", region)
	b.WriteString("(\n")
	for _, key := range []string{"shop", "amenity"} {
		fmt.Fprintf(&b, "  node(area.searchArea)[%q]%s;\n", key, nameFilter)
		fmt.Fprintf(&b, "  way(area.searchArea)[%q]%s;\n", key, nameFilter)
	}
	b.WriteString(");\nout center tags 100;\n")
	return b.String()
}

func (a *OverpassAdapter) toCandidate(el overpassElement, region string) (types.Candidate, bool) {
	name := el.Tags["name"]
	if name == "" {
		return types.Candidate{}, false
	}

	lat, lon := el.Lat, el.Lon
	if el.Center != nil {
		lat, lon = el.Center.Lat, el.Center.Lon
	}

	c := types.Candidate{
		Name:        name,
		Category:    overpassCategory(el.Tags),
		Address:     overpassAddress(el.Tags),
		City:        firstNonEmpty(el.Tags["addr:city"], region),
		State:       el.Tags["addr:state"],
		Zip:         el.Tags["addr:postcode"],
		Country:     el.Tags["addr:country"],
		Lat:         lat,
		Lon:         lon,
		Website:     firstNonEmpty(el.Tags["website"], el.Tags["contact:website"]),
		Phone:       firstNonEmpty(el.Tags["phone"], el.Tags["contact:phone"]),
		Hours:       el.Tags["opening_hours"],
		Source:      overpassName,
		DataQuality: 5,
	}
	c.Attributes = c.Attributes.Set(types.AttrOSMID, fmt.Sprintf("%s/%d", el.Type, el.ID))
	if v := el.Tags["contact:twitter"]; v != "" {
		c.Attributes = c.Attributes.Set(types.AttrSocialTwitter, v)
	}
	if v := el.Tags["contact:facebook"]; v != "" {
		c.Attributes = c.Attributes.Set(types.AttrSocialFacebook, v)
	}
	return c, true
}

func overpassCategory(tags map[string]string) string {
	for _, key := range []string{"shop", "amenity"} {
		v := tags[key]
		if v == "" {
			continue
		}
		if mapped, ok := shopCategories[v]; ok {
			return mapped
		}
		// Title-case the raw tag value as a fallback category.
		v = strings.ReplaceAll(v, "_", " ")
		return strings.ToUpper(v[:1]) + v[1:]
	}
	return ""
}

func overpassAddress(tags map[string]string) string {
	num := tags["addr:housenumber"]
	street := tags["addr:street"]
	switch {
	case num != "" && street != "":
		return num + " " + street
	case street != "":
		return street
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
