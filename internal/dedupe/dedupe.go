// Package dedupe validates incoming candidates and resolves them against
// existing directory entries so repeated syncs enrich records instead of
// duplicating them.
package dedupe

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"votewallet/internal/logging"
	"votewallet/internal/types"
)

// Finder is the store lookup the resolver needs.
type Finder interface {
	GetBusinessByNameCity(name, city string) (*types.Business, error)
}

// Validate checks a candidate that will create a new record. Name and
// category are mandatory; suspicious coordinates, years, and URLs only
// warn.
func Validate(c *types.Candidate) types.ValidationResult {
	result := types.ValidationResult{IsValid: true}

	if strings.TrimSpace(c.Name) == "" {
		result.AddError("name is required")
	}
	if strings.TrimSpace(c.Category) == "" {
		result.AddError("category is required")
	}
	warnSuspiciousFields(c, &result)

	if !result.IsValid {
		logging.DedupeDebug("candidate %q rejected: %v", c.Name, result.Errors)
	}
	return result
}

// ValidateMerge checks a candidate folding into an existing record. Only
// the name is mandatory: enrichment sources (encyclopedia intros, donation
// records, news statements) carry no category of their own, and the
// existing record already has one.
func ValidateMerge(c *types.Candidate) types.ValidationResult {
	result := types.ValidationResult{IsValid: true}

	if strings.TrimSpace(c.Name) == "" {
		result.AddError("name is required")
	}
	warnSuspiciousFields(c, &result)

	if !result.IsValid {
		logging.DedupeDebug("candidate %q rejected: %v", c.Name, result.Errors)
	}
	return result
}

func warnSuspiciousFields(c *types.Candidate, result *types.ValidationResult) {
	if c.DataQuality < 1 || c.DataQuality > 10 {
		result.AddWarning(fmt.Sprintf("data quality %d outside 1-10", c.DataQuality))
	}
	if c.FoundedYear != 0 {
		if c.FoundedYear < 1600 || c.FoundedYear > time.Now().Year() {
			result.AddWarning(fmt.Sprintf("implausible founding year %d", c.FoundedYear))
		}
	}
	if c.Lat != 0 || c.Lon != 0 {
		if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
			result.AddWarning(fmt.Sprintf("coordinates out of range: %v, %v", c.Lat, c.Lon))
		}
	}
	if c.Website != "" {
		u, err := url.Parse(c.Website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			result.AddWarning(fmt.Sprintf("website %q is not a valid http(s) URL", c.Website))
		}
	}
}

// FindExisting resolves a candidate to an existing business by
// case-insensitive name and city. Returns (nil, nil) when the candidate is
// new.
func FindExisting(finder Finder, c *types.Candidate) (*types.Business, error) {
	existing, err := finder.GetBusinessByNameCity(c.Name, c.City)
	if err != nil {
		return nil, fmt.Errorf("dedupe lookup for %q: %w", c.Name, err)
	}
	return existing, nil
}

// Merge folds a candidate into an existing business. Non-zero incoming
// fields win; zero values never erase what an earlier source provided.
// Attributes are overlaid key by key. The merged business is returned;
// the inputs are not mutated.
func Merge(existing *types.Business, c *types.Candidate) *types.Business {
	merged := *existing

	setString(&merged.Description, c.Description)
	setString(&merged.Category, c.Category)
	setString(&merged.Address, c.Address)
	setString(&merged.State, c.State)
	setString(&merged.Zip, c.Zip)
	setString(&merged.Country, c.Country)
	setString(&merged.Website, c.Website)
	setString(&merged.Phone, c.Phone)
	setString(&merged.Hours, c.Hours)
	setString(&merged.PriceRange, c.PriceRange)

	if c.Lat != 0 {
		merged.Lat = c.Lat
	}
	if c.Lon != 0 {
		merged.Lon = c.Lon
	}
	if c.FoundedYear != 0 {
		merged.FoundedYear = c.FoundedYear
	}
	if c.EmployeeCount != 0 {
		merged.EmployeeCount = c.EmployeeCount
	}
	if c.DataQuality != 0 {
		merged.DataQuality = c.DataQuality
	}

	merged.Attributes = existing.Attributes.Merge(c.Attributes)

	logging.Dedupe("merged %q from %s into existing %s", c.Name, c.Source, existing.ID)
	return &merged
}

// FromCandidate builds a fresh business from a candidate that resolved to
// nothing.
func FromCandidate(c *types.Candidate) *types.Business {
	return &types.Business{
		Name:          c.Name,
		Description:   c.Description,
		Category:      c.Category,
		Address:       c.Address,
		City:          c.City,
		State:         c.State,
		Zip:           c.Zip,
		Country:       c.Country,
		Lat:           c.Lat,
		Lon:           c.Lon,
		Website:       c.Website,
		Phone:         c.Phone,
		Hours:         c.Hours,
		PriceRange:    c.PriceRange,
		FoundedYear:   c.FoundedYear,
		EmployeeCount: c.EmployeeCount,
		Attributes:    c.Attributes.Merge(nil),
		DataSource:    c.Source,
		DataQuality:   c.DataQuality,
		Active:        true,
	}
}

func setString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}
