// Package types provides shared type definitions used across the pipeline.
// This package exists to break import cycles between the store, the source
// adapters, and the scoring engines. Types in this package should be
// foundational data structures with no complex dependencies.
package types

import (
	"strings"
	"time"
)

// =============================================================================
// BUSINESS ENTITY
// =============================================================================

// Business is the central directory entity. It is created on first successful
// ingestion from any source and updated (never replaced) by later passes;
// deactivation is a soft flag, businesses are never hard-deleted by the
// pipeline.
type Business struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Primary category is denormalized onto the business record; secondary
	// categories and tags live in join relations but are carried here for
	// engine handoff.
	Category            string   `json:"category"`
	SecondaryCategories []string `json:"secondary_categories,omitempty"`
	Tags                []string `json:"tags,omitempty"`

	Address string  `json:"address,omitempty"`
	City    string  `json:"city,omitempty"`
	State   string  `json:"state,omitempty"`
	Zip     string  `json:"zip,omitempty"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`

	Website       string `json:"website,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Hours         string `json:"hours,omitempty"`
	PriceRange    string `json:"price_range,omitempty"`
	FoundedYear   int    `json:"founded_year,omitempty"`
	EmployeeCount int    `json:"employee_count,omitempty"`

	LogoURL   string   `json:"logo_url,omitempty"`
	PhotoURLs []string `json:"photo_urls,omitempty"`

	// Attributes is the open extension bag; see attributes.go.
	Attributes Attributes `json:"attributes,omitempty"`

	// DataSource is the provenance tag of the pass that created the record.
	DataSource string `json:"data_source"`
	// DataQuality is a 1-10 provenance confidence rating.
	DataQuality int  `json:"data_quality"`
	Active      bool `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Candidate is a normalized record returned by a source adapter before
// dedup/validation. It mirrors Business but has no identity yet and may carry
// political activity evidence found during the same fetch.
type Candidate struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`

	Address string  `json:"address,omitempty"`
	City    string  `json:"city,omitempty"`
	State   string  `json:"state,omitempty"`
	Zip     string  `json:"zip,omitempty"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`

	Website       string `json:"website,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Hours         string `json:"hours,omitempty"`
	PriceRange    string `json:"price_range,omitempty"`
	FoundedYear   int    `json:"founded_year,omitempty"`
	EmployeeCount int    `json:"employee_count,omitempty"`

	Attributes Attributes `json:"attributes,omitempty"`

	Source      string `json:"source"`
	DataQuality int    `json:"data_quality"`

	// Activities are political signals discovered alongside the record
	// (donation rows, statements in news text). They are persisted against
	// the business the candidate resolves to.
	Activities []PoliticalActivity `json:"activities,omitempty"`
}

// =============================================================================
// ALIGNMENT
// =============================================================================

// AlignmentVector holds the five political axes. Axis values are independent
// non-negative magnitudes in [0,100]; they are never normalized to sum to 100.
type AlignmentVector struct {
	Liberal      float64 `json:"liberal"`
	Conservative float64 `json:"conservative"`
	Libertarian  float64 `json:"libertarian"`
	Green        float64 `json:"green"`
	Centrist     float64 `json:"centrist"`
}

// Axis names in canonical order.
const (
	AxisLiberal      = "liberal"
	AxisConservative = "conservative"
	AxisLibertarian  = "libertarian"
	AxisGreen        = "green"
	AxisCentrist     = "centrist"
)

// AxisNames returns the five axis names in canonical order.
func AxisNames() []string {
	return []string{AxisLiberal, AxisConservative, AxisLibertarian, AxisGreen, AxisCentrist}
}

// Axis returns the value for a named axis; unknown names return 0.
func (v AlignmentVector) Axis(name string) float64 {
	switch name {
	case AxisLiberal:
		return v.Liberal
	case AxisConservative:
		return v.Conservative
	case AxisLibertarian:
		return v.Libertarian
	case AxisGreen:
		return v.Green
	case AxisCentrist:
		return v.Centrist
	}
	return 0
}

// SetAxis sets the value for a named axis; unknown names are ignored.
func (v *AlignmentVector) SetAxis(name string, value float64) {
	switch name {
	case AxisLiberal:
		v.Liberal = value
	case AxisConservative:
		v.Conservative = value
	case AxisLibertarian:
		v.Libertarian = value
	case AxisGreen:
		v.Green = value
	case AxisCentrist:
		v.Centrist = value
	}
}

// IsZero reports whether every axis is zero.
func (v AlignmentVector) IsZero() bool {
	return v.Liberal == 0 && v.Conservative == 0 && v.Libertarian == 0 &&
		v.Green == 0 && v.Centrist == 0
}

// BusinessAlignment is the confidence-weighted, provenance-tagged alignment
// row persisted per business (single row, upserted).
type BusinessAlignment struct {
	BusinessID string          `json:"business_id"`
	Vector     AlignmentVector `json:"vector"`
	Confidence float64         `json:"confidence"`
	Source     string          `json:"source"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// UserAlignment is the user-editable alignment row, one per user.
type UserAlignment struct {
	UserID    string          `json:"user_id"`
	Vector    AlignmentVector `json:"vector"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// =============================================================================
// TAXONOMY
// =============================================================================

// Category is a fixed taxonomy entity. Keywords drive the lexical scorer.
type Category struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Color       string   `json:"color,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Active      bool     `json:"active"`
}

// Tag is a fixed taxonomy entity attached to businesses via a join relation.
type Tag struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Active      bool     `json:"active"`
}

// CategorizationResult is the output of the lexical categorizer.
type CategorizationResult struct {
	PrimaryCategory     string     `json:"primary_category"`
	SecondaryCategories []string   `json:"secondary_categories,omitempty"`
	Tags                []string   `json:"tags,omitempty"`
	Attributes          Attributes `json:"attributes,omitempty"`
	Confidence          int        `json:"confidence"`
}

// =============================================================================
// POLITICAL ACTIVITY
// =============================================================================

// ActivityType classifies a political activity event.
type ActivityType string

const (
	ActivityDonation    ActivityType = "donation"
	ActivityStatement   ActivityType = "statement"
	ActivityEndorsement ActivityType = "endorsement"
	ActivityLobbying    ActivityType = "lobbying"
	ActivityLawsuit     ActivityType = "lawsuit"
	ActivitySponsorship ActivityType = "sponsorship"
)

// Impact classifies the direction of an activity's effect on its axis.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// PoliticalActivity is an append-only event tied to a business. Rows are
// never mutated after creation, only superseded by newer events.
type PoliticalActivity struct {
	ID         int64        `json:"id"`
	BusinessID string       `json:"business_id"`
	Type       ActivityType `json:"type"`
	Date       time.Time    `json:"date"`
	// Amount is optional and only meaningful for donations/lobbying.
	Amount float64 `json:"amount,omitempty"`
	Impact Impact  `json:"impact"`
	// Axis names which alignment axis the signal speaks to.
	Axis        string    `json:"axis"`
	Description string    `json:"description,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	SourceType  string    `json:"source_type,omitempty"`
	Confidence  float64   `json:"confidence"`
	CreatedAt   time.Time `json:"created_at"`
}

// =============================================================================
// SOURCES AND SYNC BOOKKEEPING
// =============================================================================

// DataSource is the per-source configuration row: rate limit, API key env
// name, and an active flag the registry honors.
type DataSource struct {
	Name            string    `json:"name"`
	RequestsPerHour int       `json:"requests_per_hour"`
	APIKeyEnv       string    `json:"api_key_env,omitempty"`
	Active          bool      `json:"active"`
	LastSyncedAt    time.Time `json:"last_synced_at,omitempty"`
}

// SyncStatus is the lifecycle state of a sync log row.
type SyncStatus string

const (
	SyncRunning   SyncStatus = "running"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
)

// SyncLog is the persisted audit row for one sync run.
type SyncLog struct {
	ID         int64      `json:"id"`
	RunID      string     `json:"run_id"`
	Source     string     `json:"source"`
	Region     string     `json:"region,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at,omitempty"`
	Processed  int        `json:"processed"`
	Added      int        `json:"added"`
	Updated    int        `json:"updated"`
	Failed     int        `json:"failed"`
	Status     SyncStatus `json:"status"`
	Errors     []string   `json:"errors,omitempty"`
}

// SyncResult is the structured report returned to the invoking layer.
// Invariant: RecordsProcessed == RecordsAdded + RecordsUpdated + RecordsFailed.
type SyncResult struct {
	RunID            string        `json:"run_id"`
	RecordsProcessed int           `json:"records_processed"`
	RecordsAdded     int           `json:"records_added"`
	RecordsUpdated   int           `json:"records_updated"`
	RecordsFailed    int           `json:"records_failed"`
	Errors           []string      `json:"errors,omitempty"`
	Duration         time.Duration `json:"duration"`
}

// SuccessRate returns the fraction of processed records that were added or
// updated, in [0,1]. Zero processed records yield 0.
func (r SyncResult) SuccessRate() float64 {
	if r.RecordsProcessed == 0 {
		return 0
	}
	return float64(r.RecordsAdded+r.RecordsUpdated) / float64(r.RecordsProcessed)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationResult carries the outcome of candidate validation. Errors make
// the candidate invalid; warnings do not.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// AddError appends a validation error and marks the result invalid.
func (v *ValidationResult) AddError(msg string) {
	v.IsValid = false
	v.Errors = append(v.Errors, msg)
}

// AddWarning appends a validation warning without affecting validity.
func (v *ValidationResult) AddWarning(msg string) {
	v.Warnings = append(v.Warnings, msg)
}

// =============================================================================
// IMAGES
// =============================================================================

// ImageFormat identifies a candidate image's encoding.
type ImageFormat string

const (
	FormatPNG   ImageFormat = "png"
	FormatSVG   ImageFormat = "svg"
	FormatJPEG  ImageFormat = "jpeg"
	FormatOther ImageFormat = "other"
)

// FormatFromContentType maps a Content-Type header to an ImageFormat.
func FormatFromContentType(ct string) ImageFormat {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "png"):
		return FormatPNG
	case strings.Contains(ct, "svg"):
		return FormatSVG
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return FormatJPEG
	default:
		return FormatOther
	}
}

// ImageCandidate is ephemeral: produced by an image provider, ranked by the
// selector, and only the winner is persisted onto the business media fields.
type ImageCandidate struct {
	URL        string      `json:"url"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Format     ImageFormat `json:"format"`
	ByteSize   int64       `json:"byte_size"`
	Source     string      `json:"source"`
	License    string      `json:"license,omitempty"`
	Confidence float64     `json:"confidence"`
}

// PixelArea returns width*height for ranking.
func (c ImageCandidate) PixelArea() int {
	return c.Width * c.Height
}
