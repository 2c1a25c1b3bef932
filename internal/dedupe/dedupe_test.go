package dedupe

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"votewallet/internal/store"
	"votewallet/internal/types"
)

func TestValidateMandatoryFields(t *testing.T) {
	tests := []struct {
		name      string
		candidate types.Candidate
		valid     bool
	}{
		{"complete", types.Candidate{Name: "Acme", Category: "Retail", DataQuality: 5}, true},
		{"missing_name", types.Candidate{Category: "Retail", DataQuality: 5}, false},
		{"blank_name", types.Candidate{Name: "   ", Category: "Retail", DataQuality: 5}, false},
		{"missing_category", types.Candidate{Name: "Acme", DataQuality: 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(&tt.candidate)
			if result.IsValid != tt.valid {
				t.Errorf("IsValid = %v, want %v (errors: %v)", result.IsValid, tt.valid, result.Errors)
			}
		})
	}
}

func TestValidateWarningsDoNotInvalidate(t *testing.T) {
	c := types.Candidate{
		Name:        "Acme",
		Category:    "Retail",
		DataQuality: 0,
		FoundedYear: 1312,
		Lat:         200,
		Website:     "not a url",
	}
	result := Validate(&c)
	if !result.IsValid {
		t.Fatalf("warnings must not invalidate: %v", result.Errors)
	}
	if len(result.Warnings) != 4 {
		t.Errorf("got %d warnings, want 4: %v", len(result.Warnings), result.Warnings)
	}
}

func TestDoubleIngestProducesOneBusiness(t *testing.T) {
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	c := types.Candidate{Name: "Rebel Coffee", City: "Austin", Category: "Cafe", Source: "overpass", DataQuality: 5}

	existing, err := FindExisting(s, &c)
	if err != nil {
		t.Fatal(err)
	}
	if existing != nil {
		t.Fatal("fresh store should have no match")
	}
	if _, err := s.InsertBusiness(FromCandidate(&c)); err != nil {
		t.Fatal(err)
	}

	// Second ingest with different casing resolves to the same row.
	c2 := types.Candidate{Name: "REBEL COFFEE", City: "austin", Category: "Cafe", Source: "wikipedia", DataQuality: 4}
	existing, err = FindExisting(s, &c2)
	if err != nil {
		t.Fatal(err)
	}
	if existing == nil {
		t.Fatal("second ingest must resolve to the existing business")
	}
	if err := s.UpdateBusiness(Merge(existing, &c2)); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListBusinesses(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d businesses, want 1", len(all))
	}
}

func TestMergeZeroFieldsNeverErase(t *testing.T) {
	existing := &types.Business{
		ID:          "b1",
		Name:        "Acme",
		City:        "Austin",
		Category:    "Retail",
		Website:     "https://acme.example",
		Phone:       "555-0100",
		Lat:         30.27,
		Lon:         -97.74,
		FoundedYear: 1971,
		DataQuality: 7,
		Attributes:  types.Attributes{"osm_id": "node/1"},
	}

	sparse := types.Candidate{Name: "Acme", City: "Austin", Source: "news"}
	merged := Merge(existing, &sparse)

	if diff := cmp.Diff(existing, merged); diff != "" {
		t.Errorf("sparse merge changed fields (-want +got):\n%s", diff)
	}
}

func TestMergeNonZeroFieldsWin(t *testing.T) {
	existing := &types.Business{
		ID:          "b1",
		Name:        "Acme",
		City:        "Austin",
		Category:    "Retail",
		Phone:       "555-0100",
		DataQuality: 4,
		Attributes:  types.Attributes{"osm_id": "node/1"},
	}

	richer := types.Candidate{
		Name:        "Acme",
		City:        "Austin",
		Description: "A general store.",
		Website:     "https://acme.example",
		FoundedYear: 1971,
		DataQuality: 7,
		Source:      "wikipedia",
		Attributes:  types.Attributes{"wikipedia_page": "Acme, Inc."},
	}

	merged := Merge(existing, &richer)
	if merged.Description != "A general store." || merged.Website != "https://acme.example" {
		t.Errorf("incoming fields should win: %+v", merged)
	}
	if merged.Phone != "555-0100" {
		t.Error("absent incoming phone must not erase existing value")
	}
	if merged.DataQuality != 7 {
		t.Errorf("supplied data quality should win, got %d", merged.DataQuality)
	}
	if v, _ := merged.Attributes.Get("osm_id"); v != "node/1" {
		t.Error("existing attributes must survive")
	}
	if v, _ := merged.Attributes.Get("wikipedia_page"); v != "Acme, Inc." {
		t.Error("incoming attributes must be overlaid")
	}
	if existing.Description != "" {
		t.Error("Merge must not mutate its input")
	}
}

func TestMergeSuppliedQualityOverridesHigherExisting(t *testing.T) {
	existing := &types.Business{ID: "b1", Name: "Acme", Category: "Retail", DataQuality: 8}
	c := types.Candidate{Name: "Acme", Source: "news", DataQuality: 3}

	merged := Merge(existing, &c)
	if merged.DataQuality != 3 {
		t.Errorf("later ingestion supplied quality 3, got %d", merged.DataQuality)
	}
}

func TestValidateMergeAllowsMissingCategory(t *testing.T) {
	c := types.Candidate{Name: "Acme", Source: "wikipedia", DataQuality: 6}
	if result := ValidateMerge(&c); !result.IsValid {
		t.Fatalf("enrichment candidates carry no category: %v", result.Errors)
	}

	nameless := types.Candidate{Source: "wikipedia", DataQuality: 6}
	if result := ValidateMerge(&nameless); result.IsValid {
		t.Fatal("a nameless candidate cannot be matched to anything")
	}
}

func TestFromCandidateIsActive(t *testing.T) {
	c := types.Candidate{Name: "Acme", City: "Austin", Category: "Retail", Source: "overpass", DataQuality: 5}
	b := FromCandidate(&c)
	if !b.Active {
		t.Error("new businesses start active")
	}
	if b.DataSource != "overpass" {
		t.Errorf("data source = %q", b.DataSource)
	}
	if b.ID != "" {
		t.Error("identity is assigned by the store, not the builder")
	}
}
