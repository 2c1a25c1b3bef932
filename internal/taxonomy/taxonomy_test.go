package taxonomy

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"votewallet/internal/store"
	"votewallet/internal/types"
)

func testVocabulary() ([]types.Category, []types.Tag) {
	categories := []types.Category{
		{Name: "Cafe", Keywords: []string{"coffee", "espresso", "roaster"}, Active: true},
		{Name: "Bookstore", Keywords: []string{"books", "reading", "literature"}, Active: true},
		{Name: "Grocery", Keywords: []string{"grocery", "produce", "market"}, Active: true},
	}
	tags := []types.Tag{
		{Name: "organic", Keywords: []string{"organic", "natural"}, Active: true},
		{Name: "local", Keywords: []string{"local", "neighborhood", "family-owned"}, Active: true},
		{Name: "vegan", Keywords: []string{"vegan", "plant-based"}, Active: true},
	}
	return categories, tags
}

func TestCategorizeStatedCategoryWins(t *testing.T) {
	cats, tags := testVocabulary()
	e := NewEngine(cats, tags)

	b := &types.Business{Name: "Rebel Roasters", Category: "Cafe"}
	r := e.Categorize(b)
	if r.PrimaryCategory != "Cafe" {
		t.Errorf("primary = %q", r.PrimaryCategory)
	}
	if r.Confidence != 100 {
		t.Errorf("confidence = %d, want 100", r.Confidence)
	}

	// A business that merely carries the category name in its own name
	// gets the substring bonus, not the exact-match score.
	weak := e.Categorize(&types.Business{Name: "Cafe Nowhere"})
	if weak.PrimaryCategory != "Cafe" || weak.Confidence != 50 {
		t.Errorf("name-only match: primary %q confidence %d, want Cafe 50",
			weak.PrimaryCategory, weak.Confidence)
	}
}

func TestCategorizeKeywordAccumulation(t *testing.T) {
	cats, tags := testVocabulary()
	e := NewEngine(cats, tags)

	b := &types.Business{
		Name:        "Morning Roaster",
		Description: "Espresso bar and coffee roaster with organic beans.",
	}
	r := e.Categorize(b)
	if r.PrimaryCategory != "Cafe" {
		t.Fatalf("primary = %q, want Cafe", r.PrimaryCategory)
	}
	// Three keyword hits and no name match.
	if r.Confidence != 30 {
		t.Errorf("confidence = %d, want 30", r.Confidence)
	}
	if len(r.Tags) != 1 || r.Tags[0] != "organic" {
		t.Errorf("tags = %v, want [organic]", r.Tags)
	}
}

func TestCategorizeSecondaryCategories(t *testing.T) {
	cats, tags := testVocabulary()
	e := NewEngine(cats, tags)

	b := &types.Business{
		Name:        "Grocery and Bookstore",
		Description: "A market with produce, grocery staples, books, reading nooks and literature events, plus coffee.",
	}
	r := e.Categorize(b)
	if r.PrimaryCategory == "" {
		t.Fatal("expected a primary category")
	}
	// Cafe scores only 10 (one keyword) and stays below the secondary
	// threshold.
	for _, sec := range r.SecondaryCategories {
		if sec == "Cafe" {
			t.Error("weak match must not become secondary")
		}
		if sec == r.PrimaryCategory {
			t.Error("primary must not repeat as secondary")
		}
	}
	if len(r.SecondaryCategories) == 0 {
		t.Error("expected at least one secondary category")
	}
}

func TestTagNameSubstringScores(t *testing.T) {
	// The tag name appears verbatim in the text but none of its keywords
	// do, so only the name-substring bonus can rank it.
	e := NewEngine(nil, []types.Tag{
		{Name: "union", Keywords: []string{"collective bargaining"}, Active: true},
	})
	r := e.Categorize(&types.Business{
		Name:        "Sprout Kitchen",
		Description: "A proudly union shop.",
	})
	if len(r.Tags) != 1 || r.Tags[0] != "union" {
		t.Errorf("tags = %v, want [union] via its name appearing in the text", r.Tags)
	}
}

func TestCategorizeNoMatch(t *testing.T) {
	cats, tags := testVocabulary()
	e := NewEngine(cats, tags)

	r := e.Categorize(&types.Business{Name: "XYZZY Holdings"})
	if r.PrimaryCategory != "" || r.Confidence != 0 {
		t.Errorf("no-match result: %+v", r)
	}
	if r.Tags != nil {
		t.Errorf("tags = %v, want none", r.Tags)
	}
}

func TestCategorizeIdempotent(t *testing.T) {
	cats, tags := testVocabulary()
	e := NewEngine(cats, tags)

	b := &types.Business{Name: "Morning Roaster", Description: "coffee and espresso"}
	first := e.Categorize(b)
	Apply(b, first)
	second := e.Categorize(b)

	if first.PrimaryCategory != second.PrimaryCategory {
		t.Errorf("primary changed across runs: %q vs %q", first.PrimaryCategory, second.PrimaryCategory)
	}
}

func TestApplyKeepsCategoryOnNoMatch(t *testing.T) {
	b := &types.Business{Name: "X", Category: "Retail"}
	Apply(b, types.CategorizationResult{})
	if b.Category != "Retail" {
		t.Errorf("category = %q, existing value must survive an empty result", b.Category)
	}
}

const seedYAML = `categories:
  - name: Cafe
    description: Coffee shops
    icon: cup
    keywords: [coffee, espresso]
  - name: Bookstore
    keywords: [books]
tags:
  - name: organic
    keywords: [organic]
`

func TestSeedIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	nc, nt, err := Seed(s, path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if nc != 2 || nt != 1 {
		t.Errorf("seeded %d/%d, want 2/1", nc, nt)
	}

	// Re-seed must not duplicate rows.
	if _, _, err := Seed(s, path); err != nil {
		t.Fatal(err)
	}
	cats, err := s.ListCategories()
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 {
		t.Errorf("got %d categories after reseed, want 2", len(cats))
	}
}

func TestLoadSeedFileRejectsEmptyNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("categories:\n  - keywords: [x]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadSeedFile(path); err == nil {
		t.Error("expected error for unnamed category")
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	var reloads atomic.Int64
	w, err := NewWatcher(path, func(string) { reloads.Add(1) })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte(seedYAML+"  - name: extra\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for reloads.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher did not fire within deadline")
		case <-time.After(50 * time.Millisecond):
		}
	}

	stats := w.Stats()
	if stats.Reloads == 0 || stats.EventsSeen == 0 {
		t.Errorf("stats not recorded: %+v", stats)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	var reloads atomic.Int64
	w, err := NewWatcher(path, func(string) { reloads.Add(1) })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("noise"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(debounceWindow + 300*time.Millisecond)

	if reloads.Load() != 0 {
		t.Error("unrelated file change must not trigger a reload")
	}
}
