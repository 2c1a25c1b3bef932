package store

import (
	"testing"
	"time"

	"votewallet/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGetBusiness(t *testing.T) {
	s := newTestStore(t)

	b := &types.Business{
		Name:        "Green Grocer",
		Category:    "Grocery",
		City:        "Portland",
		State:       "OR",
		Website:     "https://greengrocer.example",
		DataSource:  "overpass",
		DataQuality: 6,
		Active:      true,
		Attributes:  types.Attributes{types.AttrOSMID: "node/123"},
		Tags:        []string{"organic", "local"},
	}

	id, err := s.InsertBusiness(b)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	got, err := s.GetBusiness(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("business not found after insert")
	}
	if got.Name != "Green Grocer" || got.City != "Portland" {
		t.Errorf("got %s/%s, want Green Grocer/Portland", got.Name, got.City)
	}
	if v, ok := got.Attributes.Get(types.AttrOSMID); !ok || v != "node/123" {
		t.Errorf("attributes round trip failed: %q %v", v, ok)
	}
	if len(got.Tags) != 2 {
		t.Errorf("got %d tags, want 2", len(got.Tags))
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps should be set on insert")
	}
}

func TestGetBusinessByNameCityCaseInsensitive(t *testing.T) {
	s := newTestStore(t)

	b := &types.Business{Name: "Rebel Coffee", City: "Austin", Category: "Cafe", Active: true}
	if _, err := s.InsertBusiness(b); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetBusinessByNameCity("REBEL COFFEE", "austin")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil {
		t.Fatal("case-insensitive lookup should find the business")
	}
	if got.ID != b.ID {
		t.Errorf("got id %s, want %s", got.ID, b.ID)
	}

	missing, err := s.GetBusinessByNameCity("Rebel Coffee", "Dallas")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("different city must not match")
	}
}

func TestUpdateBusiness(t *testing.T) {
	s := newTestStore(t)

	b := &types.Business{Name: "Shopfront", City: "Denver", Category: "Retail", Active: true}
	if _, err := s.InsertBusiness(b); err != nil {
		t.Fatal(err)
	}
	created := b.CreatedAt

	b.Website = "https://shopfront.example"
	b.DataQuality = 8
	if err := s.UpdateBusiness(b); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetBusiness(b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Website != "https://shopfront.example" || got.DataQuality != 8 {
		t.Errorf("update did not persist: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Error("created_at should not change on update")
	}

	if err := s.UpdateBusiness(&types.Business{ID: "no-such-id", Name: "x"}); err == nil {
		t.Error("updating a missing business should fail")
	}
}

func TestDeactivateBusiness(t *testing.T) {
	s := newTestStore(t)

	b := &types.Business{Name: "Closing Soon", City: "Boise", Category: "Retail", Active: true}
	if _, err := s.InsertBusiness(b); err != nil {
		t.Fatal(err)
	}
	if err := s.DeactivateBusiness(b.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	got, err := s.GetBusiness(b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("soft delete must keep the row")
	}
	if got.Active {
		t.Error("business should be inactive")
	}

	list, err := s.ListBusinesses(0)
	if err != nil {
		t.Fatal(err)
	}
	for _, lb := range list {
		if lb.ID == b.ID {
			t.Error("deactivated business must not appear in active listing")
		}
	}
}

func TestBusinessAlignmentUpsert(t *testing.T) {
	s := newTestStore(t)

	b := &types.Business{Name: "Aligned Co", City: "Salem", Category: "Retail", Active: true}
	if _, err := s.InsertBusiness(b); err != nil {
		t.Fatal(err)
	}

	a := &types.BusinessAlignment{
		BusinessID: b.ID,
		Vector:     types.AlignmentVector{Liberal: 70, Green: 30},
		Confidence: 0.8,
		Source:     "donations",
	}
	if err := s.UpsertBusinessAlignment(a); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	a.Vector.Liberal = 55
	a.Confidence = 0.9
	if err := s.UpsertBusinessAlignment(a); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetBusinessAlignment(b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("alignment not found")
	}
	if got.Vector.Liberal != 55 || got.Confidence != 0.9 {
		t.Errorf("upsert should replace: %+v", got)
	}

	missing, err := s.GetBusinessAlignment("absent")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("missing alignment should return nil")
	}
}

func TestUserAlignmentRoundTrip(t *testing.T) {
	s := newTestStore(t)

	a := &types.UserAlignment{
		UserID: "user-1",
		Vector: types.AlignmentVector{Liberal: 80, Green: 20},
	}
	if err := s.UpsertUserAlignment(a); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetUserAlignment("user-1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Vector.Liberal != 80 || got.Vector.Green != 20 {
		t.Errorf("round trip failed: %+v", got)
	}
}

func TestCategoryAndTagUpsert(t *testing.T) {
	s := newTestStore(t)

	c := &types.Category{Name: "Restaurant", Keywords: []string{"food", "dining"}, Active: true}
	id1, err := s.UpsertCategory(c)
	if err != nil {
		t.Fatal(err)
	}

	c.Description = "Places to eat"
	id2, err := s.UpsertCategory(c)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Errorf("upsert by name must keep id: %d vs %d", id1, id2)
	}

	cats, err := s.ListCategories()
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 {
		t.Fatalf("got %d categories, want 1", len(cats))
	}
	if cats[0].Description != "Places to eat" {
		t.Error("description update not persisted")
	}
	if len(cats[0].Keywords) != 2 {
		t.Error("keywords not persisted")
	}

	tag := &types.Tag{Name: "vegan", Keywords: []string{"vegan", "plant-based"}, Active: true}
	if _, err := s.UpsertTag(tag); err != nil {
		t.Fatal(err)
	}
	tags, err := s.ListTags()
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0].Name != "vegan" {
		t.Errorf("tag listing: %+v", tags)
	}
}

func TestBusinessTagsReplace(t *testing.T) {
	s := newTestStore(t)

	b := &types.Business{Name: "Tagged", City: "Eugene", Category: "Cafe", Active: true}
	if _, err := s.InsertBusiness(b); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"vegan", "organic", "local"} {
		if _, err := s.UpsertTag(&types.Tag{Name: name, Active: true}); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.SetBusinessTags(b.ID, []string{"vegan", "organic"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetBusinessTags(b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d tags, want 2: %v", len(got), got)
	}

	// Replacement, not accumulation. Unknown names are skipped.
	if err := s.SetBusinessTags(b.ID, []string{"local", "nonexistent"}); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetBusinessTags(b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "local" {
		t.Errorf("got %v, want [local]", got)
	}
}

func TestActivitiesAppendOnly(t *testing.T) {
	s := newTestStore(t)

	b := &types.Business{Name: "Donor Corp", City: "Reno", Category: "Retail", Active: true}
	if _, err := s.InsertBusiness(b); err != nil {
		t.Fatal(err)
	}

	first := &types.PoliticalActivity{
		BusinessID: b.ID,
		Type:       types.ActivityDonation,
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:     5000,
		Impact:     types.ImpactPositive,
		Axis:       types.AxisConservative,
		Confidence: 0.9,
	}
	if _, err := s.InsertActivity(first); err != nil {
		t.Fatal(err)
	}
	second := &types.PoliticalActivity{
		BusinessID: b.ID,
		Type:       types.ActivityStatement,
		Date:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Impact:     types.ImpactNegative,
		Axis:       types.AxisGreen,
		Confidence: 0.4,
	}
	if _, err := s.InsertActivity(second); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListActivitiesByBusiness(b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d activities, want 2", len(got))
	}
	if got[0].Type != types.ActivityStatement {
		t.Errorf("newest first ordering: got %s", got[0].Type)
	}
	if got[1].Amount != 5000 {
		t.Errorf("amount round trip: %v", got[1].Amount)
	}
}

func TestDataSources(t *testing.T) {
	s := newTestStore(t)

	d := &types.DataSource{Name: "overpass", RequestsPerHour: 360, Active: true}
	if err := s.UpsertDataSource(d); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := s.TouchDataSource("overpass", at); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListDataSources()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d sources, want 1", len(list))
	}
	if !list[0].LastSyncedAt.Equal(at) {
		t.Errorf("last synced = %v, want %v", list[0].LastSyncedAt, at)
	}
}

func TestSyncLogLifecycle(t *testing.T) {
	s := newTestStore(t)

	l := &types.SyncLog{RunID: "run-1", Source: "overpass", Region: "Portland"}
	id, err := s.InsertSyncLog(l)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetSyncLog(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.SyncRunning {
		t.Errorf("fresh log status = %s, want running", got.Status)
	}

	l.Status = types.SyncCompleted
	l.FinishedAt = time.Now().UTC()
	l.Processed = 10
	l.Added = 6
	l.Updated = 3
	l.Failed = 1
	l.Errors = []string{"one record failed validation"}
	if err := s.UpdateSyncLog(l); err != nil {
		t.Fatal(err)
	}

	got, err = s.GetSyncLog(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.SyncCompleted || got.Processed != 10 {
		t.Errorf("finalized log: %+v", got)
	}
	if got.Processed != got.Added+got.Updated+got.Failed {
		t.Error("processed must equal added+updated+failed")
	}
	if len(got.Errors) != 1 {
		t.Errorf("errors round trip: %v", got.Errors)
	}

	recent, err := s.ListRecentSyncLogs(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 {
		t.Errorf("got %d recent logs, want 1", len(recent))
	}
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)

	withLogo := &types.Business{Name: "A", City: "X", Category: "Cafe", LogoURL: "https://cdn/a.png", Active: true}
	noLogo := &types.Business{Name: "B", City: "X", Category: "Cafe", Active: true}
	if _, err := s.InsertBusiness(withLogo); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertBusiness(noLogo); err != nil {
		t.Fatal(err)
	}

	stats, err := s.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Businesses != 2 || stats.ActiveBusinesses != 2 {
		t.Errorf("business counts: %+v", stats)
	}
	if stats.WithLogo != 1 || stats.WithoutLogo != 1 {
		t.Errorf("logo counts: %+v", stats)
	}
}
