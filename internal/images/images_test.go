package images

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"votewallet/internal/retry"
	"votewallet/internal/types"
)

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name       string
		candidates []types.ImageCandidate
		wantURL    string
	}{
		{
			name:    "empty",
			wantURL: "",
		},
		{
			name: "confidence_wins_over_size",
			candidates: []types.ImageCandidate{
				{URL: "big", Width: 1000, Height: 1000, Confidence: 0.6},
				{URL: "confident", Width: 100, Height: 100, Confidence: 0.9},
			},
			wantURL: "confident",
		},
		{
			name: "area_breaks_confidence_tie",
			candidates: []types.ImageCandidate{
				{URL: "small", Width: 100, Height: 100, Confidence: 0.8},
				{URL: "large", Width: 400, Height: 400, Confidence: 0.8},
			},
			wantURL: "large",
		},
		{
			name: "format_breaks_full_tie",
			candidates: []types.ImageCandidate{
				{URL: "jpeg", Width: 200, Height: 200, Format: types.FormatJPEG, Confidence: 0.8},
				{URL: "png", Width: 200, Height: 200, Format: types.FormatPNG, Confidence: 0.8},
				{URL: "svg", Width: 200, Height: 200, Format: types.FormatSVG, Confidence: 0.8},
			},
			wantURL: "png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectBest(tt.candidates)
			if tt.wantURL == "" {
				if got != nil {
					t.Errorf("want nil, got %+v", got)
				}
				return
			}
			if got == nil || got.URL != tt.wantURL {
				t.Errorf("got %+v, want URL %q", got, tt.wantURL)
			}
		})
	}
}

func TestSelectBestDoesNotMutateInput(t *testing.T) {
	candidates := []types.ImageCandidate{
		{URL: "a", Confidence: 0.1},
		{URL: "b", Confidence: 0.9},
	}
	SelectBest(candidates)
	if candidates[0].URL != "a" {
		t.Error("input order must be preserved")
	}
}

func TestIsLogoFilename(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"File:Acme logo.svg", true},
		{"File:Acme wordmark 2020.png", true},
		{"File:Corporate emblem.png", true},
		{"File:Commons-logo.svg", false},
		{"File:Wikidata-logo.svg", false},
		{"File:Ambox important.svg", false},
		{"File:Storefront photo.jpg", false},
	}
	for _, tt := range tests {
		if got := isLogoFilename(tt.title); got != tt.want {
			t.Errorf("isLogoFilename(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestWikimediaFind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("prop") {
		case "images":
			w.Write([]byte(`{"query": {"pages": {"1": {"title": "Acme", "images": [
				{"title": "File:Commons-logo.svg"},
				{"title": "File:Acme storefront.jpg"},
				{"title": "File:Acme logo.svg"}
			]}}}}`))
		case "imageinfo":
			w.Write([]byte(`{"query": {"pages": {"2": {"imageinfo": [
				{"url": "https://upload.example/Acme_logo.svg", "width": 512, "height": 256,
				 "size": 14000, "mime": "image/svg+xml",
				 "extmetadata": {"LicenseShortName": {"value": "CC BY-SA 4.0"}}}
			]}}}}`))
		default:
			t.Errorf("unexpected prop %q", r.URL.Query().Get("prop"))
		}
	}))
	defer srv.Close()

	p := NewWikimediaProvider(srv.Client(), srv.URL)
	b := &types.Business{Name: "Acme"}

	got, err := p.Find(context.Background(), b)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	c := got[0]
	if c.Format != types.FormatSVG || c.Width != 512 {
		t.Errorf("candidate: %+v", c)
	}
	if c.License != "CC BY-SA 4.0" {
		t.Errorf("license = %q", c.License)
	}
	if c.Confidence != 0.9 {
		t.Errorf("confidence = %v", c.Confidence)
	}
}

func TestWikimediaRejectsSmallImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("prop") {
		case "images":
			w.Write([]byte(`{"query": {"pages": {"1": {"images": [{"title": "File:Tiny logo.png"}]}}}}`))
		case "imageinfo":
			w.Write([]byte(`{"query": {"pages": {"2": {"imageinfo": [
				{"url": "https://upload.example/tiny.png", "width": 48, "height": 48, "mime": "image/png"}
			]}}}}`))
		}
	}))
	defer srv.Close()

	p := NewWikimediaProvider(srv.Client(), srv.URL)
	got, err := p.Find(context.Background(), &types.Business{Name: "Acme"})
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("48px image must be rejected, got %+v", got)
	}
}

func TestLogoCDNFind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/acme.example" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(bytes.Repeat([]byte{0x89}, 2048))
	}))
	defer srv.Close()

	p := NewLogoCDNProvider(srv.Client(), srv.URL)

	got, err := p.Find(context.Background(), &types.Business{Name: "Acme", Website: "https://www.acme.example/about"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Format != types.FormatPNG {
		t.Fatalf("candidates: %+v", got)
	}

	// No website, no probe.
	got, err = p.Find(context.Background(), &types.Business{Name: "No Site"})
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("businesses without websites yield nothing")
	}
}

func TestPlaceholderAlwaysSucceeds(t *testing.T) {
	p := NewPlaceholderProvider("")
	got, err := p.Find(context.Background(), &types.Business{Name: "Anything"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Confidence != 0.1 {
		t.Errorf("placeholder confidence = %v, want 0.1", got[0].Confidence)
	}
}

type fakeStore struct {
	updated []*types.Business
	err     error
}

func (f *fakeStore) UpdateBusiness(b *types.Business) error {
	if f.err != nil {
		return f.err
	}
	f.updated = append(f.updated, b)
	return nil
}

type staticProvider struct {
	name       string
	candidates []types.ImageCandidate
	err        error
}

func (s *staticProvider) Name() string { return s.name }
func (s *staticProvider) Find(ctx context.Context, b *types.Business) ([]types.ImageCandidate, error) {
	return s.candidates, s.err
}

func TestEngineRunPersistsWinner(t *testing.T) {
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(bytes.Repeat([]byte{1}, 4096))
	}))
	defer imgSrv.Close()

	store := &fakeStore{}
	provider := &staticProvider{name: "static", candidates: []types.ImageCandidate{
		{URL: imgSrv.URL + "/logo.png", Width: 256, Height: 256, Format: types.FormatPNG, Confidence: 0.9},
	}}
	e := NewEngine([]Provider{provider}, store, 5*time.Second, 1024)

	b := &types.Business{ID: "b1", Name: "Acme"}
	stats, err := e.Run(context.Background(), []*types.Business{b})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Processed != 1 || stats.Downloaded != 1 || stats.Failed != 0 {
		t.Errorf("stats: %+v", stats)
	}
	if b.LogoURL == "" {
		t.Error("winner must land on the business record")
	}
	if len(store.updated) != 1 {
		t.Errorf("store updated %d times, want 1", len(store.updated))
	}
	if stats.SuccessRate() != 1 {
		t.Errorf("success rate = %v", stats.SuccessRate())
	}
}

func TestEngineMarksRetryOnFailure(t *testing.T) {
	store := &fakeStore{}
	provider := &staticProvider{name: "broken", err: errors.New("upstream down")}
	e := NewEngine([]Provider{provider}, store, 5*time.Second, 1024)
	e.retryCfg = retry.Config{MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	b := &types.Business{ID: "b1", Name: "Acme"}
	stats, err := e.Run(context.Background(), []*types.Business{b})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Failed != 1 || stats.Downloaded != 0 {
		t.Errorf("stats: %+v", stats)
	}
	if !b.Attributes.GetBool(types.AttrImageRetry) {
		t.Error("failed business must carry the retry flag")
	}
}

func TestEngineRejectsNonImageDownload(t *testing.T) {
	htmlSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not found page pretending to be a logo</html>"))
	}))
	defer htmlSrv.Close()

	store := &fakeStore{}
	provider := &staticProvider{name: "static", candidates: []types.ImageCandidate{
		{URL: htmlSrv.URL + "/logo.png", Width: 256, Height: 256, Format: types.FormatPNG, Confidence: 0.9},
	}}
	e := NewEngine([]Provider{provider}, store, 5*time.Second, 10)

	b := &types.Business{ID: "b1", Name: "Acme"}
	stats, err := e.Run(context.Background(), []*types.Business{b})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Downloaded != 0 || stats.Failed != 1 {
		t.Errorf("stats: %+v", stats)
	}
	if b.LogoURL != "" {
		t.Error("invalid download must not be persisted")
	}
}
