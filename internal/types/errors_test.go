package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassifySentinelsTakePriority(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"rate limited", fmt.Errorf("%w: overpass said no", ErrRateLimited), KindRateLimited},
		{"source down", fmt.Errorf("%w: status 503", ErrSourceUnavailable), KindSourceUnavailable},
		{"validation", fmt.Errorf("%w: missing name", ErrValidationFailed), KindValidationFailed},
		{"persistence", fmt.Errorf("%w: insert failed", ErrPersistence), KindPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(tt.err)
			if ce.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", ce.Kind, tt.kind)
			}
			if !errors.Is(ce, tt.err) {
				t.Error("classified error must unwrap to the original")
			}
		})
	}
}

func TestClassifyStringFallback(t *testing.T) {
	tests := []struct {
		msg  string
		kind ErrorKind
	}{
		{"Get https://x: context deadline exceeded", KindSourceUnavailable},
		{"upstream returned 429 Too Many Requests", KindRateLimited},
		{"sqlite: database is locked", KindPersistence},
		{"something entirely novel", KindUnknown},
	}
	for _, tt := range tests {
		ce := Classify(errors.New(tt.msg))
		if ce.Kind != tt.kind {
			t.Errorf("Classify(%q).Kind = %v, want %v", tt.msg, ce.Kind, tt.kind)
		}
	}
}

func TestClassifyNil(t *testing.T) {
	if Classify(nil) != nil {
		t.Error("nil error must classify to nil")
	}
}

func TestReportStringPrefix(t *testing.T) {
	err := fmt.Errorf("%w: http 503", ErrSourceUnavailable)
	got := ReportString("overpass", err)
	if !strings.HasPrefix(got, "[source_unavailable] overpass:") {
		t.Errorf("report string = %q", got)
	}
}

func TestAttributesTypedAccessors(t *testing.T) {
	var a Attributes
	if _, ok := a.Get("x"); ok {
		t.Error("nil map must report absent")
	}

	a = a.SetBool(AttrImageRetry, true).Set(AttrOSMID, "node/42")
	if !a.GetBool(AttrImageRetry) {
		t.Error("bool round trip failed")
	}
	if v, _ := a.Get(AttrOSMID); v != "node/42" {
		t.Errorf("osm id = %q", v)
	}
	if a.GetInt("missing") != 0 {
		t.Error("missing int must be 0")
	}
}

func TestAttributesMergeOverlays(t *testing.T) {
	base := Attributes{"a": "1", "b": "2"}
	merged := base.Merge(Attributes{"b": "3", "c": "4"})

	if merged["a"] != "1" || merged["b"] != "3" || merged["c"] != "4" {
		t.Errorf("merge = %v", merged)
	}
	if base["b"] != "2" {
		t.Error("merge must not mutate the receiver")
	}
}
