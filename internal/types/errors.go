package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies pipeline errors for reporting and retry policy.
type ErrorKind int

const (
	// KindSourceUnavailable indicates an upstream non-2xx or timeout.
	KindSourceUnavailable ErrorKind = iota

	// KindRateLimited indicates the upstream throttled us and the retry
	// budget was exhausted.
	KindRateLimited

	// KindValidationFailed indicates a candidate record failed validation.
	KindValidationFailed

	// KindPersistence indicates a datastore write failure.
	KindPersistence

	// KindConfig indicates a configuration issue (run-fatal).
	KindConfig

	// KindUnknown is the fallback for unclassified errors.
	KindUnknown
)

// Prefix returns the bracketed display prefix for this kind, used on
// sync-report error strings so log rows stay greppable.
func (k ErrorKind) Prefix() string {
	prefixes := []string{
		"[source_unavailable]",
		"[rate_limited]",
		"[validation_failed]",
		"[persistence]",
		"[config]",
		"[error]",
	}
	if int(k) < len(prefixes) {
		return prefixes[k]
	}
	return "[error]"
}

// String returns the kind name.
func (k ErrorKind) String() string {
	names := []string{
		"source_unavailable",
		"rate_limited",
		"validation_failed",
		"persistence",
		"config",
		"unknown",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// Sentinel errors for the pipeline taxonomy. Adapters and engines wrap these
// with %w so callers can classify with errors.Is.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrRateLimited       = errors.New("rate limited")
	ErrValidationFailed  = errors.New("validation failed")
	ErrPersistence       = errors.New("persistence failure")
)

// ClassifiedError wraps an error with its pipeline classification.
type ClassifiedError struct {
	Original error
	Kind     ErrorKind
	Summary  string
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	return fmt.Sprintf("%s %s: %v", ce.Kind.Prefix(), ce.Summary, ce.Original)
}

// Unwrap returns the original error for errors.Is/As compatibility.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Original
}

// Classify analyzes an error and returns a classified version. Sentinel
// wrapping takes priority; string matching is the fallback for errors that
// cross a boundary without the sentinel (driver errors, net errors).
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	classified := &ClassifiedError{
		Original: err,
		Kind:     KindUnknown,
		Summary:  "unexpected error",
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		classified.Kind = KindRateLimited
		classified.Summary = "upstream rate limit"
		return classified
	case errors.Is(err, ErrSourceUnavailable):
		classified.Kind = KindSourceUnavailable
		classified.Summary = "upstream unavailable"
		return classified
	case errors.Is(err, ErrValidationFailed):
		classified.Kind = KindValidationFailed
		classified.Summary = "record failed validation"
		return classified
	case errors.Is(err, ErrPersistence):
		classified.Kind = KindPersistence
		classified.Summary = "datastore write failed"
		return classified
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case containsAny(errStr, "429", "too many requests", "rate limit", "quota"):
		classified.Kind = KindRateLimited
		classified.Summary = "upstream rate limit"
	case containsAny(errStr, "timeout", "deadline", "connection refused", "no such host", "unreachable", "503", "502"):
		classified.Kind = KindSourceUnavailable
		classified.Summary = "upstream unavailable"
	case containsAny(errStr, "sqlite", "database", "constraint", "locked"):
		classified.Kind = KindPersistence
		classified.Summary = "datastore write failed"
	case containsAny(errStr, "config", "api key not"):
		classified.Kind = KindConfig
		classified.Summary = "configuration issue"
	}

	return classified
}

// ReportString renders an error the way SyncResult carries it:
// "[kind] context: detail".
func ReportString(context string, err error) string {
	ce := Classify(err)
	if ce == nil {
		return ""
	}
	return fmt.Sprintf("%s %s: %v", ce.Kind.Prefix(), context, err)
}

// containsAny returns true if s contains any of the patterns.
func containsAny(s string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
