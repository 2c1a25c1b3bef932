package types

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Attributes is the open extension bag on a business record. It replaces the
// ad-hoc JSON blobs the directory accumulated with an explicit string map:
// arbitrary keys remain allowed, but known keys get typed accessors so
// callers never re-parse values inline.
type Attributes map[string]string

// Well-known attribute keys written by the pipeline.
const (
	AttrImageRetry    = "image_retry"    // "true" when image sourcing should retry next run
	AttrWikipediaPage = "wikipedia_page" // page title the wikipedia adapter resolved
	AttrOSMID         = "osm_id"         // OpenStreetMap element id
	AttrSocialTwitter = "social_twitter"
	AttrSocialFacebook = "social_facebook"
)

// Get returns the value for key and whether it was present.
func (a Attributes) Get(key string) (string, bool) {
	if a == nil {
		return "", false
	}
	v, ok := a[key]
	return v, ok
}

// GetBool interprets the value at key as a boolean; absent or unparsable
// values return false.
func (a Attributes) GetBool(key string) bool {
	v, ok := a.Get(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

// GetInt interprets the value at key as an integer; absent or unparsable
// values return 0.
func (a Attributes) GetInt(key string) int {
	v, ok := a.Get(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// Set stores a value, allocating the map if needed, and returns the map so
// callers holding a nil Attributes can reassign.
func (a Attributes) Set(key, value string) Attributes {
	if a == nil {
		a = make(Attributes)
	}
	a[key] = value
	return a
}

// SetBool stores a boolean value.
func (a Attributes) SetBool(key string, value bool) Attributes {
	return a.Set(key, strconv.FormatBool(value))
}

// Merge overlays other onto a copy of a; other's values win on conflict.
// Neither input is mutated.
func (a Attributes) Merge(other Attributes) Attributes {
	if len(a) == 0 && len(other) == 0 {
		return nil
	}
	out := make(Attributes, len(a)+len(other))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Keys returns the attribute keys in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalDB serializes the map for storage; empty maps become empty strings
// so the column stays NULL-ish and greppable.
func (a Attributes) MarshalDB() (string, error) {
	if len(a) == 0 {
		return "", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnmarshalDB deserializes a stored attribute column; empty input yields nil.
func UnmarshalDB(data string) (Attributes, error) {
	if data == "" {
		return nil, nil
	}
	var a Attributes
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, err
	}
	return a, nil
}
