// Package usage tracks per-source API consumption across pipeline runs.
//
// Counters persist to .votewallet/usage.json so operators can see how much
// of each source's budget the pipeline has burned without grepping logs.
package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"votewallet/internal/logging"
)

const usageFile = "usage.json"

// saveDebounce batches rapid record calls into one disk write.
const saveDebounce = 2 * time.Second

// SourceUsage accumulates request counters for one source.
type SourceUsage struct {
	Requests      int64     `json:"requests"`
	Failures      int64     `json:"failures"`
	BytesReceived int64     `json:"bytes_received"`
	LastRequest   time.Time `json:"last_request"`
}

type fileFormat struct {
	UpdatedAt time.Time              `json:"updated_at"`
	Sources   map[string]SourceUsage `json:"sources"`
}

// Tracker accumulates usage counters and autosaves them, debounced.
type Tracker struct {
	mu      sync.Mutex
	path    string
	sources map[string]SourceUsage
	dirty   bool
	timer   *time.Timer
}

// NewTracker loads existing counters from workspace/.votewallet/usage.json,
// starting fresh if the file is absent or unreadable.
func NewTracker(workspace string) *Tracker {
	t := &Tracker{
		path:    filepath.Join(workspace, ".votewallet", usageFile),
		sources: make(map[string]SourceUsage),
	}
	t.load()
	return t
}

func (t *Tracker) load() {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		logging.UsageDebug("ignoring corrupt usage file: %v", err)
		return
	}
	if f.Sources != nil {
		t.sources = f.Sources
	}
}

// RecordRequest counts one request against a source.
func (t *Tracker) RecordRequest(source string, bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.sources[source]
	u.Requests++
	u.BytesReceived += bytes
	u.LastRequest = time.Now().UTC()
	t.sources[source] = u
	t.markDirtyLocked()
}

// RecordFailure counts one failed request against a source.
func (t *Tracker) RecordFailure(source string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.sources[source]
	u.Requests++
	u.Failures++
	u.LastRequest = time.Now().UTC()
	t.sources[source] = u
	t.markDirtyLocked()
}

func (t *Tracker) markDirtyLocked() {
	t.dirty = true
	if t.timer == nil {
		t.timer = time.AfterFunc(saveDebounce, func() {
			if err := t.Save(); err != nil {
				logging.UsageDebug("autosave failed: %v", err)
			}
		})
	} else {
		t.timer.Reset(saveDebounce)
	}
}

// Save writes counters to disk if anything changed since the last save.
func (t *Tracker) Save() error {
	t.mu.Lock()
	if !t.dirty {
		t.mu.Unlock()
		return nil
	}
	f := fileFormat{
		UpdatedAt: time.Now().UTC(),
		Sources:   make(map[string]SourceUsage, len(t.sources)),
	}
	for k, v := range t.sources {
		f.Sources[k] = v
	}
	t.dirty = false
	path := t.path
	t.mu.Unlock()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal usage: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create usage directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write usage file: %w", err)
	}

	logging.UsageDebug("saved usage counters for %d sources", len(f.Sources))
	return nil
}

// Close flushes pending counters and stops the autosave timer.
func (t *Tracker) Close() error {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
	return t.Save()
}

// Stats returns a copy of the per-source counters.
func (t *Tracker) Stats() map[string]SourceUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]SourceUsage, len(t.sources))
	for k, v := range t.sources {
		out[k] = v
	}
	return out
}
