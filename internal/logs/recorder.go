// Package logs keeps a bounded in-memory record of recent server log lines
// so they can be served back through the diagnostics surface.
package logs

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinical-meteor/checklist-manifesto/internal/core/ports"
)

const defaultCapacity = 500

// Recorder is a fixed-size ring of log entries. It plugs into zerolog as a
// hook; every emitted line is captured with its timestamp. Safe for
// concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []ports.LogEntry
	next    int
	full    bool
}

// NewRecorder creates a Recorder holding up to capacity entries. A
// non-positive capacity falls back to the default.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Recorder{entries: make([]ports.LogEntry, capacity)}
}

// Run implements zerolog.Hook.
func (r *Recorder) Run(_ *zerolog.Event, level zerolog.Level, message string) {
	if level == zerolog.NoLevel || message == "" {
		return
	}
	r.append(ports.LogEntry{Timestamp: time.Now().UTC(), Message: level.String() + ": " + message})
}

// Recent returns up to limit entries, oldest first.
func (r *Recorder) Recent(limit int) []ports.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.full {
		size = len(r.entries)
	}
	if limit > size {
		limit = size
	}
	if limit <= 0 {
		return []ports.LogEntry{}
	}

	out := make([]ports.LogEntry, 0, limit)
	start := r.next - limit
	if start < 0 {
		start += len(r.entries)
	}
	for i := 0; i < limit; i++ {
		out = append(out, r.entries[(start+i)%len(r.entries)])
	}
	return out
}

func (r *Recorder) append(entry ports.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = entry
	r.next++
	if r.next == len(r.entries) {
		r.next = 0
		r.full = true
	}
}
