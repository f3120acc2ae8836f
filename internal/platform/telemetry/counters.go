// Package telemetry tracks process-wide event counts.
//
// Counters carry an explicit lifecycle: the composition root constructs one
// set, injects it into the components that record events, and owns reset.
// A nil *Counters is a safe no-op so callers never need nil checks.
package telemetry

import "sync/atomic"

// Event names a countable intake event.
type Event string

const (
	// EventSubmission counts every submission attempt.
	EventSubmission Event = "submission"
	// EventBlocked counts submissions rejected by moderation.
	EventBlocked Event = "blocked"
	// EventCreated counts submissions persisted as quests.
	EventCreated Event = "created"
	// EventFailed counts submissions that failed mid-pipeline.
	EventFailed Event = "failed"
)

// Counters accumulates event counts for the lifetime of the process.
type Counters struct {
	submissions atomic.Uint64
	blocked     atomic.Uint64
	created     atomic.Uint64
	failed      atomic.Uint64
}

// NewCounters returns a zeroed counter set.
func NewCounters() *Counters {
	return &Counters{}
}

// Add records one occurrence of the event. Unknown events are ignored.
func (c *Counters) Add(event Event) {
	if c == nil {
		return
	}
	switch event {
	case EventSubmission:
		c.submissions.Add(1)
	case EventBlocked:
		c.blocked.Add(1)
	case EventCreated:
		c.created.Add(1)
	case EventFailed:
		c.failed.Add(1)
	}
}

// Count returns the accumulated count for the event.
func (c *Counters) Count(event Event) uint64 {
	if c == nil {
		return 0
	}
	switch event {
	case EventSubmission:
		return c.submissions.Load()
	case EventBlocked:
		return c.blocked.Load()
	case EventCreated:
		return c.created.Load()
	case EventFailed:
		return c.failed.Load()
	}
	return 0
}

// Reset zeroes all counts. Only the owner of the counter set should call it.
func (c *Counters) Reset() {
	if c == nil {
		return
	}
	c.submissions.Store(0)
	c.blocked.Store(0)
	c.created.Store(0)
	c.failed.Store(0)
}
