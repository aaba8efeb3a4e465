package outbound

import (
	"sync"
	"time"
)

// dedupTracker collapses repeated bus publishes sharing a messageId within
// window into a single stored message (spec §4.H, invariant 7): the second
// caller observes the same (stream, sequence) as the first rather than
// triggering a second publish.
type dedupTracker struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]dedupEntry
}

type dedupEntry struct {
	ack     BusAck
	expires time.Time
}

func newDedupTracker(window time.Duration) *dedupTracker {
	return &dedupTracker{window: window, seen: make(map[string]dedupEntry)}
}

// Lookup returns a previous ack for messageID if it was recorded within the
// dedup window, pruning it if expired.
func (d *dedupTracker) Lookup(messageID string) (BusAck, bool) {
	if messageID == "" {
		return BusAck{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.seen[messageID]
	if !ok {
		return BusAck{}, false
	}
	if time.Now().After(entry.expires) {
		delete(d.seen, messageID)
		return BusAck{}, false
	}
	return entry.ack, true
}

// Remember records ack for messageID for the next window.
func (d *dedupTracker) Remember(messageID string, ack BusAck) {
	if messageID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[messageID] = dedupEntry{ack: ack, expires: time.Now().Add(d.window)}
}
