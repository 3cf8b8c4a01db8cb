package poller

import "sync"

// Deduplicator tracks post ids already processed so a post is handled at
// most once across polling cycles. The seen set grows for the life of the
// process unless a capacity bound is configured; at typical feed rates that
// is a few MB per month of uptime.
type Deduplicator struct {
	mu         sync.Mutex
	seen       map[string]struct{}
	order      []string // insertion order, tracked only when bounded
	maxEntries int
}

// NewDeduplicator creates a Deduplicator. maxEntries of 0 means unbounded;
// a positive value evicts the oldest ids once the set is full, which can
// re-admit a very old post if the feed resurfaces it.
func NewDeduplicator(maxEntries int) *Deduplicator {
	return &Deduplicator{
		seen:       make(map[string]struct{}),
		maxEntries: maxEntries,
	}
}

// IsNew reports whether the id has not been seen before, marking it seen in
// the same step. Check-and-set is atomic under concurrent callers.
func (d *Deduplicator) IsNew(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return false
	}

	if d.maxEntries > 0 {
		if len(d.order) >= d.maxEntries {
			oldest := d.order[0]
			d.order = d.order[1:]
			delete(d.seen, oldest)
		}
		d.order = append(d.order, id)
	}

	d.seen[id] = struct{}{}
	return true
}

// Len returns the number of ids currently tracked.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
