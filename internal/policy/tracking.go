// Package policy holds the proxy's shared mutable state: per-host hit
// counters, the whitelist, and fingerprint rotation state (spec §3/§4.6).
// All accessors are safe for concurrent use from many connection
// goroutines; every critical section except the Snapshot copies is O(1).
package policy

import "sync"

// DomainEntry mirrors the tracking_domains row shape (spec §6).
type DomainEntry struct {
	HitCount uint64
	Blocked  bool
	Category string
}

// Tracking is the persistent-in-memory mapping from host to hit/block state.
// hit_count is monotonically nondecreasing within a process lifetime.
type Tracking struct {
	mu      sync.Mutex
	entries map[string]*DomainEntry
}

// NewTracking returns an empty tracking map, optionally seeded from storage.
func NewTracking(seed map[string]DomainEntry) *Tracking {
	t := &Tracking{entries: make(map[string]*DomainEntry, len(seed))}
	for host, entry := range seed {
		e := entry
		t.entries[host] = &e
	}
	return t
}

// Hit increments host's counter and returns the new count. If autoBlock is
// true and the new count reaches threshold, the entry is marked blocked —
// this is the only place the hit-count threshold flips blocked to true
// (spec §4.5 item 1, §8.6); explicit blocks and cookies.auto_block_trackers
// go through SetBlocked instead.
func (t *Tracking) Hit(host string, autoBlock bool, threshold uint64) (newCount uint64, becameBlocked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[host]
	if !ok {
		entry = &DomainEntry{}
		t.entries[host] = entry
	}
	entry.HitCount++
	if autoBlock && threshold > 0 && entry.HitCount >= threshold && !entry.Blocked {
		entry.Blocked = true
		becameBlocked = true
	}
	return entry.HitCount, becameBlocked
}

// IsBlocked reports whether host's tracking entry is currently blocked.
// It does not consult the whitelist or the static blocklist/regex set —
// callers combine those separately (spec §4.5 item 1).
func (t *Tracking) IsBlocked(host string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[host]
	return ok && entry.Blocked
}

// SetCategory attaches a best-effort tracker category to host, leaving
// hit_count/blocked untouched. A no-op if host has no tracking entry yet.
func (t *Tracking) SetCategory(host, category string) {
	if category == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[host]
	if !ok {
		entry = &DomainEntry{}
		t.entries[host] = entry
	}
	if entry.Category == "" {
		entry.Category = category
	}
}

// SetBlocked force-sets host's blocked flag, e.g. when the block rewriter
// matches block_list/block_patterns or the cookie rewriter applies
// cookies.auto_block_trackers.
func (t *Tracking) SetBlocked(host string, blocked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[host]
	if !ok {
		entry = &DomainEntry{}
		t.entries[host] = entry
	}
	entry.Blocked = blocked
}

// Snapshot returns a copy of the current tracking state, e.g. for the
// "stats"/"domains" CLI reads.
func (t *Tracking) Snapshot() map[string]DomainEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]DomainEntry, len(t.entries))
	for host, entry := range t.entries {
		out[host] = *entry
	}
	return out
}
