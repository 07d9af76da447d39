package policy

import "github.com/mrorigo/blanktrace/internal/config"

// State bundles the proxy's shared mutable runtime state: tracking,
// whitelist, and fingerprint rotation. One State is created at startup and
// shared by every connection goroutine (spec §4.6).
type State struct {
	Tracking    *Tracking
	Whitelist   *Whitelist
	Fingerprint *Fingerprint
}

// Seed is the data loaded from storage at startup used to populate State.
type Seed struct {
	Tracking  map[string]DomainEntry
	Whitelist map[string]string
}

// NewState builds State from a storage seed and the resolved configuration.
func NewState(seed Seed, cfg config.Config) *State {
	return &State{
		Tracking:    NewTracking(seed.Tracking),
		Whitelist:   NewWhitelist(seed.Whitelist),
		Fingerprint: NewFingerprint(cfg.Fingerprint.RotationMode, cfg.Fingerprint.RotationIntervalSeconds),
	}
}

// AutoBlocked reports whether host has been auto-blocked by hit-count
// promotion, after applying the whitelist override: whitelisting always
// wins over the tracking auto-block flag (spec §4.5 item 1, §8.6's
// tie-break rule). Static block_patterns matching is evaluated separately
// by internal/rewrite, which holds the compiled regexes.
func (s *State) AutoBlocked(host string) bool {
	if s.Whitelist.Contains(host) {
		return false
	}
	return s.Tracking.IsBlocked(host)
}
