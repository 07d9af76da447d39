package policy

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mrorigo/blanktrace/internal/config"
)

// userAgentPool and acceptLanguagePool are the values fingerprint rotation
// draws from. They are ordinary modern browser strings — plausible enough
// that a tracker can't distinguish a rotated value from a real install base.
var userAgentPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

var acceptLanguagePool = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.8,es;q=0.6",
	"de-DE,de;q=0.9,en;q=0.7",
	"fr-FR,fr;q=0.9,en;q=0.6",
}

// Fingerprint tracks the currently effective User-Agent/Accept-Language pair
// and rotates it according to config.RotationMode (spec §3/§4.5 item 2).
// Readers never block on each other; rotation is a short critical section.
type Fingerprint struct {
	mu sync.RWMutex

	mode     config.RotationMode
	interval time.Duration

	currentUA   string
	currentAL   string
	lastRotated time.Time

	rng *rand.Rand
}

// NewFingerprint builds fingerprint state with an initial value already
// generated — so rotation_mode=launch has something stable to return for
// the process lifetime (spec §8.3).
func NewFingerprint(mode config.RotationMode, intervalSeconds int) *Fingerprint {
	f := &Fingerprint{
		mode:     mode,
		interval: time.Duration(intervalSeconds) * time.Second,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	f.currentUA = f.pick(userAgentPool)
	f.currentAL = f.pick(acceptLanguagePool)
	f.lastRotated = time.Now()
	return f
}

func (f *Fingerprint) pick(pool []string) string {
	return pool[f.rng.Intn(len(pool))]
}

// Current returns the effective User-Agent/Accept-Language pair for this
// request, rotating first if rotation_mode requires it. rotated reports
// whether this call actually performed a fresh rotation — callers should
// only emit a fingerprint_rotations record when rotated is true (spec §4.5
// item 2, §9).
func (f *Fingerprint) Current() (userAgent, acceptLanguage string, rotated bool) {
	// Fast path: when no rotation is due, readers share the lock.
	f.mu.RLock()
	if f.mode == config.RotationLaunch || (f.mode == config.RotationInterval && time.Since(f.lastRotated) < f.interval) {
		userAgent, acceptLanguage = f.currentUA, f.currentAL
		f.mu.RUnlock()
		return userAgent, acceptLanguage, false
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	switch f.mode {
	case config.RotationEveryRequest:
		f.rotateLocked(now)
		rotated = true
	case config.RotationInterval:
		if now.Sub(f.lastRotated) >= f.interval {
			f.rotateLocked(now)
			rotated = true
		}
	case config.RotationLaunch:
		// stable for the process lifetime: no rotation after construction.
	}
	return f.currentUA, f.currentAL, rotated
}

func (f *Fingerprint) rotateLocked(now time.Time) {
	f.currentUA = f.pick(userAgentPool)
	f.currentAL = f.pick(acceptLanguagePool)
	f.lastRotated = now
}

// Mode exposes the configured rotation mode, e.g. for log attribution.
func (f *Fingerprint) Mode() string {
	return fmt.Sprint(f.mode)
}
