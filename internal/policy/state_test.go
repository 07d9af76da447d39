package policy

import (
	"testing"

	"github.com/mrorigo/blanktrace/internal/config"
)

func TestStateAutoBlockedHonoursWhitelist(t *testing.T) {
	cfg := config.Default()
	st := NewState(Seed{
		Tracking:  map[string]DomainEntry{"tracker.example": {HitCount: 30, Blocked: true}},
		Whitelist: map[string]string{"tracker.example": "user override"},
	}, cfg)

	if st.AutoBlocked("tracker.example") {
		t.Fatalf("whitelisted host must never be reported as auto-blocked")
	}
}

func TestStateAutoBlockedReflectsTracking(t *testing.T) {
	cfg := config.Default()
	st := NewState(Seed{
		Tracking: map[string]DomainEntry{"tracker.example": {HitCount: 30, Blocked: true}},
	}, cfg)

	if !st.AutoBlocked("tracker.example") {
		t.Fatalf("expected blocked tracking entry to be reported as auto-blocked")
	}
	if st.AutoBlocked("unknown.example") {
		t.Fatalf("unknown host must not be reported as auto-blocked")
	}
}

func TestStateSeedsFromStorage(t *testing.T) {
	cfg := config.Default()
	cfg.Fingerprint.RotationMode = config.RotationLaunch
	st := NewState(Seed{}, cfg)

	if st.Tracking == nil || st.Whitelist == nil || st.Fingerprint == nil {
		t.Fatalf("expected all sub-states to be initialized even with an empty seed")
	}
}
