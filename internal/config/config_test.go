package config

import "testing"

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
	if cfg.Fingerprint.RotationMode != RotationLaunch {
		t.Fatalf("expected launch rotation default, got %s", cfg.Fingerprint.RotationMode)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.ListenPort = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for invalid listen_port")
	}
}

func TestValidateRejectsUnknownRotationMode(t *testing.T) {
	cfg := Default()
	cfg.Fingerprint.RotationMode = "whenever"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown rotation mode")
	}
}

func TestValidateRejectsIntervalWithoutSeconds(t *testing.T) {
	cfg := Default()
	cfg.Fingerprint.RotationMode = RotationInterval
	cfg.Fingerprint.RotationIntervalSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for interval rotation without seconds")
	}
}

func TestValidateCompilesBlockPatterns(t *testing.T) {
	cfg := Default()
	cfg.Blocking.BlockPatterns = []string{".*ads.*", "^tracker\\."}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Blocking.CompiledPatterns) != 2 {
		t.Fatalf("expected 2 compiled patterns, got %d", len(cfg.Blocking.CompiledPatterns))
	}
}

func TestValidateRejectsBadBlockPattern(t *testing.T) {
	cfg := Default()
	cfg.Blocking.BlockPatterns = []string{"(unterminated"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for invalid regex")
	}
}

func TestValidateRejectsAutoBlockWithoutThreshold(t *testing.T) {
	cfg := Default()
	cfg.Blocking.AutoBlock = true
	cfg.Blocking.AutoBlockThreshold = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for auto_block without threshold")
	}
}
