package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadFileAppliesOverridesAndDefaults(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
listen_port: 9090
db_path: custom.db
cookies:
  block_all: true
blocking:
  block_patterns:
    - ".*ads.*"
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.ListenPort != 9090 {
		t.Fatalf("expected overridden listen_port, got %d", cfg.ListenPort)
	}
	if cfg.DBPath != "custom.db" {
		t.Fatalf("expected overridden db_path, got %s", cfg.DBPath)
	}
	if !cfg.Cookies.BlockAll {
		t.Fatalf("expected cookies.block_all override")
	}
	// Fields absent from the file keep their documented defaults.
	if cfg.Fingerprint.RotationMode != RotationLaunch {
		t.Fatalf("expected default rotation mode to survive merge, got %s", cfg.Fingerprint.RotationMode)
	}
	if !cfg.Cleanup.Enabled {
		t.Fatalf("expected default cleanup.enabled to survive merge")
	}
	if len(cfg.Blocking.CompiledPatterns) != 1 {
		t.Fatalf("expected 1 compiled block pattern, got %d", len(cfg.Blocking.CompiledPatterns))
	}
}

func TestLoadFileRejectsUnknownFields(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
listen_port: 9090
bogus_field: true
`)
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected error for unknown top-level field")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
