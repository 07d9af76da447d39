package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mrorigo/blanktrace/internal/store"
)

// writeConfigFile writes a minimal valid YAML config pointing db_path at a
// fresh temp-dir database and returns the config file's path.
func writeConfigFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "blanktrace.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	contents := fmt.Sprintf("db_path: %q\n", dbPath)
	if err := os.WriteFile(cfgPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return cfgPath
}

// execCmd runs the root command with args and captures stdout.
func execCmd(t *testing.T, args ...string) string {
	t.Helper()
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute(%v) error = %v, output: %s", args, err, out.String())
	}
	return out.String()
}

func TestRunValidateConfigOnly(t *testing.T) {
	cfgPath := writeConfigFile(t)
	out := execCmd(t, "--config", cfgPath, "run", "--validate-config")
	if !strings.Contains(out, "validated successfully") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestWhitelistAddAndRemove(t *testing.T) {
	cfgPath := writeConfigFile(t)

	execCmd(t, "--config", cfgPath, "whitelist", "add", "example.com", "--reason", "trusted partner")

	db := openConfiguredStore(t, cfgPath)
	entries, err := db.WhitelistEntries(context.Background())
	if err != nil {
		t.Fatalf("WhitelistEntries() error = %v", err)
	}
	if entries["example.com"] != "trusted partner" {
		t.Fatalf("expected whitelist entry, got %+v", entries)
	}
	db.Close()

	execCmd(t, "--config", cfgPath, "whitelist", "remove", "example.com")

	db = openConfiguredStore(t, cfgPath)
	defer db.Close()
	entries, err = db.WhitelistEntries(context.Background())
	if err != nil {
		t.Fatalf("WhitelistEntries() error = %v", err)
	}
	if _, ok := entries["example.com"]; ok {
		t.Fatalf("expected whitelist entry to be removed, got %+v", entries)
	}
}

func TestBlockAddAndRemove(t *testing.T) {
	cfgPath := writeConfigFile(t)

	execCmd(t, "--config", cfgPath, "block", "add", "tracker.example")

	db := openConfiguredStore(t, cfgPath)
	domains, err := db.Domains(context.Background())
	if err != nil {
		t.Fatalf("Domains() error = %v", err)
	}
	if len(domains) != 1 || !domains[0].Blocked {
		t.Fatalf("expected tracker.example to be blocked, got %+v", domains)
	}
	db.Close()

	execCmd(t, "--config", cfgPath, "block", "remove", "tracker.example")

	db = openConfiguredStore(t, cfgPath)
	defer db.Close()
	domains, err = db.Domains(context.Background())
	if err != nil {
		t.Fatalf("Domains() error = %v", err)
	}
	if len(domains) != 1 || domains[0].Blocked {
		t.Fatalf("expected tracker.example to be unblocked, got %+v", domains)
	}
}

func TestStatsAndDomainsReflectSeedData(t *testing.T) {
	cfgPath := writeConfigFile(t)
	execCmd(t, "--config", cfgPath, "block", "add", "tracker.example")

	statsOut := execCmd(t, "--config", cfgPath, "stats")
	if !strings.Contains(statsOut, "tracking domains blocked: 1") {
		t.Fatalf("unexpected stats output: %q", statsOut)
	}

	domainsOut := execCmd(t, "--config", cfgPath, "domains")
	if !strings.Contains(domainsOut, "tracker.example") {
		t.Fatalf("unexpected domains output: %q", domainsOut)
	}
}

func TestExportJSONAndCSV(t *testing.T) {
	cfgPath := writeConfigFile(t)
	seedRequestLog(t, cfgPath)

	jsonOut := execCmd(t, "--config", cfgPath, "export", "--format", "json")
	var rows []store.RequestLogRow
	if err := json.Unmarshal([]byte(jsonOut), &rows); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, output: %s", err, jsonOut)
	}
	if len(rows) != 1 || rows[0].Domain != "a.example" {
		t.Fatalf("unexpected export rows: %+v", rows)
	}

	csvOut := execCmd(t, "--config", cfgPath, "export", "--format", "csv")
	if !strings.Contains(csvOut, "a.example") || !strings.HasPrefix(csvOut, "domain,path,timestamp") {
		t.Fatalf("unexpected csv output: %q", csvOut)
	}
}

func seedRequestLog(t *testing.T, cfgPath string) {
	t.Helper()
	db := openConfiguredStore(t, cfgPath)
	defer db.Close()
	err := db.WithTx(context.Background(), func(tx *sql.Tx) error {
		return db.InsertRequestLog(tx, time.Now(), "a.example", "/", "test-agent", "127.0.0.1")
	})
	if err != nil {
		t.Fatalf("seed request log: %v", err)
	}
}

func openConfiguredStore(t *testing.T, cfgPath string) *store.Store {
	t.Helper()
	cfg, err := loadConfig(&rootFlags{configPath: cfgPath})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	return db
}
