package cleanup

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrorigo/blanktrace/internal/config"
	"github.com/mrorigo/blanktrace/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "blanktrace.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSchedulerDisabledNeverPurges(t *testing.T) {
	db := openTestStore(t)
	old := time.Now().Add(-100 * 24 * time.Hour)
	if err := db.WithTx(context.Background(), func(tx *sql.Tx) error {
		return db.InsertRequestLog(tx, old, "old.test", "/", "ua", "1.1.1.1")
	}); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	sched := NewScheduler(db, config.CleanupPolicy{Enabled: false}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	sched.Run(ctx)

	rows, err := db.ExportRequestLog(context.Background())
	if err != nil {
		t.Fatalf("ExportRequestLog error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected disabled scheduler to leave rows untouched, got %d", len(rows))
	}
}

func TestSchedulerTickPurgesOldRows(t *testing.T) {
	db := openTestStore(t)
	old := time.Now().Add(-100 * 24 * time.Hour)
	recent := time.Now()
	if err := db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := db.InsertRequestLog(tx, old, "old.test", "/", "ua", "1.1.1.1"); err != nil {
			return err
		}
		return db.InsertRequestLog(tx, recent, "new.test", "/", "ua", "1.1.1.1")
	}); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	sched := NewScheduler(db, config.CleanupPolicy{Enabled: true, RetentionDays: 30, IntervalSeconds: 1}, nil)
	sched.tick(context.Background())

	rows, err := db.ExportRequestLog(context.Background())
	if err != nil {
		t.Fatalf("ExportRequestLog error = %v", err)
	}
	if len(rows) != 1 || rows[0].Domain != "new.test" {
		t.Fatalf("expected only the recent row to survive a tick, got %+v", rows)
	}
}
