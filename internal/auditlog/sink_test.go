package auditlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrorigo/blanktrace/internal/store"
)

func openTestSink(t *testing.T) (*Sink, *store.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blanktrace.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sink := NewSink(db, 16, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sink.Run(ctx)
	return sink, db
}

func TestSinkWritesRequestEntry(t *testing.T) {
	sink, db := openTestSink(t)

	sink.Record(RequestEntry(time.Now(), "example.com", "/", "test-agent", "127.0.0.1"))
	sink.Close()

	rows, err := db.ExportRequestLog(context.Background())
	if err != nil {
		t.Fatalf("ExportRequestLog error = %v", err)
	}
	if len(rows) != 1 || rows[0].Domain != "example.com" {
		t.Fatalf("expected one request_log row for example.com, got %+v", rows)
	}
}

func TestSinkWritesAllKinds(t *testing.T) {
	sink, db := openTestSink(t)

	now := time.Now()
	sink.Record(RequestEntry(now, "a.test", "/x", "ua", "1.1.1.1"))
	sink.Record(CookieTrafficEntryAt(now, "a.test", "session=***", true))
	sink.Record(FingerprintRotationEntryAt(now, "ua", "en-US", "every_request"))
	sink.Record(DomainUpdateEntryAt(now, "a.test", 3, false, "analytics"))
	sink.Close()

	stats, err := db.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary error = %v", err)
	}
	if stats.TotalRequests != 1 || stats.CookiesBlocked != 1 || stats.FingerprintRotations != 1 || stats.TotalDomains != 1 {
		t.Fatalf("unexpected stats after writing all entry kinds: %+v", stats)
	}
}

func TestSinkDropsOldestOnOverflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blanktrace.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sink := NewSink(db, 2, nil)
	// Never start Run: the channel stays full so we can exercise drop-oldest
	// without a race against the consumer draining it.
	for i := 0; i < 5; i++ {
		sink.Record(RequestEntry(time.Now(), "flood.test", "/", "ua", "1.1.1.1"))
	}
	if sink.Stats() == 0 {
		t.Fatalf("expected some entries to be dropped once the buffer filled")
	}
}
