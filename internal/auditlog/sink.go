package auditlog

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mrorigo/blanktrace/internal/store"
)

// Sink is the single-writer asynchronous log consumer (spec §4.7). Record
// is safe to call from any goroutine and never performs I/O itself; exactly
// one goroutine (started by Run) drains the channel and writes to SQLite.
type Sink struct {
	db     *store.Store
	ch     chan Entry
	done   chan struct{}
	logger *slog.Logger

	batchSize     int
	flushInterval time.Duration

	dropped atomic.Uint64
}

// NewSink creates a sink backed by db. bufferSize bounds the number of
// entries held in memory before Record starts dropping the oldest queued
// entry to make room for the newest (spec §4.7, §5).
func NewSink(db *store.Store, bufferSize int, logger *slog.Logger) *Sink {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		db:            db,
		ch:            make(chan Entry, bufferSize),
		done:          make(chan struct{}),
		logger:        logger,
		batchSize:     64,
		flushInterval: 250 * time.Millisecond,
	}
}

// Record enqueues e without blocking. If the buffer is full, the oldest
// queued entry is dropped to make room and the drop counter is incremented
// (drop-oldest-on-overflow, spec §4.7).
func (s *Sink) Record(e Entry) {
	select {
	case s.ch <- e:
		return
	default:
	}

	// Buffer is full: evict the oldest entry to make room for e.
	select {
	case <-s.ch:
	default:
	}
	s.dropped.Add(1)

	select {
	case s.ch <- e:
	default:
		// The consumer raced us and drained a slot first; nothing left to do.
	}
}

// Stats reports how many entries have been dropped due to buffer overflow
// since the sink was created.
func (s *Sink) Stats() (dropped uint64) {
	return s.dropped.Load()
}

// Run drains the channel until Close is called, batching writes into
// transactions of up to batchSize entries or every flushInterval, whichever
// comes first. Run blocks until the channel is closed and drained; call it
// in its own goroutine.
func (s *Sink) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, s.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.writeBatch(ctx, batch); err != nil {
			s.logger.Error("auditlog: batch write failed", "error", err, "count", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case e, ok := <-s.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, e)
			if len(batch) >= s.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Close stops accepting new entries' being drained further, signaling Run
// to flush the remaining batch and exit. It blocks until Run has returned.
func (s *Sink) Close() {
	close(s.ch)
	<-s.done
}

func (s *Sink) writeBatch(ctx context.Context, batch []Entry) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, e := range batch {
			var err error
			switch e.Kind {
			case KindRequest:
				err = s.db.InsertRequestLog(tx, e.Time, e.Request.Domain, e.Request.Path, e.Request.UserAgent, e.Request.ClientIP)
			case KindCookieTraffic:
				err = s.db.InsertCookieTraffic(tx, e.Time, e.CookieTraffic.Domain, e.CookieTraffic.Cookie, e.CookieTraffic.Blocked)
			case KindFingerprintRotation:
				err = s.db.InsertFingerprintRotation(tx, e.Time, e.FingerprintRotation.UserAgent, e.FingerprintRotation.AcceptLanguage, e.FingerprintRotation.Mode)
			case KindDomainUpdate:
				err = s.db.UpsertTracking(tx, e.DomainUpdate.Domain, e.DomainUpdate.HitCount, e.DomainUpdate.Blocked, e.DomainUpdate.Category)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}
