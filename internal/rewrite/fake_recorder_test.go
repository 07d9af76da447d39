package rewrite

import (
	"sync"

	"github.com/mrorigo/blanktrace/internal/auditlog"
)

// fakeRecorder collects entries synchronously for assertions.
type fakeRecorder struct {
	mu      sync.Mutex
	entries []auditlog.Entry
}

func (f *fakeRecorder) Record(e auditlog.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
}

func (f *fakeRecorder) snapshot() []auditlog.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]auditlog.Entry, len(f.entries))
	copy(out, f.entries)
	return out
}
