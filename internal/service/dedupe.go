package service

import (
	"context"
	"sync"
	"time"
)

// ReportWindow remembers recently seen view-report identifiers so client
// retries of the same report do not double-count watch time. Entries expire
// after the window's TTL.
type ReportWindow struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
}

func NewReportWindow(ttl time.Duration) *ReportWindow {
	return &ReportWindow{
		ttl:  ttl,
		seen: make(map[string]time.Time),
	}
}

// FirstSeen records key and reports whether this is its first appearance
// within the window.
func (w *ReportWindow) FirstSeen(key string) bool {
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	if at, ok := w.seen[key]; ok && now.Sub(at) < w.ttl {
		return false
	}
	w.seen[key] = now
	return true
}

// Forget removes key so a later report with the same identifier is
// accepted again. Used when the merge a key was reserved for did not
// happen, so the client's retry is not mistaken for a duplicate.
func (w *ReportWindow) Forget(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.seen, key)
}

// Sweep drops expired entries on a fixed interval until ctx is done.
func (w *ReportWindow) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.prune(time.Now())
		}
	}
}

func (w *ReportWindow) prune(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, at := range w.seen {
		if now.Sub(at) >= w.ttl {
			delete(w.seen, key)
		}
	}
}

func (w *ReportWindow) size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}
