package alert

import (
	"sync"
	"time"
)

// ledgerKey identifies one suppressible issue. Zone granularity keeps a
// new issue in a different zone of the same field alertable while the
// first zone's alert is still active.
type ledgerKey struct {
	issueType IssueType
	fieldID   string
	zoneID    string
}

// ledgerEntry tracks one active suppression window.
type ledgerEntry struct {
	alertID    string
	issuedAt   time.Time
	expiresAt  time.Time
	suppressed int
}

// LedgerStats is a snapshot of ledger counters for logging and metrics.
type LedgerStats struct {
	Active     int
	Issued     int64
	Suppressed int64
	Expired    int64
}

// Ledger is the windowed deduplication store. An issue key moves from no
// entry to active on issuance and back to no entry when the window
// elapses; only the active state suppresses.
type Ledger struct {
	mu      sync.Mutex
	entries map[ledgerKey]*ledgerEntry
	window  time.Duration
	now     func() time.Time

	issued     int64
	suppressed int64
	expired    int64
}

// NewLedger creates a ledger with the given suppression window.
func NewLedger(window time.Duration) *Ledger {
	return &Ledger{
		entries: make(map[ledgerKey]*ledgerEntry),
		window:  window,
		now:     time.Now,
	}
}

// SetTimeProvider overrides the clock. Test hook.
func (l *Ledger) SetTimeProvider(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// ShouldIssue reports whether an alert for the key may be issued now. A
// true result does not reserve the key; call Record with the issued alert
// to open the suppression window.
func (l *Ledger) ShouldIssue(issueType IssueType, fieldID, zoneID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey{issueType: issueType, fieldID: fieldID, zoneID: zoneID}
	entry, ok := l.entries[key]
	if !ok {
		return true
	}
	if l.now().After(entry.expiresAt) {
		delete(l.entries, key)
		l.expired++
		return true
	}
	entry.suppressed++
	l.suppressed++
	return false
}

// Record opens the suppression window for an issued alert.
func (l *Ledger) Record(a *Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey{issueType: a.IssueType, fieldID: a.FieldID, zoneID: a.ZoneID}
	l.entries[key] = &ledgerEntry{
		alertID:   a.ID,
		issuedAt:  a.CreatedAt,
		expiresAt: a.CreatedAt.Add(l.window),
	}
	l.issued++
}

// Cleanup removes entries whose window has elapsed and returns how many
// were removed. Intended for a periodic sweep; ShouldIssue also expires
// lazily on lookup.
func (l *Ledger) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, entry := range l.entries {
		if now.After(entry.expiresAt) {
			delete(l.entries, key)
			removed++
		}
	}
	l.expired += int64(removed)
	return removed
}

// Stats returns a snapshot of the ledger counters.
func (l *Ledger) Stats() LedgerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LedgerStats{
		Active:     len(l.entries),
		Issued:     l.issued,
		Suppressed: l.suppressed,
		Expired:    l.expired,
	}
}
