package notification

import (
	"sync"
	"time"
)

// DefaultActivityLimit is the default number of activity entries kept.
const DefaultActivityLimit = 200

// Activity is one committed task mutation as seen by subscribers.
type Activity struct {
	Type       string    `json:"type"`
	TaskID     string    `json:"taskId"`
	Title      string    `json:"title,omitempty"`
	Version    int64     `json:"version"`
	ActorID    string    `json:"actorId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ActivityLog keeps the most recent activity entries in memory.
type ActivityLog struct {
	mu      sync.RWMutex
	entries []Activity
	limit   int
}

// NewActivityLog creates a log holding at most limit entries. A non-positive limit
// selects DefaultActivityLimit.
func NewActivityLog(limit int) *ActivityLog {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	return &ActivityLog{
		entries: make([]Activity, 0),
		limit:   limit,
	}
}

// Record appends a, dropping the oldest entries beyond the limit.
func (l *ActivityLog) Record(a Activity) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, a)
	if excess := len(l.entries) - l.limit; excess > 0 {
		l.entries = l.entries[excess:]
	}
}

// Recent returns up to n entries, newest first. A non-positive n returns all.
func (l *ActivityLog) Recent(n int) []Activity {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	result := make([]Activity, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, l.entries[i])
	}
	return result
}

// Len returns the number of entries currently held.
func (l *ActivityLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
