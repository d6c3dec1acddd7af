package conversation

import "sync"

// Log is the ordered, append-only history of a single widget instance.
// It is never reordered or pruned and lives for the lifetime of its owner.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewLog() *Log {
	return &Log{entries: make([]Entry, 0, 16)}
}

// Append adds entries in order and returns the new version of the log.
// The version is the number of entries, which only ever grows.
func (l *Log) Append(entries ...Entry) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entries...)
	return len(l.entries)
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot returns a copy of the entries, oldest first.
func (l *Log) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	copied := make([]Entry, len(l.entries))
	copy(copied, l.entries)
	return copied
}

// Last returns the most recent entry matching keep, walking backwards.
func (l *Log) Last(keep func(Entry) bool) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if keep == nil || keep(l.entries[i]) {
			return l.entries[i], true
		}
	}
	return Entry{}, false
}
