package presence

import "sync"

// subjectLocks is an arena of per-subject mutexes: identifications for
// different subjects proceed in parallel while one subject's
// read-decide-append round trip stays serialized. Entries are reference
// counted and removed once the last holder releases, so the arena does
// not grow with the member directory.
type subjectLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (a *subjectLocks) lock(subjectID string) func() {
	a.mu.Lock()
	if a.entries == nil {
		a.entries = map[string]*lockEntry{}
	}
	entry, ok := a.entries[subjectID]
	if !ok {
		entry = &lockEntry{}
		a.entries[subjectID] = entry
	}
	entry.refs++
	a.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		a.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(a.entries, subjectID)
		}
		a.mu.Unlock()
	}
}
