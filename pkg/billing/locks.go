package billing

import "sync"

// keyedMutex serializes operations per team. Entries are reference counted
// so the map does not grow with the number of teams ever seen.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[int64]*lockEntry)}
}

// lock acquires the team's mutex and returns the unlock function
func (k *keyedMutex) lock(teamID int64) func() {
	k.mu.Lock()
	entry, ok := k.entries[teamID]
	if !ok {
		entry = &lockEntry{}
		k.entries[teamID] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, teamID)
		}
		k.mu.Unlock()
	}
}
