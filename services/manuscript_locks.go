package services

import "sync"

// manuscriptLocks hands out one RWMutex per manuscript id. Entries are
// reference counted and dropped once nobody holds or waits on them.
type manuscriptLocks struct {
	mu    sync.Mutex
	locks map[string]*manuscriptLock
}

type manuscriptLock struct {
	mu   sync.RWMutex
	refs int
}

func newManuscriptLocks() *manuscriptLocks {
	return &manuscriptLocks{locks: make(map[string]*manuscriptLock)}
}

func (l *manuscriptLocks) acquire(id string) *manuscriptLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &manuscriptLock{}
		l.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (l *manuscriptLocks) drop(id string, entry *manuscriptLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, id)
	}
}

// Lock takes the exclusive lock for id and returns its release func.
func (l *manuscriptLocks) Lock(id string) (release func()) {
	entry := l.acquire(id)
	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.drop(id, entry)
	}
}

// RLock takes the shared lock for id and returns its release func.
func (l *manuscriptLocks) RLock(id string) (release func()) {
	entry := l.acquire(id)
	entry.mu.RLock()
	return func() {
		entry.mu.RUnlock()
		l.drop(id, entry)
	}
}

// size is the number of live entries; used by tests.
func (l *manuscriptLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
