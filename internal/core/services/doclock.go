package services

import "sync"

// DocLocks hands out one RW lock per document ID. Entries are reference
// counted and dropped once no caller holds or waits on them.
type DocLocks struct {
	mu    sync.Mutex
	locks map[string]*docLock
}

type docLock struct {
	sync.RWMutex
	refs int
}

// NewDocLocks creates an empty lock table shared by the services that
// touch the same documents.
func NewDocLocks() *DocLocks {
	return &DocLocks{locks: make(map[string]*docLock)}
}

func (l *DocLocks) acquire(docID string) *docLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk, ok := l.locks[docID]
	if !ok {
		lk = &docLock{}
		l.locks[docID] = lk
	}
	lk.refs++
	return lk
}

func (l *DocLocks) release(docID string, lk *docLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, docID)
	}
}

// Lock takes the write lock for docID and returns its unlock function.
func (l *DocLocks) Lock(docID string) func() {
	lk := l.acquire(docID)
	lk.Lock()
	return func() {
		lk.Unlock()
		l.release(docID, lk)
	}
}

// RLock takes the read lock for docID and returns its unlock function.
func (l *DocLocks) RLock(docID string) func() {
	lk := l.acquire(docID)
	lk.RLock()
	return func() {
		lk.RUnlock()
		l.release(docID, lk)
	}
}

func (l *DocLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
