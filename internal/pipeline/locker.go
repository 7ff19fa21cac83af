package pipeline

import "sync"

// locker tracks documents being processed in this process.
type locker struct {
	mu           sync.Mutex
	inProcessMap map[string]bool
}

func newLocker() *locker {
	return &locker{inProcessMap: make(map[string]bool)}
}

// TryLock marks id as in process. It returns false if it already was.
func (l *locker) TryLock(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inProcessMap[id] {
		return false
	}
	l.inProcessMap[id] = true
	return true
}

func (l *locker) Unlock(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inProcessMap, id)
}
