package api

import "sync"

// contractLocks serializes concurrent operations on the same contract so
// two simultaneous submissions cannot both pass the stage check. Distinct
// contracts proceed in parallel.
type contractLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newContractLocks() *contractLocks {
	return &contractLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for contractID and returns its unlock func.
func (l *contractLocks) acquire(contractID string) func() {
	l.mu.Lock()
	m, ok := l.locks[contractID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[contractID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
