package pipeline

import "sync"

// symbolLocks hands out one mutex per symbol so the duplicate check and the
// ledger write for a symbol are a critical section: no second alert for the
// same symbol can pass validation while the first is still in flight.
type symbolLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSymbolLocks() *symbolLocks {
	return &symbolLocks{locks: make(map[string]*sync.Mutex)}
}

func (s *symbolLocks) lock(symbol string) func() {
	s.mu.Lock()
	m, ok := s.locks[symbol]
	if !ok {
		m = &sync.Mutex{}
		s.locks[symbol] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}
