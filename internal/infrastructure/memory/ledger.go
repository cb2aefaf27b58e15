package memory

import (
	"context"
	"sync"
	"time"
)

// Ledger records consumed token ids until they expire.
type Ledger struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]time.Time), now: time.Now}
}

// Consume reports true the first time an id is presented within ttl.
func (l *Ledger) Consume(_ context.Context, id string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, exp := range l.seen {
		if now.After(exp) {
			delete(l.seen, k)
		}
	}

	if _, used := l.seen[id]; used {
		return false, nil
	}
	l.seen[id] = now.Add(ttl)
	return true, nil
}
