package flip

import (
	"encoding/json"
	"fmt"
	"sync"
)

// DefaultLedgerCapacity is used when no positive capacity is configured.
const DefaultLedgerCapacity = 10000

// Ledger is a fixed-capacity FIFO set of reported listing ids. Once full,
// each insert evicts the oldest insert. Safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	capacity int
	ring     []string
	head     int // index of the oldest id when full
	set      map[string]struct{}
}

// NewLedger returns an empty ledger holding at most capacity ids.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultLedgerCapacity
	}
	return &Ledger{
		capacity: capacity,
		ring:     make([]string, 0, capacity),
		set:      make(map[string]struct{}, capacity),
	}
}

// ShouldReport reports whether id has not been reported yet.
func (l *Ledger) ShouldReport(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, seen := l.set[id]
	return !seen
}

// MarkReported records id. Marking an id already present changes nothing,
// including its eviction order.
func (l *Ledger) MarkReported(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.insert(id)
}

func (l *Ledger) insert(id string) {
	if _, ok := l.set[id]; ok {
		return
	}
	if len(l.ring) < l.capacity {
		l.ring = append(l.ring, id)
		l.set[id] = struct{}{}
		return
	}
	delete(l.set, l.ring[l.head])
	l.ring[l.head] = id
	l.set[id] = struct{}{}
	l.head = (l.head + 1) % l.capacity
}

// Len returns the number of ids held.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ring)
}

// IDs returns the held ids oldest first.
func (l *Ledger) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ordered()
}

func (l *Ledger) ordered() []string {
	out := make([]string, 0, len(l.ring))
	out = append(out, l.ring[l.head:]...)
	out = append(out, l.ring[:l.head]...)
	return out
}

// Snapshot serializes the ledger as a JSON array in insertion order.
func (l *Ledger) Snapshot() ([]byte, error) {
	data, err := json.Marshal(l.IDs())
	if err != nil {
		return nil, fmt.Errorf("flip: ledger snapshot: %w", err)
	}
	return data, nil
}

// Load replays a snapshot, oldest first, on top of the current contents.
func (l *Ledger) Load(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("flip: ledger load: %w", err)
	}
	l.Seed(ids)
	return nil
}

// Seed marks ids in order.
func (l *Ledger) Seed(ids []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		l.insert(id)
	}
}
