package solver

import (
	"sync"

	"github.com/rocketscienceinc/reversi-backend/internal/entity"
)

// DefaultTableSize - entry cap of a transposition table.
const DefaultTableSize = 10000

// Bound - how a stored score relates to the true minimax value of the position.
type Bound uint8

const (
	BoundExact Bound = iota
	// BoundLower - the search failed high, the true value is at least the score.
	BoundLower
	// BoundUpper - the search failed low, the true value is at most the score.
	BoundUpper
)

type tableKey struct {
	perspective entity.Player
	side        entity.Player
	depth       int
	board       string
}

type tableEntry struct {
	score int
	depth int
	bound Bound
	move  entity.Move
}

// Table - transposition table with a fixed entry cap. Once full it stops accepting new
// positions; a miss only costs a recomputation. Safe for use by concurrent searches.
type Table struct {
	mu       sync.RWMutex
	entries  map[tableKey]tableEntry
	capacity int
}

func NewTable(capacity int) *Table {
	if capacity <= 0 {
		capacity = DefaultTableSize
	}

	return &Table{
		entries:  make(map[tableKey]tableEntry),
		capacity: capacity,
	}
}

func (that *Table) lookup(key tableKey) (tableEntry, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	entry, ok := that.entries[key]

	return entry, ok
}

func (that *Table) store(key tableKey, entry tableEntry) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.entries[key]; !ok && len(that.entries) >= that.capacity {
		return
	}

	that.entries[key] = entry
}

// Len - number of stored positions.
func (that *Table) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.entries)
}

// Clear - drops every entry.
func (that *Table) Clear() {
	that.mu.Lock()
	defer that.mu.Unlock()

	clear(that.entries)
}

// usable - reports whether the entry settles the node for the window (alpha, beta).
func (that tableEntry) usable(depth, alpha, beta int) bool {
	if that.depth < depth {
		return false
	}

	switch that.bound {
	case BoundExact:
		return true
	case BoundLower:
		return that.score >= beta
	case BoundUpper:
		return that.score <= alpha
	default:
		return false
	}
}
