/*

The allocation table is the ordered registry of strategies. It owns the two
invariants the rest of the engine leans on: the active allocation sum never
exceeds 10000 bps, and the active order is stable (withdrawal sweeps iterate
it in activation order, so removal shifts instead of swapping).

The table is not internally synchronized; the vault engine serializes every
state-changing operation and holds its own lock around table access.

*/

package allocation

import (
	"errors"
	"fmt"

	"github.com/onevault-finance/onevault/internal/types"
	"github.com/onevault-finance/onevault/internal/utils"
)

// Error definitions for registry misuse. All of them leave the table unchanged.
var (
	ErrAlreadyCreated     = errors.New("strategy has already been created")
	ErrNotCreated         = errors.New("strategy has not been created")
	ErrAlreadyActive      = errors.New("strategy is already active")
	ErrNotActive          = errors.New("strategy is not active")
	ErrAllocationOverflow = errors.New("total allocation would exceed 10000 bps")
	ErrInvalidAllocation  = errors.New("allocation must be between 1 and 10000 bps")
)

// Table is the ordered strategy registry.
type Table struct {
	records  map[types.PositionKey]*types.StrategyRecord
	order    []types.PositionKey         // active keys in activation order
	index    map[types.PositionKey]int   // active key -> position in order
	totalBps uint32                      // running sum across active entries
}

// NewTable returns an empty registry.
func NewTable() *Table {
	return &Table{
		records: make(map[types.PositionKey]*types.StrategyRecord),
		index:   make(map[types.PositionKey]int),
	}
}

// Create registers a new strategy record. The record starts inactive with a
// zero allocation regardless of what the caller passed in.
func (t *Table) Create(rec types.StrategyRecord) error {
	if rec.Key == "" {
		return fmt.Errorf("%w: empty position key", ErrNotCreated)
	}
	if _, exists := t.records[rec.Key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyCreated, rec.Key)
	}
	rec.Created = true
	rec.Active = false
	rec.AllocationBps = 0
	t.records[rec.Key] = &rec
	return nil
}

// Activate marks a created strategy active with the given allocation and
// appends it to the active order.
func (t *Table) Activate(key types.PositionKey, bps uint32) error {
	rec, exists := t.records[key]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotCreated, key)
	}
	if rec.Active {
		return fmt.Errorf("%w: %s", ErrAlreadyActive, key)
	}
	if bps == 0 || bps > utils.MaxBps {
		return fmt.Errorf("%w: got %d", ErrInvalidAllocation, bps)
	}
	if t.totalBps+bps > utils.MaxBps {
		return fmt.Errorf("%w: %d + %d", ErrAllocationOverflow, t.totalBps, bps)
	}

	rec.Active = true
	rec.AllocationBps = bps
	t.index[key] = len(t.order)
	t.order = append(t.order, key)
	t.totalBps += bps
	return nil
}

// Deactivate zeroes a strategy's allocation and removes it from the active
// order. Remaining entries keep their relative order. The record itself is
// never deleted; it can be re-activated later.
func (t *Table) Deactivate(key types.PositionKey) error {
	rec, exists := t.records[key]
	if !exists || !rec.Active {
		return fmt.Errorf("%w: %s", ErrNotActive, key)
	}

	pos := t.index[key]
	t.order = append(t.order[:pos], t.order[pos+1:]...)
	delete(t.index, key)
	for i := pos; i < len(t.order); i++ {
		t.index[t.order[i]] = i
	}

	t.totalBps -= rec.AllocationBps
	rec.Active = false
	rec.AllocationBps = 0
	return nil
}

// TotalBps returns the running allocation sum across active strategies.
func (t *Table) TotalBps() uint32 {
	return t.totalBps
}

// Complete reports whether the active allocations sum to exactly 100%.
func (t *Table) Complete() bool {
	return t.totalBps == utils.MaxBps
}

// ActiveCount returns the number of active strategies.
func (t *Table) ActiveCount() int {
	return len(t.order)
}

// KeyAt returns the active strategy key at the given activation-order index.
func (t *Table) KeyAt(i int) (types.PositionKey, error) {
	if i < 0 || i >= len(t.order) {
		return "", fmt.Errorf("%w: index %d out of range", ErrNotActive, i)
	}
	return t.order[i], nil
}

// IndexOf returns the activation-order index of an active strategy.
func (t *Table) IndexOf(key types.PositionKey) (int, bool) {
	i, ok := t.index[key]
	return i, ok
}

// AllocationOf returns the allocation of a strategy, zero if inactive or unknown.
func (t *Table) AllocationOf(key types.PositionKey) uint32 {
	if rec, exists := t.records[key]; exists {
		return rec.AllocationBps
	}
	return 0
}

// IsActive reports whether the strategy is in the active set.
func (t *Table) IsActive(key types.PositionKey) bool {
	rec, exists := t.records[key]
	return exists && rec.Active
}

// HasBeenCreated reports whether a record exists for the key.
func (t *Table) HasBeenCreated(key types.PositionKey) bool {
	_, exists := t.records[key]
	return exists
}

// Record returns a copy of the strategy record for the key.
func (t *Table) Record(key types.PositionKey) (types.StrategyRecord, bool) {
	if rec, exists := t.records[key]; exists {
		return *rec, true
	}
	return types.StrategyRecord{}, false
}

// ActiveKeys returns the active keys in activation order.
func (t *Table) ActiveKeys() []types.PositionKey {
	keys := make([]types.PositionKey, len(t.order))
	copy(keys, t.order)
	return keys
}

// Records returns copies of every known record, active first in activation
// order, then inactive records in unspecified order.
func (t *Table) Records() []types.StrategyRecord {
	out := make([]types.StrategyRecord, 0, len(t.records))
	for _, key := range t.order {
		out = append(out, *t.records[key])
	}
	for key, rec := range t.records {
		if _, active := t.index[key]; !active {
			out = append(out, *rec)
		}
	}
	return out
}
