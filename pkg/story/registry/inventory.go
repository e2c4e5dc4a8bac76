package registry

import (
	"fmt"
	"sort"

	"github.com/wehubfusion/Fabula/pkg/errors"
)

// Inventory tracks held item quantities by item id.
type Inventory struct {
	counts map[int]int
}

// NewInventory creates an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{counts: make(map[int]int)}
}

// Add puts one instance of the item into the inventory.
func (inv *Inventory) Add(itemID int) {
	inv.counts[itemID]++
}

// RemoveMatching takes one instance of the item out of the inventory. A
// missing item is a no-op.
func (inv *Inventory) RemoveMatching(itemID int) {
	if inv.counts[itemID] <= 1 {
		delete(inv.counts, itemID)
		return
	}
	inv.counts[itemID]--
}

// Exists reports whether at least one instance of the item is held.
func (inv *Inventory) Exists(itemID int) bool {
	return inv.counts[itemID] > 0
}

// Count returns the held quantity of the item, zero when absent.
func (inv *Inventory) Count(itemID int) int {
	return inv.counts[itemID]
}

// Use consumes count instances of the item. Requesting more than held is a
// contract error: the inventory is left unchanged and an error is returned.
func (inv *Inventory) Use(itemID, count int) error {
	if count < 0 {
		return fmt.Errorf("use count must not be negative, got %d", count)
	}
	held := inv.counts[itemID]
	if count > held {
		return fmt.Errorf("%w: item %d held %d, requested %d", errors.ErrInsufficientQuantity, itemID, held, count)
	}
	if held == count {
		delete(inv.counts, itemID)
		return nil
	}
	inv.counts[itemID] = held - count
	return nil
}

// Items returns the held item ids in ascending order.
func (inv *Inventory) Items() []int {
	ids := make([]int, 0, len(inv.counts))
	for id := range inv.counts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Clear empties the inventory.
func (inv *Inventory) Clear() {
	inv.counts = make(map[int]int)
}
