package node

import (
	"github.com/wehubfusion/Fabula/pkg/story/field"
)

// InventoryAddNode adds one instance of an item to the inventory and falls
// through.
type InventoryAddNode struct {
	BaseNode
	Item *field.Field
}

// NewInventoryAdd creates an inventory add node.
func NewInventoryAdd() *InventoryAddNode {
	n := &InventoryAddNode{Item: field.NewIndex("item", field.KindItemIndex)}
	n.init(TypeInventoryAdd, colorInventory, 1, n.Item)
	return n
}

// Execute adds the item and follows the first output.
func (n *InventoryAddNode) Execute(h Host) *Output {
	h.Inventory().Add(n.Item.Int())
	return n.FirstOut()
}

// InventoryRemoveNode removes one matching item from the inventory and falls
// through.
type InventoryRemoveNode struct {
	BaseNode
	Item *field.Field
}

// NewInventoryRemove creates an inventory remove node.
func NewInventoryRemove() *InventoryRemoveNode {
	n := &InventoryRemoveNode{Item: field.NewIndex("item", field.KindItemIndex)}
	n.init(TypeInventoryRemove, colorInventory, 1, n.Item)
	return n
}

// Execute removes a matching item and follows the first output.
func (n *InventoryRemoveNode) Execute(h Host) *Output {
	h.Inventory().RemoveMatching(n.Item.Int())
	return n.FirstOut()
}

// InventoryExistsNode branches on item presence: output 0 when held, output
// 1 otherwise.
type InventoryExistsNode struct {
	BaseNode
	Item *field.Field
}

// NewInventoryExists creates an inventory presence branch node with two
// outputs.
func NewInventoryExists() *InventoryExistsNode {
	n := &InventoryExistsNode{Item: field.NewIndex("item", field.KindItemIndex)}
	n.init(TypeInventoryExists, colorInventory, 2, n.Item)
	return n
}

// Execute returns the matching branch.
func (n *InventoryExistsNode) Execute(h Host) *Output {
	if h.Inventory().Exists(n.Item.Int()) {
		return n.Out(0)
	}
	return n.Out(1)
}

// InventoryCountNode compares the held quantity of an item against a
// threshold: output 0 is the true branch, output 1 the false branch. An
// absent item counts as zero.
type InventoryCountNode struct {
	BaseNode
	Item  *field.Field
	Cond  *field.Field
	Count *field.Field
}

// NewInventoryCount creates an inventory count branch node with two outputs.
func NewInventoryCount() *InventoryCountNode {
	n := &InventoryCountNode{
		Item:  field.NewIndex("item", field.KindItemIndex),
		Cond:  field.NewCondition("condition"),
		Count: field.NewInt("count"),
	}
	n.init(TypeInventoryCount, colorInventory, 2, n.Item, n.Cond, n.Count)
	return n
}

// Execute compares the held quantity and returns the matching branch.
func (n *InventoryCountNode) Execute(h Host) *Output {
	held := h.Inventory().Count(n.Item.Int())
	if n.Cond.Operator().Compare(held, n.Count.Int()) {
		return n.Out(0)
	}
	return n.Out(1)
}
