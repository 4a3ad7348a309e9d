package models

import "time"

// StockItem is the authoritative count of one physical supply, tracked at
// two locations: the reserve site (back storage) and the active site
// (point of sale). Name is the unique business key used by menu
// requirements; quantities never go below zero.
type StockItem struct {
	ID              string    `json:"stock_item_id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Category        string    `json:"category" db:"category"`
	ReserveQuantity int       `json:"reserve_quantity" db:"reserve_quantity"`
	ActiveQuantity  int       `json:"active_quantity" db:"active_quantity"`
	SignedReserveBy string    `json:"signed_reserve_by,omitempty" db:"signed_reserve_by"`
	SignedActiveBy  string    `json:"signed_active_by,omitempty" db:"signed_active_by"`
	Supplier        string    `json:"supplier,omitempty" db:"supplier"`
	Notes           string    `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// TotalQuantity is the sellable stock view: both sites summed, matching
// the staff-facing stock screen.
func (s *StockItem) TotalQuantity() int {
	return s.ReserveQuantity + s.ActiveQuantity
}

// StockMovement records the exact per-site delta applied to one stock item
// on behalf of one order. Cancellation replays the mirror of these rows,
// so restoration returns each site to its pre-order value regardless of
// how the deduction was split.
type StockMovement struct {
	ID            string    `json:"movement_id" db:"id"`
	OrderID       string    `json:"order_id" db:"order_id"`
	StockItemName string    `json:"stock_item_name" db:"stock_item_name"`
	DeltaReserve  int       `json:"delta_reserve" db:"delta_reserve"`
	DeltaActive   int       `json:"delta_active" db:"delta_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
