package models

import "time"

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// orderTransitions encodes the order state machine. Delivered and
// cancelled are terminal; cancellation is the only transition that
// triggers stock restoration, which is why the coordinator routes it
// through CancelOrder rather than a plain status write.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

// ValidOrderStatus reports whether s is one of the known statuses.
func ValidOrderStatus(s OrderStatus) bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is created atomically with its lines and the matching stock
// deduction. Subtotal, DiscountAmount and CouponClaimID are persisted
// separately so the applied discount stays auditable; Total is always
// Subtotal - DiscountAmount.
type Order struct {
	ID                string      `json:"order_id" db:"id"`
	DisplayID         int64       `json:"display_id" db:"display_id"`
	CustomerID        string      `json:"customer_id" db:"customer_id"`
	Subtotal          float64     `json:"subtotal" db:"subtotal"`
	DiscountAmount    float64     `json:"discount_amount" db:"discount_amount"`
	Total             float64     `json:"total" db:"total"`
	CouponClaimID     *string     `json:"coupon_claim_id,omitempty" db:"coupon_claim_id"`
	Status            OrderStatus `json:"status" db:"status"`
	OrderDate         time.Time   `json:"order_date" db:"order_date"`
	EstimatedDelivery time.Time   `json:"estimated_delivery" db:"estimated_delivery"`
	Notes             string      `json:"notes,omitempty" db:"notes"`
	CancelledAt       *time.Time  `json:"cancelled_at,omitempty" db:"cancelled_at"`
	Lines             []OrderLine `json:"lines"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// OrderLine is one flattened cart line. Add-on and drink sub-lines are
// flattened into ordinary lines at insert time; UnitPrice is captured at
// order time so later menu edits do not rewrite history.
type OrderLine struct {
	ID         string  `json:"line_id" db:"id"`
	OrderID    string  `json:"order_id" db:"order_id"`
	MenuItemID string  `json:"menu_item_id" db:"menu_item_id"`
	Quantity   int     `json:"quantity" db:"quantity"`
	UnitPrice  float64 `json:"unit_price" db:"unit_price"`
}
