package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type CouponType string

const (
	CouponFreeItem         CouponType = "free_item"
	CouponPercentOff       CouponType = "percent_off"
	CouponBogo             CouponType = "bogo"
	CouponMinOrderDiscount CouponType = "min_order_discount"
)

// ValidCouponType reports whether t is one of the known coupon types.
func ValidCouponType(t CouponType) bool {
	switch t {
	case CouponFreeItem, CouponPercentOff, CouponBogo, CouponMinOrderDiscount:
		return true
	default:
		return false
	}
}

// Coupon is a claimable offer. Value is a type-dependent JSON payload
// decoded through the typed helpers below.
type Coupon struct {
	ID                  string          `json:"coupon_id" db:"id"`
	Name                string          `json:"name" db:"name"`
	Type                CouponType      `json:"type" db:"type"`
	Value               json.RawMessage `json:"value" db:"value"`
	PointsCost          int             `json:"points_cost" db:"points_cost"`
	DurationHours       int             `json:"duration_hours" db:"duration_hours"`
	MaxPerAccountPerDay int             `json:"max_per_account_per_day" db:"max_per_account_per_day"`
	IsActive            bool            `json:"is_active" db:"is_active"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
}

// PercentOffValue is the payload for percent_off coupons.
type PercentOffValue struct {
	Percent float64 `json:"percent"`
}

// MinOrderDiscountValue is the payload for min_order_discount coupons.
// Either Amount (flat) or Percent applies once the cart total reaches
// MinTotal; below the threshold the discount is zero.
type MinOrderDiscountValue struct {
	MinTotal float64 `json:"min_total"`
	Amount   float64 `json:"amount,omitempty"`
	Percent  float64 `json:"percent,omitempty"`
}

// ItemPriceValue is the payload for free_item and bogo coupons: the
// qualifying item's price, applied as a flat subtraction.
type ItemPriceValue struct {
	ItemPrice float64 `json:"item_price"`
}

// PercentOff decodes the percent_off payload.
func (c *Coupon) PercentOff() (PercentOffValue, error) {
	var v PercentOffValue
	if err := json.Unmarshal(c.Value, &v); err != nil {
		return v, fmt.Errorf("invalid percent_off payload for coupon %s: %w", c.ID, err)
	}
	return v, nil
}

// MinOrderDiscount decodes the min_order_discount payload.
func (c *Coupon) MinOrderDiscount() (MinOrderDiscountValue, error) {
	var v MinOrderDiscountValue
	if err := json.Unmarshal(c.Value, &v); err != nil {
		return v, fmt.Errorf("invalid min_order_discount payload for coupon %s: %w", c.ID, err)
	}
	return v, nil
}

// ItemPrice decodes the free_item/bogo payload.
func (c *Coupon) ItemPrice() (ItemPriceValue, error) {
	var v ItemPriceValue
	if err := json.Unmarshal(c.Value, &v); err != nil {
		return v, fmt.Errorf("invalid item price payload for coupon %s: %w", c.ID, err)
	}
	return v, nil
}

// CouponClaim is a customer's redemption of loyalty points for one
// time-limited coupon instance. A live claim (not used, not expired) may
// be applied to exactly one order; IsUsed flips permanently at redemption.
type CouponClaim struct {
	ID         string     `json:"claim_id" db:"id"`
	CustomerID string     `json:"customer_id" db:"customer_id"`
	CouponID   string     `json:"coupon_id" db:"coupon_id"`
	ClaimedAt  time.Time  `json:"claimed_at" db:"claimed_at"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	IsUsed     bool       `json:"is_used" db:"is_used"`
	UsedAt     *time.Time `json:"used_at,omitempty" db:"used_at"`
	OrderID    *string    `json:"order_id,omitempty" db:"order_id"`
}

// Live reports whether the claim can still be applied to an order.
func (c *CouponClaim) Live(now time.Time) bool {
	return !c.IsUsed && now.Before(c.ExpiresAt)
}
