package models

import "errors"

// Business errors surfaced to callers verbatim. All are rejected before
// any mutation; handlers map them to HTTP statuses with errors.Is.
var (
	// ErrStockInsufficient is returned when an order would drive a stock
	// item's total below zero. Placement re-checks sufficiency under the
	// same lock used for deduction rather than clamping.
	ErrStockInsufficient = errors.New("insufficient stock")

	// ErrInsufficientPoints is returned when a claim costs more points
	// than the customer's computed balance.
	ErrInsufficientPoints = errors.New("insufficient loyalty points")

	// ErrDailyLimitExceeded is returned when a customer has already
	// claimed a coupon its max_per_account_per_day times since midnight.
	ErrDailyLimitExceeded = errors.New("daily claim limit exceeded")

	// ErrCouponExpiredOrUsed is returned when a claim is redeemed twice
	// or applied after its expiry.
	ErrCouponExpiredOrUsed = errors.New("coupon claim expired or already used")

	// ErrOrderNotCancellable is returned when cancelling an order that is
	// already cancelled or delivered. The guard is what makes CancelOrder
	// safe under retries: stock is restored at most once.
	ErrOrderNotCancellable = errors.New("order cannot be cancelled")

	// ErrInvalidTransition is returned for status changes outside the
	// order state machine.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// ValidationError rejects malformed input (empty cart, unknown menu item,
// non-positive quantity) before any mutation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validationf builds a ValidationError from a plain message.
func Validationf(reason string) error {
	return &ValidationError{Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
