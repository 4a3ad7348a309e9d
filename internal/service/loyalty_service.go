package service

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"brasserie/internal/repositories"
	"brasserie/models"
	"brasserie/pkg/logger"
	"brasserie/pkg/namedlock"
)

// Customers earn one loyalty point per ten currency units of delivered
// spend.
const pointsPerSpendUnit = 10

type LoyaltyServiceInterface interface {
	PointsBalance(customerID string) (int, error)
	ClaimCoupon(customerID, couponID string) (*models.CouponClaim, error)
	VerifyClaim(claimID, customerID string, now time.Time) (*models.CouponClaim, error)
	DiscountFor(claim *models.CouponClaim, cartTotal float64) (float64, error)
	RedeemTx(tx *sql.Tx, claimID, orderID string, now time.Time) error
	ListClaims(customerID string) ([]*models.CouponClaim, error)
	ListCoupons() ([]*models.Coupon, error)
	CreateCoupon(coupon *models.Coupon) error
}

// LoyaltyService runs the coupon economy. The points balance is never
// stored: it is derived on demand from delivered spend minus the points
// cost of every claim ever made, so no mutation can leave a stored
// balance out of sync with order history.
type LoyaltyService struct {
	logger     *logger.Logger
	couponRepo repositories.CouponRepositoryInterface
	orderRepo  repositories.OrderRepositoryInterface
	locks      *namedlock.Locker
	now        func() time.Time
}

func NewLoyaltyService(
	logger *logger.Logger,
	couponRepo repositories.CouponRepositoryInterface,
	orderRepo repositories.OrderRepositoryInterface,
	locks *namedlock.Locker,
) *LoyaltyService {
	return &LoyaltyService{
		logger:     logger.WithComponent("loyalty_service"),
		couponRepo: couponRepo,
		orderRepo:  orderRepo,
		locks:      locks,
		now:        time.Now,
	}
}

// PointsBalance computes a customer's spendable points:
// floor(deliveredSpend / 10) minus the points cost of all claims, live or
// used. Expired unused claims stay spent.
func (s *LoyaltyService) PointsBalance(customerID string) (int, error) {
	if customerID == "" {
		return 0, models.Validationf("customer ID cannot be empty")
	}

	spend, err := s.orderRepo.DeliveredSpend(customerID)
	if err != nil {
		return 0, err
	}

	committed, err := s.couponRepo.PointsCommitted(customerID)
	if err != nil {
		return 0, err
	}

	earned := int(decimal.NewFromFloat(spend).
		Div(decimal.NewFromInt(pointsPerSpendUnit)).
		Floor().IntPart())
	balance := earned - committed

	s.logger.Debug("Computed points balance",
		"customer_id", customerID,
		"delivered_spend", spend,
		"earned", earned,
		"committed", committed,
		"balance", balance)
	return balance, nil
}

// ClaimCoupon exchanges loyalty points for a time-limited coupon claim.
// Eligibility (balance and the per-day cap) and the insert are serialized
// per (customer, coupon, day) so concurrent claims cannot both pass the
// checks.
func (s *LoyaltyService) ClaimCoupon(customerID, couponID string) (*models.CouponClaim, error) {
	if customerID == "" {
		return nil, models.Validationf("customer ID cannot be empty")
	}
	if couponID == "" {
		return nil, models.Validationf("coupon ID cannot be empty")
	}

	coupon, err := s.couponRepo.GetCouponByID(couponID)
	if err != nil {
		return nil, err
	}
	if !coupon.IsActive {
		return nil, models.Validationf(fmt.Sprintf("coupon %s is not active", couponID))
	}

	now := s.now()
	day := now.Format("2006-01-02")
	lockKey := customerID + "|" + couponID + "|" + day

	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	balance, err := s.PointsBalance(customerID)
	if err != nil {
		return nil, err
	}
	if balance < coupon.PointsCost {
		s.logger.Warn("Claim rejected: insufficient points",
			"customer_id", customerID,
			"coupon_id", couponID,
			"balance", balance,
			"points_cost", coupon.PointsCost)
		return nil, models.ErrInsufficientPoints
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	claimsToday, err := s.couponRepo.CountClaimsSince(customerID, couponID, midnight)
	if err != nil {
		return nil, err
	}
	if claimsToday >= coupon.MaxPerAccountPerDay {
		s.logger.Warn("Claim rejected: daily limit reached",
			"customer_id", customerID,
			"coupon_id", couponID,
			"claims_today", claimsToday,
			"max_per_day", coupon.MaxPerAccountPerDay)
		return nil, models.ErrDailyLimitExceeded
	}

	claim := &models.CouponClaim{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		CouponID:   couponID,
		ClaimedAt:  now,
		ExpiresAt:  now.Add(time.Duration(coupon.DurationHours) * time.Hour),
	}

	if err := s.couponRepo.InsertClaim(claim); err != nil {
		return nil, err
	}

	s.logger.Info("Coupon claimed",
		"claim_id", claim.ID,
		"customer_id", customerID,
		"coupon_id", couponID,
		"points_cost", coupon.PointsCost,
		"expires_at", claim.ExpiresAt)
	return claim, nil
}

// VerifyClaim checks that a claim exists, belongs to the customer, and is
// still live (unused and unexpired) at the given instant.
func (s *LoyaltyService) VerifyClaim(claimID, customerID string, now time.Time) (*models.CouponClaim, error) {
	claim, err := s.couponRepo.GetClaimByID(claimID)
	if err != nil {
		return nil, err
	}
	if claim.CustomerID != customerID {
		s.logger.Warn("Claim does not belong to customer",
			"claim_id", claimID,
			"customer_id", customerID)
		return nil, models.Validationf("coupon claim does not belong to this customer")
	}
	if !claim.Live(now) {
		return nil, models.ErrCouponExpiredOrUsed
	}
	return claim, nil
}

// DiscountFor computes the discount a claim yields against a cart total.
// percent_off applies its percentage; min_order_discount applies a flat
// amount or percentage only once the cart reaches its threshold;
// free_item and bogo subtract the qualifying item's price. The result is
// rounded to cents and never exceeds the cart total.
func (s *LoyaltyService) DiscountFor(claim *models.CouponClaim, cartTotal float64) (float64, error) {
	coupon, err := s.couponRepo.GetCouponByID(claim.CouponID)
	if err != nil {
		return 0, err
	}

	total := decimal.NewFromFloat(cartTotal)
	var discount decimal.Decimal

	switch coupon.Type {
	case models.CouponPercentOff:
		v, err := coupon.PercentOff()
		if err != nil {
			return 0, err
		}
		discount = total.Mul(decimal.NewFromFloat(v.Percent)).Div(decimal.NewFromInt(100))

	case models.CouponMinOrderDiscount:
		v, err := coupon.MinOrderDiscount()
		if err != nil {
			return 0, err
		}
		if total.LessThan(decimal.NewFromFloat(v.MinTotal)) {
			return 0, nil
		}
		if v.Percent > 0 {
			discount = total.Mul(decimal.NewFromFloat(v.Percent)).Div(decimal.NewFromInt(100))
		} else {
			discount = decimal.NewFromFloat(v.Amount)
		}

	case models.CouponFreeItem, models.CouponBogo:
		v, err := coupon.ItemPrice()
		if err != nil {
			return 0, err
		}
		discount = decimal.NewFromFloat(v.ItemPrice)

	default:
		return 0, fmt.Errorf("unknown coupon type %q for coupon %s", coupon.Type, coupon.ID)
	}

	if discount.GreaterThan(total) {
		discount = total
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	result, _ := discount.Round(2).Float64()
	return result, nil
}

// RedeemTx marks a claim used for one order, inside the placement
// transaction. At most one redemption can ever succeed; a second attempt
// or a redemption after expiry fails with ErrCouponExpiredOrUsed.
func (s *LoyaltyService) RedeemTx(tx *sql.Tx, claimID, orderID string, now time.Time) error {
	return s.couponRepo.MarkClaimUsedTx(tx, claimID, orderID, now)
}

// ListClaims retrieves a customer's claims, newest first
func (s *LoyaltyService) ListClaims(customerID string) ([]*models.CouponClaim, error) {
	if customerID == "" {
		return nil, models.Validationf("customer ID cannot be empty")
	}
	return s.couponRepo.ListClaimsByCustomer(customerID)
}

// ListCoupons retrieves every coupon definition
func (s *LoyaltyService) ListCoupons() ([]*models.Coupon, error) {
	return s.couponRepo.ListCoupons()
}

// CreateCoupon adds a coupon definition after checking that its value
// payload decodes for its type.
func (s *LoyaltyService) CreateCoupon(coupon *models.Coupon) error {
	if coupon == nil {
		return models.Validationf("coupon cannot be nil")
	}

	switch coupon.Type {
	case models.CouponPercentOff:
		v, err := coupon.PercentOff()
		if err != nil {
			return models.Validationf(err.Error())
		}
		if v.Percent <= 0 || v.Percent > 100 {
			return models.Validationf("percent must be in (0, 100]")
		}
	case models.CouponMinOrderDiscount:
		v, err := coupon.MinOrderDiscount()
		if err != nil {
			return models.Validationf(err.Error())
		}
		if v.MinTotal <= 0 {
			return models.Validationf("min_total must be positive")
		}
		if v.Amount <= 0 && v.Percent <= 0 {
			return models.Validationf("min_order_discount needs an amount or a percent")
		}
	case models.CouponFreeItem, models.CouponBogo:
		v, err := coupon.ItemPrice()
		if err != nil {
			return models.Validationf(err.Error())
		}
		if v.ItemPrice <= 0 {
			return models.Validationf("item_price must be positive")
		}
	}

	return s.couponRepo.CreateCoupon(coupon)
}
