package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"brasserie/models"
	"brasserie/pkg/database"
	"brasserie/pkg/logger"
)

type CouponRepositoryInterface interface {
	GetCouponByID(id string) (*models.Coupon, error)
	ListCoupons() ([]*models.Coupon, error)
	CreateCoupon(coupon *models.Coupon) error
	GetClaimByID(id string) (*models.CouponClaim, error)
	InsertClaim(claim *models.CouponClaim) error
	CountClaimsSince(customerID, couponID string, since time.Time) (int, error)
	MarkClaimUsedTx(tx *sql.Tx, claimID, orderID string, now time.Time) error
	ListClaimsByCustomer(customerID string) ([]*models.CouponClaim, error)
	PointsCommitted(customerID string) (int, error)
}

type CouponRepository struct {
	logger *logger.Logger
	db     *database.DB
}

func NewCouponRepository(logger *logger.Logger, db *database.DB) *CouponRepository {
	return &CouponRepository{
		logger: logger.WithComponent("coupon_repository"),
		db:     db,
	}
}

const couponColumns = `id, name, type, value, points_cost, duration_hours,
	max_per_account_per_day, is_active, created_at`

func scanCoupon(row interface{ Scan(...interface{}) error }) (*models.Coupon, error) {
	coupon := &models.Coupon{}
	var value []byte
	err := row.Scan(
		&coupon.ID,
		&coupon.Name,
		&coupon.Type,
		&value,
		&coupon.PointsCost,
		&coupon.DurationHours,
		&coupon.MaxPerAccountPerDay,
		&coupon.IsActive,
		&coupon.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	coupon.Value = value
	return coupon, nil
}

// GetCouponByID retrieves a coupon by ID
func (r *CouponRepository) GetCouponByID(id string) (*models.Coupon, error) {
	r.logger.Debug("Retrieving coupon from database", "coupon_id", id)

	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	coupon, err := scanCoupon(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Coupon not found", "coupon_id", id)
			return nil, fmt.Errorf("coupon with id %s not found", id)
		}
		r.logger.Error("Failed to retrieve coupon", "error", err, "coupon_id", id)
		return nil, fmt.Errorf("failed to retrieve coupon: %v", err)
	}

	return coupon, nil
}

// ListCoupons retrieves all coupons
func (r *CouponRepository) ListCoupons() ([]*models.Coupon, error) {
	r.logger.Debug("Retrieving all coupons from database")

	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY name`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("Failed to query coupons", "error", err)
		return nil, fmt.Errorf("failed to query coupons: %v", err)
	}
	defer rows.Close()

	var coupons []*models.Coupon
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			r.logger.Error("Failed to scan coupon", "error", err)
			return nil, fmt.Errorf("failed to scan coupon: %v", err)
		}
		coupons = append(coupons, coupon)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupon rows: %v", err)
	}

	r.logger.Debug("Retrieved all coupons", "count", len(coupons))
	return coupons, nil
}

// CreateCoupon inserts a coupon definition
func (r *CouponRepository) CreateCoupon(coupon *models.Coupon) error {
	r.logger.Debug("Adding new coupon", "name", coupon.Name, "type", coupon.Type)

	if err := r.validateCoupon(coupon); err != nil {
		r.logger.Error("Failed to validate coupon", "error", err, "name", coupon.Name)
		return err
	}

	query := `
		INSERT INTO coupons (name, type, value, points_cost, duration_hours, max_per_account_per_day, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(query,
		coupon.Name, coupon.Type, []byte(coupon.Value), coupon.PointsCost,
		coupon.DurationHours, coupon.MaxPerAccountPerDay, coupon.IsActive,
	).Scan(&coupon.ID, &coupon.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to add coupon", "error", err, "name", coupon.Name)
		return fmt.Errorf("failed to add coupon: %v", err)
	}

	r.logger.Info("Added new coupon", "coupon_id", coupon.ID, "name", coupon.Name)
	return nil
}

const claimColumns = `id, customer_id, coupon_id, claimed_at, expires_at, is_used, used_at, order_id`

func scanClaim(row interface{ Scan(...interface{}) error }) (*models.CouponClaim, error) {
	claim := &models.CouponClaim{}
	err := row.Scan(
		&claim.ID,
		&claim.CustomerID,
		&claim.CouponID,
		&claim.ClaimedAt,
		&claim.ExpiresAt,
		&claim.IsUsed,
		&claim.UsedAt,
		&claim.OrderID,
	)
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// GetClaimByID retrieves a coupon claim by ID
func (r *CouponRepository) GetClaimByID(id string) (*models.CouponClaim, error) {
	r.logger.Debug("Retrieving coupon claim from database", "claim_id", id)

	query := `SELECT ` + claimColumns + ` FROM coupon_claims WHERE id = $1`

	claim, err := scanClaim(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Coupon claim not found", "claim_id", id)
			return nil, fmt.Errorf("coupon claim with id %s not found", id)
		}
		r.logger.Error("Failed to retrieve coupon claim", "error", err, "claim_id", id)
		return nil, fmt.Errorf("failed to retrieve coupon claim: %v", err)
	}

	return claim, nil
}

// InsertClaim inserts a new claim row
func (r *CouponRepository) InsertClaim(claim *models.CouponClaim) error {
	r.logger.Debug("Inserting coupon claim",
		"claim_id", claim.ID,
		"customer_id", claim.CustomerID,
		"coupon_id", claim.CouponID)

	query := `
		INSERT INTO coupon_claims (id, customer_id, coupon_id, claimed_at, expires_at, is_used)
		VALUES ($1, $2, $3, $4, $5, FALSE)
	`

	_, err := r.db.Exec(query, claim.ID, claim.CustomerID, claim.CouponID, claim.ClaimedAt, claim.ExpiresAt)
	if err != nil {
		r.logger.Error("Failed to insert coupon claim", "error", err, "claim_id", claim.ID)
		return fmt.Errorf("failed to insert coupon claim: %v", err)
	}

	r.logger.Info("Inserted coupon claim",
		"claim_id", claim.ID,
		"customer_id", claim.CustomerID,
		"coupon_id", claim.CouponID,
		"expires_at", claim.ExpiresAt)
	return nil
}

// CountClaimsSince counts a customer's claims of one coupon created at or
// after the given instant (local midnight for the daily cap).
func (r *CouponRepository) CountClaimsSince(customerID, couponID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*)
		FROM coupon_claims
		WHERE customer_id = $1 AND coupon_id = $2 AND claimed_at >= $3
	`, customerID, couponID, since).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count coupon claims", "error", err, "customer_id", customerID, "coupon_id", couponID)
		return 0, fmt.Errorf("failed to count coupon claims: %v", err)
	}

	return count, nil
}

// MarkClaimUsedTx flips a claim to used exactly once, inside the caller's
// transaction. The conditional WHERE makes double-spend impossible: a
// second redemption, or a redemption after expiry, affects zero rows.
func (r *CouponRepository) MarkClaimUsedTx(tx *sql.Tx, claimID, orderID string, now time.Time) error {
	result, err := tx.Exec(`
		UPDATE coupon_claims
		SET is_used = TRUE, used_at = $1, order_id = $2
		WHERE id = $3 AND is_used = FALSE AND expires_at > $1
	`, now, orderID, claimID)
	if err != nil {
		r.logger.Error("Failed to mark coupon claim used", "error", err, "claim_id", claimID)
		return fmt.Errorf("failed to mark coupon claim used: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %v", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("Coupon claim not redeemable", "claim_id", claimID)
		return models.ErrCouponExpiredOrUsed
	}

	r.logger.Info("Redeemed coupon claim", "claim_id", claimID, "order_id", orderID)
	return nil
}

// ListClaimsByCustomer retrieves a customer's claims, newest first
func (r *CouponRepository) ListClaimsByCustomer(customerID string) ([]*models.CouponClaim, error) {
	r.logger.Debug("Retrieving coupon claims", "customer_id", customerID)

	query := `SELECT ` + claimColumns + ` FROM coupon_claims WHERE customer_id = $1 ORDER BY claimed_at DESC`

	rows, err := r.db.Query(query, customerID)
	if err != nil {
		r.logger.Error("Failed to query coupon claims", "error", err, "customer_id", customerID)
		return nil, fmt.Errorf("failed to query coupon claims: %v", err)
	}
	defer rows.Close()

	claims := []*models.CouponClaim{}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			r.logger.Error("Failed to scan coupon claim", "error", err)
			return nil, fmt.Errorf("failed to scan coupon claim: %v", err)
		}
		claims = append(claims, claim)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupon claim rows: %v", err)
	}

	return claims, nil
}

// PointsCommitted sums the points cost of every claim a customer has
// made, live or used. The loyalty balance is delivered-spend points minus
// this figure.
func (r *CouponRepository) PointsCommitted(customerID string) (int, error) {
	var points int
	err := r.db.QueryRow(`
		SELECT COALESCE(SUM(c.points_cost), 0)
		FROM coupon_claims cc
		JOIN coupons c ON c.id = cc.coupon_id
		WHERE cc.customer_id = $1
	`, customerID).Scan(&points)
	if err != nil {
		r.logger.Error("Failed to sum committed points", "error", err, "customer_id", customerID)
		return 0, fmt.Errorf("failed to sum committed points: %v", err)
	}

	return points, nil
}

func (r *CouponRepository) validateCoupon(coupon *models.Coupon) error {
	if coupon == nil {
		return models.Validationf("coupon cannot be nil")
	}
	if coupon.Name == "" {
		return models.Validationf("coupon name cannot be empty")
	}
	if !models.ValidCouponType(coupon.Type) {
		return models.Validationf(fmt.Sprintf("invalid coupon type: %s", coupon.Type))
	}
	if len(coupon.Value) == 0 {
		return models.Validationf("coupon value payload cannot be empty")
	}
	if coupon.PointsCost < 0 {
		return models.Validationf("points cost cannot be negative")
	}
	if coupon.DurationHours <= 0 {
		return models.Validationf("duration hours must be positive")
	}
	if coupon.MaxPerAccountPerDay <= 0 {
		return models.Validationf("max per account per day must be positive")
	}
	return nil
}
