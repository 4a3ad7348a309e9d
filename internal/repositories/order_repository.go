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

type OrderRepositoryInterface interface {
	AddTx(tx *sql.Tx, order *models.Order) error
	GetByID(id string) (*models.Order, error)
	GetAll() ([]*models.Order, error)
	UpdateStatus(id string, status models.OrderStatus) error
	MarkCancelledTx(tx *sql.Tx, id string, now time.Time) (bool, error)
	DeliveredSpend(customerID string) (float64, error)
}

type OrderRepository struct {
	logger *logger.Logger
	db     *database.DB
}

func NewOrderRepository(logger *logger.Logger, db *database.DB) *OrderRepository {
	return &OrderRepository{
		logger: logger.WithComponent("order_repository"),
		db:     db,
	}
}

// AddTx inserts the order row and all of its lines inside the caller's
// transaction, so the order never exists without its lines. DisplayID is
// assigned by the database sequence and written back.
func (r *OrderRepository) AddTx(tx *sql.Tx, order *models.Order) error {
	r.logger.Debug("Inserting order", "order_id", order.ID, "customer_id", order.CustomerID)

	if err := r.validateOrder(order); err != nil {
		r.logger.Error("Failed to validate order", "error", err, "order_id", order.ID)
		return err
	}

	query := `
		INSERT INTO orders
			(id, customer_id, subtotal, discount_amount, total, coupon_claim_id,
			 status, order_date, estimated_delivery, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING display_id, created_at, updated_at
	`

	err := tx.QueryRow(query,
		order.ID, order.CustomerID, order.Subtotal, order.DiscountAmount,
		order.Total, order.CouponClaimID, order.Status, order.OrderDate,
		order.EstimatedDelivery, order.Notes,
	).Scan(&order.DisplayID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert order", "error", err, "order_id", order.ID)
		return fmt.Errorf("failed to insert order: %v", err)
	}

	lineQuery := `
		INSERT INTO order_lines (id, order_id, menu_item_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, line := range order.Lines {
		if _, err := tx.Exec(lineQuery, line.ID, order.ID, line.MenuItemID, line.Quantity, line.UnitPrice); err != nil {
			r.logger.Error("Failed to insert order line", "error", err, "order_id", order.ID, "menu_item_id", line.MenuItemID)
			return fmt.Errorf("failed to insert order line: %v", err)
		}
	}

	r.logger.Info("Inserted order",
		"order_id", order.ID,
		"display_id", order.DisplayID,
		"lines", len(order.Lines),
		"total", order.Total)
	return nil
}

const orderColumns = `id, display_id, customer_id, subtotal, discount_amount, total,
	coupon_claim_id, status, order_date, estimated_delivery, notes,
	cancelled_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.DisplayID,
		&order.CustomerID,
		&order.Subtotal,
		&order.DiscountAmount,
		&order.Total,
		&order.CouponClaimID,
		&order.Status,
		&order.OrderDate,
		&order.EstimatedDelivery,
		&order.Notes,
		&order.CancelledAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetByID retrieves an order with its lines
func (r *OrderRepository) GetByID(id string) (*models.Order, error) {
	r.logger.Debug("Retrieving order from database", "order_id", id)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Order not found", "order_id", id)
			return nil, fmt.Errorf("order with id %s not found", id)
		}
		r.logger.Error("Failed to retrieve order", "error", err, "order_id", id)
		return nil, fmt.Errorf("failed to retrieve order: %v", err)
	}

	lines, err := r.linesForOrder(id)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return order, nil
}

// GetAll retrieves all orders, newest first, with their lines
func (r *OrderRepository) GetAll() ([]*models.Order, error) {
	r.logger.Debug("Retrieving all orders from database")

	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY order_date DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("Failed to query orders", "error", err)
		return nil, fmt.Errorf("failed to query orders: %v", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error("Failed to scan order", "error", err)
			return nil, fmt.Errorf("failed to scan order: %v", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating order rows", "error", err)
		return nil, fmt.Errorf("error iterating order rows: %v", err)
	}

	for _, order := range orders {
		lines, err := r.linesForOrder(order.ID)
		if err != nil {
			return nil, err
		}
		order.Lines = lines
	}

	r.logger.Debug("Retrieved all orders", "count", len(orders))
	return orders, nil
}

// UpdateStatus persists a status transition. The service validates the
// transition table before calling; this is a plain column write.
func (r *OrderRepository) UpdateStatus(id string, status models.OrderStatus) error {
	r.logger.Debug("Updating order status", "order_id", id, "status", status)

	result, err := r.db.Exec(
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		r.logger.Error("Failed to update order status", "error", err, "order_id", id)
		return fmt.Errorf("failed to update order status: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %v", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("Attempted to update status of non-existent order", "order_id", id)
		return fmt.Errorf("order with id %s not found", id)
	}

	r.logger.Info("Updated order status", "order_id", id, "status", status)
	return nil
}

// MarkCancelledTx flips an order to cancelled exactly once. The
// conditional WHERE is the idempotency guard: a second cancel, or a
// cancel of a delivered order, affects zero rows and returns false, and
// the caller must not restore stock.
func (r *OrderRepository) MarkCancelledTx(tx *sql.Tx, id string, now time.Time) (bool, error) {
	result, err := tx.Exec(`
		UPDATE orders
		SET status = $1, cancelled_at = $2, updated_at = now()
		WHERE id = $3
		  AND cancelled_at IS NULL
		  AND status NOT IN ($4, $5)
	`, models.StatusCancelled, now, id, models.StatusDelivered, models.StatusCancelled)
	if err != nil {
		r.logger.Error("Failed to mark order cancelled", "error", err, "order_id", id)
		return false, fmt.Errorf("failed to mark order cancelled: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %v", err)
	}

	return rowsAffected == 1, nil
}

// DeliveredSpend sums the totals of a customer's delivered orders, the
// base of the loyalty points projection.
func (r *OrderRepository) DeliveredSpend(customerID string) (float64, error) {
	r.logger.Debug("Computing delivered spend", "customer_id", customerID)

	var spend float64
	err := r.db.QueryRow(`
		SELECT COALESCE(SUM(total), 0)
		FROM orders
		WHERE customer_id = $1 AND status = $2
	`, customerID, models.StatusDelivered).Scan(&spend)
	if err != nil {
		r.logger.Error("Failed to compute delivered spend", "error", err, "customer_id", customerID)
		return 0, fmt.Errorf("failed to compute delivered spend: %v", err)
	}

	return spend, nil
}

func (r *OrderRepository) linesForOrder(orderID string) ([]models.OrderLine, error) {
	rows, err := r.db.Query(`
		SELECT id, order_id, menu_item_id, quantity, unit_price
		FROM order_lines
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		r.logger.Error("Failed to query order lines", "error", err, "order_id", orderID)
		return nil, fmt.Errorf("failed to query order lines: %v", err)
	}
	defer rows.Close()

	lines := []models.OrderLine{}
	for rows.Next() {
		var line models.OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.MenuItemID, &line.Quantity, &line.UnitPrice); err != nil {
			r.logger.Error("Failed to scan order line", "error", err, "order_id", orderID)
			return nil, fmt.Errorf("failed to scan order line: %v", err)
		}
		lines = append(lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order line rows: %v", err)
	}

	return lines, nil
}

func (r *OrderRepository) validateOrder(order *models.Order) error {
	if order == nil {
		return models.Validationf("order cannot be nil")
	}
	if order.ID == "" {
		return models.Validationf("order ID cannot be empty")
	}
	if order.CustomerID == "" {
		return models.Validationf("customer ID cannot be empty")
	}
	if len(order.Lines) == 0 {
		return models.Validationf("order must have at least one line")
	}

	for i, line := range order.Lines {
		if line.MenuItemID == "" {
			return models.Validationf(fmt.Sprintf("line %d: menu item ID cannot be empty", i+1))
		}
		if line.Quantity <= 0 {
			return models.Validationf(fmt.Sprintf("line %d: quantity must be positive", i+1))
		}
	}

	return nil
}
