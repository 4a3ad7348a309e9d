package repositories

import (
	"database/sql"
	"fmt"

	"brasserie/models"
	"brasserie/pkg/database"
	"brasserie/pkg/logger"
)

type MovementRepositoryInterface interface {
	AddTx(tx *sql.Tx, movement *models.StockMovement) error
	ListByOrderTx(tx *sql.Tx, orderID string) ([]*models.StockMovement, error)
}

// MovementRepository journals the per-site stock deltas applied for each
// order. Cancellation replays the mirror of these rows, which is what
// makes restoration exact for any deduction split.
type MovementRepository struct {
	logger *logger.Logger
	db     *database.DB
}

func NewMovementRepository(logger *logger.Logger, db *database.DB) *MovementRepository {
	return &MovementRepository{
		logger: logger.WithComponent("movement_repository"),
		db:     db,
	}
}

// AddTx inserts one movement row inside the caller's transaction
func (r *MovementRepository) AddTx(tx *sql.Tx, movement *models.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, order_id, stock_item_name, delta_reserve, delta_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := tx.QueryRow(query,
		movement.ID, movement.OrderID, movement.StockItemName,
		movement.DeltaReserve, movement.DeltaActive,
	).Scan(&movement.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert stock movement",
			"error", err,
			"order_id", movement.OrderID,
			"stock_item_name", movement.StockItemName)
		return fmt.Errorf("failed to insert stock movement: %v", err)
	}

	r.logger.Debug("Recorded stock movement",
		"order_id", movement.OrderID,
		"stock_item_name", movement.StockItemName,
		"delta_reserve", movement.DeltaReserve,
		"delta_active", movement.DeltaActive)
	return nil
}

// ListByOrderTx retrieves every movement recorded for an order
func (r *MovementRepository) ListByOrderTx(tx *sql.Tx, orderID string) ([]*models.StockMovement, error) {
	rows, err := tx.Query(`
		SELECT id, order_id, stock_item_name, delta_reserve, delta_active, created_at
		FROM stock_movements
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		r.logger.Error("Failed to query stock movements", "error", err, "order_id", orderID)
		return nil, fmt.Errorf("failed to query stock movements: %v", err)
	}
	defer rows.Close()

	var movements []*models.StockMovement
	for rows.Next() {
		m := &models.StockMovement{}
		err := rows.Scan(&m.ID, &m.OrderID, &m.StockItemName, &m.DeltaReserve, &m.DeltaActive, &m.CreatedAt)
		if err != nil {
			r.logger.Error("Failed to scan stock movement", "error", err, "order_id", orderID)
			return nil, fmt.Errorf("failed to scan stock movement: %v", err)
		}
		movements = append(movements, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock movement rows: %v", err)
	}

	return movements, nil
}
