package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"brasserie/models"
	"brasserie/pkg/database"
	"brasserie/pkg/logger"

	"github.com/lib/pq"
)

type StockRepositoryInterface interface {
	GetAll() ([]*models.StockItem, error)
	GetByName(name string) (*models.StockItem, error)
	Create(item *models.StockItem) error
	Update(name string, item *models.StockItem) error
	GetForUpdateTx(tx *sql.Tx, name string) (*models.StockItem, error)
	AdjustTx(tx *sql.Tx, name string, deltaReserve, deltaActive int) (*models.StockItem, error)
}

type StockRepository struct {
	logger *logger.Logger
	db     *database.DB
}

func NewStockRepository(logger *logger.Logger, db *database.DB) *StockRepository {
	return &StockRepository{
		logger: logger.WithComponent("stock_repository"),
		db:     db,
	}
}

const stockColumns = `id, name, category, reserve_quantity, active_quantity,
	signed_reserve_by, signed_active_by, supplier, notes, created_at, updated_at`

func scanStockItem(row interface{ Scan(...interface{}) error }) (*models.StockItem, error) {
	item := &models.StockItem{}
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Category,
		&item.ReserveQuantity,
		&item.ActiveQuantity,
		&item.SignedReserveBy,
		&item.SignedActiveBy,
		&item.Supplier,
		&item.Notes,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetAll retrieves every stock item ordered by name
func (r *StockRepository) GetAll() ([]*models.StockItem, error) {
	r.logger.Debug("Retrieving all stock items from database")

	query := `SELECT ` + stockColumns + ` FROM stock_items ORDER BY name`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("Failed to query stock items", "error", err)
		return nil, fmt.Errorf("failed to query stock items: %v", err)
	}
	defer rows.Close()

	var items []*models.StockItem
	for rows.Next() {
		item, err := scanStockItem(rows)
		if err != nil {
			r.logger.Error("Failed to scan stock item", "error", err)
			return nil, fmt.Errorf("failed to scan stock item: %v", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating stock rows", "error", err)
		return nil, fmt.Errorf("error iterating stock rows: %v", err)
	}

	r.logger.Debug("Retrieved all stock items", "count", len(items))
	return items, nil
}

// GetByName retrieves a single stock item by its unique name
func (r *StockRepository) GetByName(name string) (*models.StockItem, error) {
	r.logger.Debug("Retrieving stock item from database", "name", name)

	query := `SELECT ` + stockColumns + ` FROM stock_items WHERE name = $1`

	item, err := scanStockItem(r.db.QueryRow(query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Stock item not found", "name", name)
			return nil, fmt.Errorf("stock item %q not found", name)
		}
		r.logger.Error("Failed to retrieve stock item", "error", err, "name", name)
		return nil, fmt.Errorf("failed to retrieve stock item: %v", err)
	}

	return item, nil
}

// Create adds a new stock item
func (r *StockRepository) Create(item *models.StockItem) error {
	r.logger.Debug("Adding new stock item to database", "name", item.Name)

	if err := r.validateStockItem(item); err != nil {
		r.logger.Error("Failed to validate stock item", "error", err, "name", item.Name)
		return err
	}

	query := `
		INSERT INTO stock_items
			(name, category, reserve_quantity, active_quantity,
			 signed_reserve_by, signed_active_by, supplier, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(query,
		item.Name, item.Category, item.ReserveQuantity, item.ActiveQuantity,
		item.SignedReserveBy, item.SignedActiveBy, item.Supplier, item.Notes,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Warn("Attempted to add duplicate stock item", "name", item.Name)
			return models.Validationf(fmt.Sprintf("stock item with name %s already exists", item.Name))
		}
		r.logger.Error("Failed to add stock item", "error", err, "name", item.Name)
		return fmt.Errorf("failed to add stock item: %v", err)
	}

	r.logger.Info("Added new stock item", "stock_item_id", item.ID, "name", item.Name)
	return nil
}

// Update rewrites a stock item's metadata and absolute quantities
func (r *StockRepository) Update(name string, item *models.StockItem) error {
	r.logger.Debug("Updating stock item in database", "name", name)

	if err := r.validateStockItem(item); err != nil {
		r.logger.Error("Failed to validate stock item", "error", err, "name", name)
		return fmt.Errorf("invalid stock item: %w", err)
	}

	query := `
		UPDATE stock_items
		SET category = $1, reserve_quantity = $2, active_quantity = $3,
		    signed_reserve_by = $4, signed_active_by = $5,
		    supplier = $6, notes = $7, updated_at = now()
		WHERE name = $8
	`

	result, err := r.db.Exec(query,
		item.Category, item.ReserveQuantity, item.ActiveQuantity,
		item.SignedReserveBy, item.SignedActiveBy, item.Supplier, item.Notes,
		name,
	)
	if err != nil {
		r.logger.Error("Failed to update stock item", "error", err, "name", name)
		return fmt.Errorf("failed to update stock item: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.logger.Error("Failed to get rows affected", "error", err, "name", name)
		return fmt.Errorf("failed to get rows affected: %v", err)
	}

	if rowsAffected == 0 {
		r.logger.Warn("Attempted to update non-existent stock item", "name", name)
		return fmt.Errorf("stock item %q not found", name)
	}

	r.logger.Info("Updated stock item", "name", name)
	return nil
}

// GetForUpdateTx retrieves a stock item with a FOR UPDATE row lock, so the
// caller can check sufficiency and then adjust under the same lock.
func (r *StockRepository) GetForUpdateTx(tx *sql.Tx, name string) (*models.StockItem, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_items WHERE name = $1 FOR UPDATE`

	item, err := scanStockItem(tx.QueryRow(query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Stock item not found", "name", name)
			return nil, fmt.Errorf("stock item %q not found", name)
		}
		r.logger.Error("Failed to lock stock item", "error", err, "name", name)
		return nil, fmt.Errorf("failed to lock stock item: %v", err)
	}

	return item, nil
}

// AdjustTx applies a delta to both site quantities inside the caller's
// transaction. The row is locked with FOR UPDATE for the whole
// read-modify-write, and each site clamps at zero rather than rejecting,
// so quantities can never go negative.
func (r *StockRepository) AdjustTx(tx *sql.Tx, name string, deltaReserve, deltaActive int) (*models.StockItem, error) {
	r.logger.Debug("Adjusting stock item",
		"name", name,
		"delta_reserve", deltaReserve,
		"delta_active", deltaActive)

	lockQuery := `SELECT ` + stockColumns + ` FROM stock_items WHERE name = $1 FOR UPDATE`

	item, err := scanStockItem(tx.QueryRow(lockQuery, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Stock item not found for adjustment", "name", name)
			return nil, fmt.Errorf("stock item %q not found", name)
		}
		r.logger.Error("Failed to lock stock item", "error", err, "name", name)
		return nil, fmt.Errorf("failed to lock stock item: %v", err)
	}

	item.ReserveQuantity += deltaReserve
	if item.ReserveQuantity < 0 {
		item.ReserveQuantity = 0
	}
	item.ActiveQuantity += deltaActive
	if item.ActiveQuantity < 0 {
		item.ActiveQuantity = 0
	}

	updateQuery := `
		UPDATE stock_items
		SET reserve_quantity = $1, active_quantity = $2, updated_at = now()
		WHERE name = $3
		RETURNING updated_at
	`

	if err := tx.QueryRow(updateQuery, item.ReserveQuantity, item.ActiveQuantity, name).Scan(&item.UpdatedAt); err != nil {
		r.logger.Error("Failed to persist stock adjustment", "error", err, "name", name)
		return nil, fmt.Errorf("failed to persist stock adjustment: %v", err)
	}

	r.logger.Info("Adjusted stock item",
		"name", name,
		"reserve_quantity", item.ReserveQuantity,
		"active_quantity", item.ActiveQuantity)
	return item, nil
}

func (r *StockRepository) validateStockItem(item *models.StockItem) error {
	if item == nil {
		return models.Validationf("stock item cannot be nil")
	}
	if item.Name == "" {
		return models.Validationf("stock item name cannot be empty")
	}
	if item.ReserveQuantity < 0 || item.ActiveQuantity < 0 {
		return models.Validationf("stock quantities cannot be negative")
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (class 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
