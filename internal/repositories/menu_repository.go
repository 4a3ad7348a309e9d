package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"brasserie/models"
	"brasserie/pkg/database"
	"brasserie/pkg/logger"
)

type MenuRepositoryInterface interface {
	GetAll() ([]*models.MenuItem, error)
	GetByID(id string) (*models.MenuItem, error)
	Create(item *models.MenuItem) error
	Update(id string, item *models.MenuItem) error
	Delete(id string) error
	SetAvailability(id string, available bool) error
}

type MenuRepository struct {
	logger *logger.Logger
	db     *database.DB
}

func NewMenuRepository(logger *logger.Logger, db *database.DB) *MenuRepository {
	return &MenuRepository{
		logger: logger.WithComponent("menu_repository"),
		db:     db,
	}
}

const menuSelect = `
	SELECT m.id, m.name, m.description, m.category, m.price,
	       m.admin_enabled, m.available, m.created_at, m.updated_at,
	       COALESCE(
	           json_agg(
	               json_build_object(
	                   'stock_item_name', mr.stock_item_name,
	                   'quantity_per_unit', mr.quantity_per_unit
	               )
	           ) FILTER (WHERE mr.stock_item_name IS NOT NULL), '[]'::json
	       ) AS requirements
	FROM menu_items m
	LEFT JOIN menu_item_requirements mr ON m.id = mr.menu_item_id
`

const menuGroupBy = `
	GROUP BY m.id, m.name, m.description, m.category, m.price,
	         m.admin_enabled, m.available, m.created_at, m.updated_at
`

func (r *MenuRepository) scanMenuItem(row interface{ Scan(...interface{}) error }) (*models.MenuItem, error) {
	item := &models.MenuItem{}
	var requirementsJSON string

	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Category,
		&item.Price,
		&item.AdminEnabled,
		&item.Available,
		&item.CreatedAt,
		&item.UpdatedAt,
		&requirementsJSON,
	)
	if err != nil {
		return nil, err
	}

	if err := r.parseRequirements(requirementsJSON, &item.Requirements); err != nil {
		return nil, fmt.Errorf("failed to parse requirements for item %s: %v", item.ID, err)
	}

	return item, nil
}

// GetAll retrieves all menu items with their stock requirements
func (r *MenuRepository) GetAll() ([]*models.MenuItem, error) {
	r.logger.Debug("Retrieving all menu items from database")

	query := menuSelect + menuGroupBy + ` ORDER BY m.name`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("Failed to query menu items", "error", err)
		return nil, fmt.Errorf("failed to query menu items: %v", err)
	}
	defer rows.Close()

	items := []*models.MenuItem{}
	for rows.Next() {
		item, err := r.scanMenuItem(rows)
		if err != nil {
			r.logger.Error("Failed to scan menu item", "error", err)
			return nil, fmt.Errorf("failed to scan menu item: %v", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating menu rows", "error", err)
		return nil, fmt.Errorf("error iterating menu rows: %v", err)
	}

	r.logger.Debug("Retrieved all menu items", "count", len(items))
	return items, nil
}

// GetByID retrieves a menu item by ID
func (r *MenuRepository) GetByID(id string) (*models.MenuItem, error) {
	r.logger.Debug("Retrieving menu item from database", "menu_item_id", id)

	query := menuSelect + ` WHERE m.id = $1` + menuGroupBy

	item, err := r.scanMenuItem(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Menu item not found", "menu_item_id", id)
			return nil, fmt.Errorf("menu item with id %s not found", id)
		}
		r.logger.Error("Failed to retrieve menu item", "error", err, "menu_item_id", id)
		return nil, fmt.Errorf("failed to retrieve menu item: %v", err)
	}

	return item, nil
}

// Create inserts a menu item together with its requirement rows
func (r *MenuRepository) Create(item *models.MenuItem) error {
	r.logger.Debug("Adding new menu item", "name", item.Name)

	if err := r.validateMenuItem(item); err != nil {
		r.logger.Error("Failed to validate menu item", "error", err, "name", item.Name)
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO menu_items (name, description, category, price, admin_enabled, available)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRow(query,
		item.Name, item.Description, item.Category, item.Price,
		item.AdminEnabled, item.Available,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Warn("Attempted to add duplicate menu item", "name", item.Name)
			return models.Validationf(fmt.Sprintf("menu item with name %s already exists", item.Name))
		}
		r.logger.Error("Failed to add menu item", "error", err, "name", item.Name)
		return fmt.Errorf("failed to add menu item: %v", err)
	}

	if err := r.insertRequirements(tx, item.ID, item.Requirements); err != nil {
		r.logger.Error("Failed to add menu item requirements", "error", err, "menu_item_id", item.ID)
		return fmt.Errorf("failed to add menu item requirements: %v", err)
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	r.logger.Info("Added new menu item", "menu_item_id", item.ID, "name", item.Name)
	return nil
}

// Update rewrites a menu item and replaces its requirement rows
func (r *MenuRepository) Update(id string, item *models.MenuItem) error {
	r.logger.Debug("Updating menu item in database", "menu_item_id", id)

	if err := r.validateMenuItem(item); err != nil {
		r.logger.Error("Failed to validate menu item", "error", err, "menu_item_id", id)
		return fmt.Errorf("invalid menu item: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE menu_items
		SET name = $1, description = $2, category = $3, price = $4,
		    admin_enabled = $5, updated_at = now()
		WHERE id = $6
	`

	result, err := tx.Exec(query,
		item.Name, item.Description, item.Category, item.Price,
		item.AdminEnabled, id,
	)
	if err != nil {
		r.logger.Error("Failed to update menu item", "error", err, "menu_item_id", id)
		return fmt.Errorf("failed to update menu item: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.logger.Error("Failed to get rows affected", "error", err, "menu_item_id", id)
		return fmt.Errorf("failed to get rows affected: %v", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("Attempted to update non-existent menu item", "menu_item_id", id)
		return fmt.Errorf("menu item with id %s not found", id)
	}

	if err := r.deleteRequirements(tx, id); err != nil {
		r.logger.Error("Failed to delete existing requirements", "error", err, "menu_item_id", id)
		return fmt.Errorf("failed to delete existing requirements: %v", err)
	}

	if err := r.insertRequirements(tx, id, item.Requirements); err != nil {
		r.logger.Error("Failed to update menu item requirements", "error", err, "menu_item_id", id)
		return fmt.Errorf("failed to update menu item requirements: %v", err)
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit transaction", "error", err, "menu_item_id", id)
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	r.logger.Info("Updated menu item", "menu_item_id", id, "name", item.Name)
	return nil
}

// Delete removes a menu item; requirement rows cascade
func (r *MenuRepository) Delete(id string) error {
	r.logger.Debug("Deleting menu item from database", "menu_item_id", id)

	result, err := r.db.Exec(`DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete menu item", "error", err, "menu_item_id", id)
		return fmt.Errorf("failed to delete menu item: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.logger.Error("Failed to get rows affected", "error", err, "menu_item_id", id)
		return fmt.Errorf("failed to get rows affected: %v", err)
	}
	if rowsAffected == 0 {
		r.logger.Warn("Attempted to delete non-existent menu item", "menu_item_id", id)
		return fmt.Errorf("menu item with id %s not found", id)
	}

	r.logger.Info("Deleted menu item", "menu_item_id", id)
	return nil
}

// SetAvailability persists the resolver's derived availability verdict
func (r *MenuRepository) SetAvailability(id string, available bool) error {
	r.logger.Debug("Persisting availability flag", "menu_item_id", id, "available", available)

	result, err := r.db.Exec(
		`UPDATE menu_items SET available = $1, updated_at = now() WHERE id = $2`,
		available, id,
	)
	if err != nil {
		r.logger.Error("Failed to persist availability flag", "error", err, "menu_item_id", id)
		return fmt.Errorf("failed to persist availability flag: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("menu item with id %s not found", id)
	}

	return nil
}

func (r *MenuRepository) insertRequirements(tx *sql.Tx, menuItemID string, requirements []models.StockRequirement) error {
	if len(requirements) == 0 {
		return nil
	}

	query := `
		INSERT INTO menu_item_requirements (menu_item_id, stock_item_name, quantity_per_unit)
		VALUES ($1, $2, $3)
	`

	for _, req := range requirements {
		if _, err := tx.Exec(query, menuItemID, req.StockItemName, req.QuantityPerUnit); err != nil {
			return fmt.Errorf("failed to insert requirement %s: %v", req.StockItemName, err)
		}
	}

	return nil
}

func (r *MenuRepository) deleteRequirements(tx *sql.Tx, menuItemID string) error {
	if _, err := tx.Exec(`DELETE FROM menu_item_requirements WHERE menu_item_id = $1`, menuItemID); err != nil {
		return fmt.Errorf("failed to delete requirements: %v", err)
	}
	return nil
}

func (r *MenuRepository) parseRequirements(requirementsJSON string, requirements *[]models.StockRequirement) error {
	if requirementsJSON == "" || requirementsJSON == "[]" {
		*requirements = []models.StockRequirement{}
		return nil
	}

	parsed := []models.StockRequirement{}
	if err := json.Unmarshal([]byte(requirementsJSON), &parsed); err != nil {
		return fmt.Errorf("invalid JSON format for requirements: %v", err)
	}

	*requirements = parsed
	return nil
}

func (r *MenuRepository) validateMenuItem(item *models.MenuItem) error {
	if item == nil {
		return models.Validationf("menu item cannot be nil")
	}
	if item.Name == "" {
		return models.Validationf("menu item name cannot be empty")
	}
	if item.Price < 0 {
		return models.Validationf("price cannot be negative")
	}
	if !models.ValidMenuCategory(item.Category) {
		return models.Validationf(fmt.Sprintf("invalid menu category: %s", item.Category))
	}

	for i, req := range item.Requirements {
		if req.StockItemName == "" {
			return models.Validationf(fmt.Sprintf("requirement %d: stock item name cannot be empty", i+1))
		}
		if req.QuantityPerUnit <= 0 {
			return models.Validationf(fmt.Sprintf("requirement %d: quantity per unit must be positive", i+1))
		}
	}

	return nil
}
