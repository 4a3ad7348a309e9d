package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"brasserie/models"
	"brasserie/pkg/database"
	"brasserie/pkg/logger"
)

type CustomerRepositoryInterface interface {
	GetByID(id string) (*models.Customer, error)
	GetOrCreateTx(tx *sql.Tx, email, name string) (*models.Customer, error)
}

type CustomerRepository struct {
	logger *logger.Logger
	db     *database.DB
}

func NewCustomerRepository(logger *logger.Logger, db *database.DB) *CustomerRepository {
	return &CustomerRepository{
		logger: logger.WithComponent("customer_repository"),
		db:     db,
	}
}

// GetByID retrieves a customer by ID
func (r *CustomerRepository) GetByID(id string) (*models.Customer, error) {
	r.logger.Debug("Retrieving customer from database", "customer_id", id)

	customer := &models.Customer{}
	err := r.db.QueryRow(`
		SELECT id, email, name, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&customer.ID, &customer.Email, &customer.Name, &customer.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Customer not found", "customer_id", id)
			return nil, fmt.Errorf("customer with id %s not found", id)
		}
		r.logger.Error("Failed to retrieve customer", "error", err, "customer_id", id)
		return nil, fmt.Errorf("failed to retrieve customer: %v", err)
	}

	return customer, nil
}

// GetOrCreateTx resolves a customer by email inside the caller's
// transaction, creating the row if absent. The upsert keeps concurrent
// first orders from the same customer from racing the insert.
func (r *CustomerRepository) GetOrCreateTx(tx *sql.Tx, email, name string) (*models.Customer, error) {
	r.logger.Debug("Resolving customer by email", "email", email)

	if email == "" {
		return nil, models.Validationf("customer email cannot be empty")
	}

	customer := &models.Customer{}
	err := tx.QueryRow(`
		INSERT INTO customers (email, name)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, name, created_at
	`, email, name).Scan(&customer.ID, &customer.Email, &customer.Name, &customer.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to resolve customer", "error", err, "email", email)
		return nil, fmt.Errorf("failed to resolve customer: %v", err)
	}

	return customer, nil
}
