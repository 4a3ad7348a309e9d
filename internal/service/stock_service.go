package service

import (
	"database/sql"
	"fmt"

	"brasserie/internal/repositories"
	"brasserie/models"
	"brasserie/pkg/logger"
	"brasserie/pkg/namedlock"
)

type StockServiceInterface interface {
	GetAll() ([]*models.StockItem, error)
	Get(name string) (*models.StockItem, error)
	Create(item *models.StockItem) error
	Update(name string, item *models.StockItem) error
	Adjust(name string, deltaReserve, deltaActive int) (*models.StockItem, error)
}

// StockService is the authoritative ledger for physical supplies. Every
// quantity mutation funnels through Adjust, which serializes per stock
// name and recomputes menu availability before returning, so a caller
// never observes the ledger and the catalog out of step.
type StockService struct {
	logger    *logger.Logger
	db        TxRunner
	stockRepo repositories.StockRepositoryInterface
	resolver  AvailabilityServiceInterface
	locks     *namedlock.Locker
}

func NewStockService(
	logger *logger.Logger,
	db TxRunner,
	stockRepo repositories.StockRepositoryInterface,
	resolver AvailabilityServiceInterface,
	locks *namedlock.Locker,
) *StockService {
	return &StockService{
		logger:    logger.WithComponent("stock_service"),
		db:        db,
		stockRepo: stockRepo,
		resolver:  resolver,
		locks:     locks,
	}
}

// GetAll retrieves every stock item
func (s *StockService) GetAll() ([]*models.StockItem, error) {
	return s.stockRepo.GetAll()
}

// Get retrieves one stock item by its unique name
func (s *StockService) Get(name string) (*models.StockItem, error) {
	if name == "" {
		return nil, models.Validationf("stock item name cannot be empty")
	}
	return s.stockRepo.GetByName(name)
}

// Create adds a new stock item and refreshes menu availability, since a
// new supply can satisfy a previously unsatisfiable requirement.
func (s *StockService) Create(item *models.StockItem) error {
	if err := s.stockRepo.Create(item); err != nil {
		return err
	}

	s.recompute()
	return nil
}

// Update rewrites a stock item's metadata and absolute quantities, then
// refreshes availability.
func (s *StockService) Update(name string, item *models.StockItem) error {
	if name == "" {
		return models.Validationf("stock item name cannot be empty")
	}

	unlock := s.locks.LockAll([]string{name})
	defer unlock()

	if err := s.stockRepo.Update(name, item); err != nil {
		return err
	}

	s.recompute()
	return nil
}

// Adjust applies signed deltas to a stock item's reserve and active
// quantities. The mutation is serialized per name: an in-process named
// lock plus a FOR UPDATE row lock inside one transaction. Deltas that
// would drive a site negative clamp at zero. The updated row is returned
// after availability has been recomputed.
func (s *StockService) Adjust(name string, deltaReserve, deltaActive int) (*models.StockItem, error) {
	if name == "" {
		return nil, models.Validationf("stock item name cannot be empty")
	}
	if deltaReserve == 0 && deltaActive == 0 {
		return nil, models.Validationf("adjustment deltas cannot both be zero")
	}

	s.logger.Debug("Adjusting stock",
		"name", name,
		"delta_reserve", deltaReserve,
		"delta_active", deltaActive)

	unlock := s.locks.LockAll([]string{name})
	defer unlock()

	var item *models.StockItem
	err := s.db.ExecuteInTransaction(func(tx *sql.Tx) error {
		var err error
		item, err = s.stockRepo.AdjustTx(tx, name, deltaReserve, deltaActive)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock item %q: %w", name, err)
	}

	s.recompute()

	s.logger.Info("Stock adjusted",
		"name", name,
		"reserve_quantity", item.ReserveQuantity,
		"active_quantity", item.ActiveQuantity)
	return item, nil
}

func (s *StockService) recompute() {
	if err := s.resolver.RecomputeAll(); err != nil {
		s.logger.Error("Failed to recompute availability after ledger change", "error", err)
	}
}
