package service

import (
	"brasserie/internal/repositories"
	"brasserie/models"
	"brasserie/pkg/logger"
)

type MenuServiceInterface interface {
	GetAll() ([]*models.MenuItem, error)
	Get(id string) (*models.MenuItem, error)
	Create(item *models.MenuItem) error
	Update(id string, item *models.MenuItem) error
	Delete(id string) error
}

// MenuService handles catalog administration. Every edit that can change
// a requirement or the admin_enabled flag refreshes the derived
// availability before returning.
type MenuService struct {
	logger   *logger.Logger
	menuRepo repositories.MenuRepositoryInterface
	resolver AvailabilityServiceInterface
}

func NewMenuService(
	logger *logger.Logger,
	menuRepo repositories.MenuRepositoryInterface,
	resolver AvailabilityServiceInterface,
) *MenuService {
	return &MenuService{
		logger:   logger.WithComponent("menu_service"),
		menuRepo: menuRepo,
		resolver: resolver,
	}
}

// GetAll retrieves every menu item with its requirements
func (s *MenuService) GetAll() ([]*models.MenuItem, error) {
	return s.menuRepo.GetAll()
}

// Get retrieves one menu item
func (s *MenuService) Get(id string) (*models.MenuItem, error) {
	if id == "" {
		return nil, models.Validationf("menu item ID cannot be empty")
	}
	return s.menuRepo.GetByID(id)
}

// Create adds a menu item and derives its initial availability
func (s *MenuService) Create(item *models.MenuItem) error {
	if err := s.menuRepo.Create(item); err != nil {
		return err
	}

	s.recompute()
	return nil
}

// Update rewrites a menu item, its requirements and its admin flag, then
// refreshes availability.
func (s *MenuService) Update(id string, item *models.MenuItem) error {
	if id == "" {
		return models.Validationf("menu item ID cannot be empty")
	}

	if err := s.menuRepo.Update(id, item); err != nil {
		return err
	}

	s.recompute()
	return nil
}

// Delete removes a menu item from the catalog
func (s *MenuService) Delete(id string) error {
	if id == "" {
		return models.Validationf("menu item ID cannot be empty")
	}
	return s.menuRepo.Delete(id)
}

func (s *MenuService) recompute() {
	if err := s.resolver.RecomputeAll(); err != nil {
		s.logger.Error("Failed to recompute availability after catalog edit", "error", err)
	}
}
