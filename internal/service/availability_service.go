package service

import (
	_ "embed"
	"fmt"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"brasserie/internal/repositories"
	"brasserie/models"
	"brasserie/pkg/logger"
)

//go:embed seed_requirements.yaml
var seedRequirementsYAML []byte

type AvailabilityServiceInterface interface {
	RecomputeAll() error
	RequirementsFor(item *models.MenuItem) []models.StockRequirement
	Snapshot() (*CatalogSnapshot, error)
	Revision() int64
}

// CatalogSnapshot is the customer-facing catalog view plus the revision
// counter that lets a UI detect staleness with a single integer compare.
type CatalogSnapshot struct {
	Revision int64          `json:"revision"`
	Items    []CatalogEntry `json:"items"`
}

type CatalogEntry struct {
	ID        string              `json:"menu_item_id"`
	Name      string              `json:"name"`
	Category  models.MenuCategory `json:"category"`
	Price     float64             `json:"price"`
	Available bool                `json:"available"`
}

// AvailabilityService derives each menu item's availability from the
// stock ledger: available means admin-enabled and every requirement
// satisfiable from total (reserve plus active) stock for one unit. The
// verdict is stored on the menu row so reads never recompute, and a
// monotonic revision counter bumps whenever any verdict changes.
type AvailabilityService struct {
	logger    *logger.Logger
	menuRepo  repositories.MenuRepositoryInterface
	stockRepo repositories.StockRepositoryInterface
	revision  atomic.Int64
	seed      map[string][]models.StockRequirement
}

func NewAvailabilityService(
	logger *logger.Logger,
	menuRepo repositories.MenuRepositoryInterface,
	stockRepo repositories.StockRepositoryInterface,
) (*AvailabilityService, error) {
	seed, err := parseSeedRequirements(seedRequirementsYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse seed requirement table: %v", err)
	}

	return &AvailabilityService{
		logger:    logger.WithComponent("availability_service"),
		menuRepo:  menuRepo,
		stockRepo: stockRepo,
		seed:      seed,
	}, nil
}

type seedRequirement struct {
	StockItem       string `yaml:"stock_item"`
	QuantityPerUnit int    `yaml:"quantity_per_unit"`
}

func parseSeedRequirements(raw []byte) (map[string][]models.StockRequirement, error) {
	parsed := map[string][]seedRequirement{}
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	seed := make(map[string][]models.StockRequirement, len(parsed))
	for name, reqs := range parsed {
		converted := make([]models.StockRequirement, 0, len(reqs))
		for _, req := range reqs {
			converted = append(converted, models.StockRequirement{
				StockItemName:   req.StockItem,
				QuantityPerUnit: req.QuantityPerUnit,
			})
		}
		seed[name] = converted
	}

	return seed, nil
}

// RequirementsFor returns a menu item's declared stock requirements,
// falling back to the built-in seed table keyed by item name. An item
// with no requirements in either place consumes no stock.
func (s *AvailabilityService) RequirementsFor(item *models.MenuItem) []models.StockRequirement {
	if len(item.Requirements) > 0 {
		return item.Requirements
	}
	return s.seed[item.Name]
}

// RecomputeAll pulls the whole catalog and the whole ledger, derives each
// item's availability, and persists only the verdicts that changed. The
// revision counter bumps once per call that changed anything.
func (s *AvailabilityService) RecomputeAll() error {
	stock, err := s.stockRepo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load stock for recompute: %w", err)
	}

	totals := make(map[string]int, len(stock))
	for _, item := range stock {
		totals[item.Name] = item.TotalQuantity()
	}

	items, err := s.menuRepo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load menu for recompute: %w", err)
	}

	changed := 0
	for _, item := range items {
		available := item.AdminEnabled && s.satisfiable(item, totals)
		if available == item.Available {
			continue
		}

		if err := s.menuRepo.SetAvailability(item.ID, available); err != nil {
			return fmt.Errorf("failed to persist availability for %s: %w", item.ID, err)
		}

		s.logger.Info("Menu availability changed",
			"menu_item_id", item.ID,
			"name", item.Name,
			"available", available)
		changed++
	}

	if changed > 0 {
		rev := s.revision.Add(1)
		s.logger.Debug("Catalog revision bumped", "revision", rev, "items_changed", changed)
	}

	return nil
}

func (s *AvailabilityService) satisfiable(item *models.MenuItem, totals map[string]int) bool {
	for _, req := range s.RequirementsFor(item) {
		if totals[req.StockItemName] < req.QuantityPerUnit {
			return false
		}
	}
	return true
}

// Revision returns the current catalog revision
func (s *AvailabilityService) Revision() int64 {
	return s.revision.Load()
}

// Snapshot returns the current catalog with the revision it was read at
func (s *AvailabilityService) Snapshot() (*CatalogSnapshot, error) {
	items, err := s.menuRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load menu for snapshot: %w", err)
	}

	snapshot := &CatalogSnapshot{
		Revision: s.revision.Load(),
		Items:    make([]CatalogEntry, 0, len(items)),
	}
	for _, item := range items {
		snapshot.Items = append(snapshot.Items, CatalogEntry{
			ID:        item.ID,
			Name:      item.Name,
			Category:  item.Category,
			Price:     item.Price,
			Available: item.Available,
		})
	}

	return snapshot, nil
}
