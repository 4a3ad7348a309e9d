package service

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"brasserie/internal/repositories"
	"brasserie/models"
	"brasserie/pkg/logger"
	"brasserie/pkg/namedlock"
)

const defaultPreparationTime = 30 * time.Minute

type OrderServiceInterface interface {
	PlaceOrder(req *PlaceOrderRequest) (*models.Order, error)
	CancelOrder(orderID string) error
	UpdateOrderStatus(orderID string, status models.OrderStatus) error
	GetOrder(orderID string) (*models.Order, error)
	ListOrders() ([]*models.Order, error)
}

// PlaceOrderRequest is a customer cart. The customer is identified either
// by ID or by email (created on first order). Add-ons nest under their
// parent line and are flattened at placement; PaymentRef is an opaque
// token from the external payment processor, stored in the order notes
// trail but never interpreted here.
type PlaceOrderRequest struct {
	CustomerID    string           `json:"customer_id,omitempty"`
	CustomerEmail string           `json:"customer_email,omitempty"`
	CustomerName  string           `json:"customer_name,omitempty"`
	Lines         []PlaceOrderLine `json:"lines"`
	CouponClaimID string           `json:"coupon_claim_id,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	PaymentRef    string           `json:"payment_ref,omitempty"`
}

type PlaceOrderLine struct {
	MenuItemID string           `json:"menu_item_id"`
	Quantity   int              `json:"quantity"`
	AddOns     []PlaceOrderLine `json:"add_ons,omitempty"`
}

// OrderService coordinates order placement, cancellation and status
// transitions so that orders, stock and coupon claims always move
// together. Placement is one transaction: order row, lines, per-item
// stock deduction with its movement journal, and the coupon redemption
// either all commit or none do.
type OrderService struct {
	logger       *logger.Logger
	db           TxRunner
	orderRepo    repositories.OrderRepositoryInterface
	menuRepo     repositories.MenuRepositoryInterface
	stockRepo    repositories.StockRepositoryInterface
	customerRepo repositories.CustomerRepositoryInterface
	movementRepo repositories.MovementRepositoryInterface
	loyalty      LoyaltyServiceInterface
	resolver     AvailabilityServiceInterface
	locks        *namedlock.Locker
	now          func() time.Time
}

func NewOrderService(
	logger *logger.Logger,
	db TxRunner,
	orderRepo repositories.OrderRepositoryInterface,
	menuRepo repositories.MenuRepositoryInterface,
	stockRepo repositories.StockRepositoryInterface,
	customerRepo repositories.CustomerRepositoryInterface,
	movementRepo repositories.MovementRepositoryInterface,
	loyalty LoyaltyServiceInterface,
	resolver AvailabilityServiceInterface,
	locks *namedlock.Locker,
) *OrderService {
	return &OrderService{
		logger:       logger.WithComponent("order_service"),
		db:           db,
		orderRepo:    orderRepo,
		menuRepo:     menuRepo,
		stockRepo:    stockRepo,
		customerRepo: customerRepo,
		movementRepo: movementRepo,
		loyalty:      loyalty,
		resolver:     resolver,
		locks:        locks,
		now:          time.Now,
	}
}

// PlaceOrder validates the cart, prices it, applies an optional coupon
// claim, and commits the order together with its stock deduction. Stock
// sufficiency is re-checked under the same locks used for the deduction;
// a cart the catalog showed as available can still fail here with
// ErrStockInsufficient if stock moved since the customer looked.
func (s *OrderService) PlaceOrder(req *PlaceOrderRequest) (*models.Order, error) {
	if req == nil {
		return nil, models.Validationf("order request cannot be nil")
	}
	if req.CustomerID == "" && req.CustomerEmail == "" {
		return nil, models.Validationf("order must identify a customer by ID or email")
	}
	if len(req.Lines) == 0 {
		return nil, models.Validationf("order must have at least one line")
	}

	flattened, err := flattenLines(req.Lines)
	if err != nil {
		return nil, err
	}

	catalog, err := s.menuByID()
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	lines := make([]models.OrderLine, 0, len(flattened))
	needed := map[string]int{}

	for _, fl := range flattened {
		item, ok := catalog[fl.MenuItemID]
		if !ok {
			return nil, models.Validationf(fmt.Sprintf("unknown menu item %s", fl.MenuItemID))
		}
		if !item.Available {
			return nil, models.Validationf(fmt.Sprintf("menu item %s is not available", item.Name))
		}

		lines = append(lines, models.OrderLine{
			ID:         uuid.NewString(),
			MenuItemID: item.ID,
			Quantity:   fl.Quantity,
			UnitPrice:  item.Price,
		})
		subtotal = subtotal.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(fl.Quantity))))

		for _, r := range s.resolver.RequirementsFor(item) {
			needed[r.StockItemName] += r.QuantityPerUnit * fl.Quantity
		}
	}

	subtotalAmount, _ := subtotal.Round(2).Float64()
	now := s.now()

	stockNames := make([]string, 0, len(needed))
	for name := range needed {
		stockNames = append(stockNames, name)
	}

	unlock := s.locks.LockAll(stockNames)
	defer unlock()

	order := &models.Order{
		ID:                uuid.NewString(),
		Subtotal:          subtotalAmount,
		Status:            models.StatusPending,
		OrderDate:         now,
		EstimatedDelivery: now.Add(defaultPreparationTime),
		Notes:             req.Notes,
		Lines:             lines,
	}

	err = s.db.ExecuteInTransaction(func(tx *sql.Tx) error {
		customerID := req.CustomerID
		if customerID == "" {
			customer, err := s.customerRepo.GetOrCreateTx(tx, req.CustomerEmail, req.CustomerName)
			if err != nil {
				return err
			}
			customerID = customer.ID
		}
		order.CustomerID = customerID

		discount := decimal.Zero
		if req.CouponClaimID != "" {
			claim, err := s.loyalty.VerifyClaim(req.CouponClaimID, customerID, now)
			if err != nil {
				return err
			}
			amount, err := s.loyalty.DiscountFor(claim, subtotalAmount)
			if err != nil {
				return err
			}
			discount = decimal.NewFromFloat(amount)
			claimID := claim.ID
			order.CouponClaimID = &claimID
		}

		order.DiscountAmount, _ = discount.Round(2).Float64()
		order.Total, _ = subtotal.Sub(discount).Round(2).Float64()

		if err := s.orderRepo.AddTx(tx, order); err != nil {
			return err
		}

		if err := s.deductStock(tx, order.ID, stockNames, needed); err != nil {
			return err
		}

		if order.CouponClaimID != nil {
			if err := s.loyalty.RedeemTx(tx, *order.CouponClaimID, order.ID, now); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		s.logger.Warn("Order placement failed", "error", err, "customer_id", req.CustomerID)
		return nil, err
	}

	s.recompute()

	s.logger.Info("Order placed",
		"order_id", order.ID,
		"display_id", order.DisplayID,
		"customer_id", order.CustomerID,
		"subtotal", order.Subtotal,
		"discount", order.DiscountAmount,
		"total", order.Total)
	return order, nil
}

// deductStock takes stock in sorted name order, rejecting before any
// write if the combined sites cannot cover the need. Deduction drains the
// active site first and spills the remainder to reserve; the exact split
// is journaled per item so cancellation can replay the mirror.
func (s *OrderService) deductStock(tx *sql.Tx, orderID string, names []string, needed map[string]int) error {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	for _, name := range sorted {
		want := needed[name]
		if want == 0 {
			continue
		}

		item, err := s.stockRepo.GetForUpdateTx(tx, name)
		if err != nil {
			return err
		}
		if item.TotalQuantity() < want {
			s.logger.Warn("Order rejected: insufficient stock",
				"order_id", orderID,
				"stock_item", name,
				"needed", want,
				"available", item.TotalQuantity())
			return fmt.Errorf("%w: %s (need %d, have %d)", models.ErrStockInsufficient, name, want, item.TotalQuantity())
		}

		takeActive := want
		if takeActive > item.ActiveQuantity {
			takeActive = item.ActiveQuantity
		}
		takeReserve := want - takeActive

		if _, err := s.stockRepo.AdjustTx(tx, name, -takeReserve, -takeActive); err != nil {
			return err
		}

		movement := &models.StockMovement{
			ID:            uuid.NewString(),
			OrderID:       orderID,
			StockItemName: name,
			DeltaReserve:  -takeReserve,
			DeltaActive:   -takeActive,
		}
		if err := s.movementRepo.AddTx(tx, movement); err != nil {
			return err
		}
	}

	return nil
}

// CancelOrder marks an order cancelled and restores its stock by
// replaying the mirror of the journaled movements, all in one
// transaction. The conditional cancellation marker makes this idempotent:
// a repeated cancel, or a cancel of a delivered order, fails with
// ErrOrderNotCancellable and restores nothing.
func (s *OrderService) CancelOrder(orderID string) error {
	if orderID == "" {
		return models.Validationf("order ID cannot be empty")
	}

	now := s.now()
	err := s.db.ExecuteInTransaction(func(tx *sql.Tx) error {
		cancelled, err := s.orderRepo.MarkCancelledTx(tx, orderID, now)
		if err != nil {
			return err
		}
		if !cancelled {
			return fmt.Errorf("%w: %s", models.ErrOrderNotCancellable, orderID)
		}

		movements, err := s.movementRepo.ListByOrderTx(tx, orderID)
		if err != nil {
			return err
		}

		sort.Slice(movements, func(i, j int) bool {
			return movements[i].StockItemName < movements[j].StockItemName
		})

		names := make([]string, 0, len(movements))
		for _, m := range movements {
			names = append(names, m.StockItemName)
		}
		unlock := s.locks.LockAll(names)
		defer unlock()

		for _, m := range movements {
			if _, err := s.stockRepo.AdjustTx(tx, m.StockItemName, -m.DeltaReserve, -m.DeltaActive); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.recompute()

	s.logger.Info("Order cancelled", "order_id", orderID)
	return nil
}

// UpdateOrderStatus moves an order along the state machine. A requested
// transition to cancelled routes through CancelOrder so stock restoration
// cannot be skipped.
func (s *OrderService) UpdateOrderStatus(orderID string, status models.OrderStatus) error {
	if orderID == "" {
		return models.Validationf("order ID cannot be empty")
	}
	if !models.ValidOrderStatus(status) {
		return models.Validationf(fmt.Sprintf("invalid order status: %s", status))
	}

	if status == models.StatusCancelled {
		return s.CancelOrder(orderID)
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}

	if !models.CanTransition(order.Status, status) {
		s.logger.Warn("Rejected order status transition",
			"order_id", orderID,
			"from", order.Status,
			"to", status)
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, order.Status, status)
	}

	if err := s.orderRepo.UpdateStatus(orderID, status); err != nil {
		return err
	}

	s.logger.Info("Order status updated", "order_id", orderID, "from", order.Status, "to", status)
	return nil
}

// GetOrder retrieves one order with its lines
func (s *OrderService) GetOrder(orderID string) (*models.Order, error) {
	if orderID == "" {
		return nil, models.Validationf("order ID cannot be empty")
	}
	return s.orderRepo.GetByID(orderID)
}

// ListOrders retrieves all orders, newest first
func (s *OrderService) ListOrders() ([]*models.Order, error) {
	return s.orderRepo.GetAll()
}

func (s *OrderService) menuByID() (map[string]*models.MenuItem, error) {
	items, err := s.menuRepo.GetAll()
	if err != nil {
		return nil, err
	}

	catalog := make(map[string]*models.MenuItem, len(items))
	for _, item := range items {
		catalog[item.ID] = item
	}
	return catalog, nil
}

// flattenLines turns nested add-on lines into plain order lines. An
// add-on's quantity is per parent unit, so it multiplies by the parent
// quantity. Add-ons nest one level deep.
func flattenLines(lines []PlaceOrderLine) ([]PlaceOrderLine, error) {
	flattened := make([]PlaceOrderLine, 0, len(lines))
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, models.Validationf(fmt.Sprintf("line %d: quantity must be positive", i+1))
		}
		flattened = append(flattened, PlaceOrderLine{MenuItemID: line.MenuItemID, Quantity: line.Quantity})

		for j, addOn := range line.AddOns {
			if addOn.Quantity <= 0 {
				return nil, models.Validationf(fmt.Sprintf("line %d add-on %d: quantity must be positive", i+1, j+1))
			}
			if len(addOn.AddOns) > 0 {
				return nil, models.Validationf(fmt.Sprintf("line %d add-on %d: add-ons cannot nest", i+1, j+1))
			}
			flattened = append(flattened, PlaceOrderLine{
				MenuItemID: addOn.MenuItemID,
				Quantity:   addOn.Quantity * line.Quantity,
			})
		}
	}
	return flattened, nil
}

func (s *OrderService) recompute() {
	if err := s.resolver.RecomputeAll(); err != nil {
		s.logger.Error("Failed to recompute availability after order mutation", "error", err)
	}
}
