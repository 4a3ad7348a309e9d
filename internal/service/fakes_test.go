package service

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"brasserie/models"
	"brasserie/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.LevelError, Format: "text", Output: "stderr"})
}

// nilTxRunner runs the transactional function with a nil transaction; the
// fake repositories below ignore their tx argument.
type nilTxRunner struct{}

func (nilTxRunner) ExecuteInTransaction(fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

// The fakes guard their maps with a mutex and hand out copies from list
// reads, so concurrency tests run clean under the race detector.

type fakeStockRepo struct {
	mu    sync.Mutex
	items map[string]*models.StockItem
}

func newFakeStockRepo(items ...*models.StockItem) *fakeStockRepo {
	r := &fakeStockRepo{items: map[string]*models.StockItem{}}
	for _, item := range items {
		r.items[item.Name] = item
	}
	return r
}

func (r *fakeStockRepo) GetAll() ([]*models.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]*models.StockItem, 0, len(names))
	for _, name := range names {
		copied := *r.items[name]
		items = append(items, &copied)
	}
	return items, nil
}

func (r *fakeStockRepo) GetByName(name string) (*models.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[name]
	if !ok {
		return nil, fmt.Errorf("stock item %q not found", name)
	}
	copied := *item
	return &copied, nil
}

func (r *fakeStockRepo) Create(item *models.StockItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.Name]; ok {
		return models.Validationf("stock item with name " + item.Name + " already exists")
	}
	r.items[item.Name] = item
	return nil
}

func (r *fakeStockRepo) Update(name string, item *models.StockItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[name]; !ok {
		return fmt.Errorf("stock item %q not found", name)
	}
	item.Name = name
	r.items[name] = item
	return nil
}

func (r *fakeStockRepo) GetForUpdateTx(tx *sql.Tx, name string) (*models.StockItem, error) {
	return r.GetByName(name)
}

func (r *fakeStockRepo) AdjustTx(tx *sql.Tx, name string, deltaReserve, deltaActive int) (*models.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[name]
	if !ok {
		return nil, fmt.Errorf("stock item %q not found", name)
	}

	item.ReserveQuantity += deltaReserve
	if item.ReserveQuantity < 0 {
		item.ReserveQuantity = 0
	}
	item.ActiveQuantity += deltaActive
	if item.ActiveQuantity < 0 {
		item.ActiveQuantity = 0
	}

	copied := *item
	return &copied, nil
}

type fakeMenuRepo struct {
	mu    sync.Mutex
	items map[string]*models.MenuItem
}

func newFakeMenuRepo(items ...*models.MenuItem) *fakeMenuRepo {
	r := &fakeMenuRepo{items: map[string]*models.MenuItem{}}
	for _, item := range items {
		r.items[item.ID] = item
	}
	return r
}

func (r *fakeMenuRepo) GetAll() ([]*models.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]*models.MenuItem, 0, len(ids))
	for _, id := range ids {
		copied := *r.items[id]
		items = append(items, &copied)
	}
	return items, nil
}

func (r *fakeMenuRepo) GetByID(id string) (*models.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("menu item with id %s not found", id)
	}
	copied := *item
	return &copied, nil
}

func (r *fakeMenuRepo) Create(item *models.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == "" {
		item.ID = fmt.Sprintf("menu-%d", len(r.items)+1)
	}
	r.items[item.ID] = item
	return nil
}

func (r *fakeMenuRepo) Update(id string, item *models.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("menu item with id %s not found", id)
	}
	item.ID = id
	r.items[id] = item
	return nil
}

func (r *fakeMenuRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("menu item with id %s not found", id)
	}
	delete(r.items, id)
	return nil
}

func (r *fakeMenuRepo) SetAvailability(id string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("menu item with id %s not found", id)
	}
	item.Available = available
	return nil
}

func (r *fakeMenuRepo) available(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id].Available
}

func (r *fakeMenuRepo) setAvailable(id string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id].Available = available
}

type fakeOrderRepo struct {
	mu            sync.Mutex
	orders        map[string]*models.Order
	nextDisplayID int64
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*models.Order{}, nextDisplayID: 1}
}

func (r *fakeOrderRepo) AddTx(tx *sql.Tx, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order.DisplayID = r.nextDisplayID
	r.nextDisplayID++
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) GetByID(id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with id %s not found", id)
	}
	return order, nil
}

func (r *fakeOrderRepo) GetAll() ([]*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	orders := make([]*models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].DisplayID > orders[j].DisplayID
	})
	return orders, nil
}

func (r *fakeOrderRepo) UpdateStatus(id string, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with id %s not found", id)
	}
	order.Status = status
	return nil
}

func (r *fakeOrderRepo) MarkCancelledTx(tx *sql.Tx, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	if order.CancelledAt != nil || order.Status == models.StatusDelivered || order.Status == models.StatusCancelled {
		return false, nil
	}
	order.Status = models.StatusCancelled
	order.CancelledAt = &now
	return true, nil
}

func (r *fakeOrderRepo) DeliveredSpend(customerID string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var spend float64
	for _, order := range r.orders {
		if order.CustomerID == customerID && order.Status == models.StatusDelivered {
			spend += order.Total
		}
	}
	return spend, nil
}

type fakeCustomerRepo struct {
	mu        sync.Mutex
	customers map[string]*models.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: map[string]*models.Customer{}}
}

func (r *fakeCustomerRepo) GetByID(id string) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	customer, ok := r.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer with id %s not found", id)
	}
	return customer, nil
}

func (r *fakeCustomerRepo) GetOrCreateTx(tx *sql.Tx, email, name string) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, customer := range r.customers {
		if customer.Email == email {
			return customer, nil
		}
	}
	customer := &models.Customer{
		ID:        fmt.Sprintf("customer-%d", len(r.customers)+1),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now(),
	}
	r.customers[customer.ID] = customer
	return customer, nil
}

type fakeMovementRepo struct {
	mu        sync.Mutex
	movements []*models.StockMovement
}

func (r *fakeMovementRepo) AddTx(tx *sql.Tx, movement *models.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	movement.CreatedAt = time.Now()
	r.movements = append(r.movements, movement)
	return nil
}

func (r *fakeMovementRepo) ListByOrderTx(tx *sql.Tx, orderID string) ([]*models.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.StockMovement
	for _, m := range r.movements {
		if m.OrderID == orderID {
			matched = append(matched, m)
		}
	}
	return matched, nil
}

type fakeCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]*models.Coupon
	claims  map[string]*models.CouponClaim
}

func newFakeCouponRepo(coupons ...*models.Coupon) *fakeCouponRepo {
	r := &fakeCouponRepo{
		coupons: map[string]*models.Coupon{},
		claims:  map[string]*models.CouponClaim{},
	}
	for _, coupon := range coupons {
		r.coupons[coupon.ID] = coupon
	}
	return r
}

func (r *fakeCouponRepo) GetCouponByID(id string) (*models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	coupon, ok := r.coupons[id]
	if !ok {
		return nil, fmt.Errorf("coupon with id %s not found", id)
	}
	return coupon, nil
}

func (r *fakeCouponRepo) ListCoupons() ([]*models.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	coupons := make([]*models.Coupon, 0, len(r.coupons))
	for _, coupon := range r.coupons {
		coupons = append(coupons, coupon)
	}
	return coupons, nil
}

func (r *fakeCouponRepo) CreateCoupon(coupon *models.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if coupon.ID == "" {
		coupon.ID = fmt.Sprintf("coupon-%d", len(r.coupons)+1)
	}
	r.coupons[coupon.ID] = coupon
	return nil
}

func (r *fakeCouponRepo) GetClaimByID(id string) (*models.CouponClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	claim, ok := r.claims[id]
	if !ok {
		return nil, fmt.Errorf("coupon claim with id %s not found", id)
	}
	return claim, nil
}

func (r *fakeCouponRepo) InsertClaim(claim *models.CouponClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.claims[claim.ID] = claim
	return nil
}

func (r *fakeCouponRepo) CountClaimsSince(customerID, couponID string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, claim := range r.claims {
		if claim.CustomerID == customerID && claim.CouponID == couponID && !claim.ClaimedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeCouponRepo) MarkClaimUsedTx(tx *sql.Tx, claimID, orderID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	claim, ok := r.claims[claimID]
	if !ok || claim.IsUsed || !now.Before(claim.ExpiresAt) {
		return models.ErrCouponExpiredOrUsed
	}
	claim.IsUsed = true
	claim.UsedAt = &now
	claim.OrderID = &orderID
	return nil
}

func (r *fakeCouponRepo) ListClaimsByCustomer(customerID string) ([]*models.CouponClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var claims []*models.CouponClaim
	for _, claim := range r.claims {
		if claim.CustomerID == customerID {
			claims = append(claims, claim)
		}
	}
	return claims, nil
}

func (r *fakeCouponRepo) PointsCommitted(customerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	points := 0
	for _, claim := range r.claims {
		if claim.CustomerID != customerID {
			continue
		}
		coupon, ok := r.coupons[claim.CouponID]
		if !ok {
			continue
		}
		points += coupon.PointsCost
	}
	return points, nil
}
