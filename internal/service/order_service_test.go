package service

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brasserie/models"
	"brasserie/pkg/namedlock"
)

type orderFixture struct {
	svc          *OrderService
	stockRepo    *fakeStockRepo
	menuRepo     *fakeMenuRepo
	orderRepo    *fakeOrderRepo
	movementRepo *fakeMovementRepo
	couponRepo   *fakeCouponRepo
	resolver     *AvailabilityService
}

func newOrderFixture(t *testing.T, stock []*models.StockItem, menu []*models.MenuItem, coupons ...*models.Coupon) *orderFixture {
	t.Helper()

	stockRepo := newFakeStockRepo(stock...)
	menuRepo := newFakeMenuRepo(menu...)
	orderRepo := newFakeOrderRepo()
	customerRepo := newFakeCustomerRepo()
	movementRepo := &fakeMovementRepo{}
	couponRepo := newFakeCouponRepo(coupons...)
	locks := namedlock.New()

	resolver := newResolver(t, menuRepo, stockRepo)
	loyalty := NewLoyaltyService(testLogger(), couponRepo, orderRepo, locks)
	svc := NewOrderService(testLogger(), nilTxRunner{}, orderRepo, menuRepo, stockRepo,
		customerRepo, movementRepo, loyalty, resolver, locks)

	require.NoError(t, resolver.RecomputeAll())

	return &orderFixture{
		svc:          svc,
		stockRepo:    stockRepo,
		menuRepo:     menuRepo,
		orderRepo:    orderRepo,
		movementRepo: movementRepo,
		couponRepo:   couponRepo,
		resolver:     resolver,
	}
}

func steakFixture(t *testing.T) *orderFixture {
	return newOrderFixture(t,
		[]*models.StockItem{{Name: "steak", ReserveQuantity: 2, ActiveQuantity: 3}},
		[]*models.MenuItem{{
			ID: "m1", Name: "steak frites", Category: models.CategoryMain, Price: 25,
			AdminEnabled: true,
			Requirements: []models.StockRequirement{{StockItemName: "steak", QuantityPerUnit: 1}},
		}},
	)
}

func TestPlaceOrderDeductsActiveFirstWithReserveSpill(t *testing.T) {
	f := steakFixture(t)

	order, err := f.svc.PlaceOrder(&PlaceOrderRequest{
		CustomerID: "alice",
		Lines:      []PlaceOrderLine{{MenuItemID: "m1", Quantity: 4}},
	})
	require.NoError(t, err)

	assert.Equal(t, 100.0, order.Subtotal)
	assert.Equal(t, 100.0, order.Total)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, int64(1), order.DisplayID)

	steak := f.stockRepo.items["steak"]
	assert.Equal(t, 0, steak.ActiveQuantity, "active site drains first")
	assert.Equal(t, 1, steak.ReserveQuantity, "remainder spills to reserve")

	require.Len(t, f.movementRepo.movements, 1)
	m := f.movementRepo.movements[0]
	assert.Equal(t, order.ID, m.OrderID)
	assert.Equal(t, -3, m.DeltaActive)
	assert.Equal(t, -1, m.DeltaReserve)
}

func TestPlaceOrderFlattensAddOns(t *testing.T) {
	f := newOrderFixture(t,
		[]*models.StockItem{
			{Name: "patty", ActiveQuantity: 10},
			{Name: "cheese", ActiveQuantity: 10},
		},
		[]*models.MenuItem{
			{
				ID: "burger", Name: "burger", Category: models.CategoryMain, Price: 10,
				AdminEnabled: true,
				Requirements: []models.StockRequirement{{StockItemName: "patty", QuantityPerUnit: 1}},
			},
			{
				ID: "extra-cheese", Name: "extra cheese", Category: models.CategoryAddOn, Price: 2,
				AdminEnabled: true,
				Requirements: []models.StockRequirement{{StockItemName: "cheese", QuantityPerUnit: 1}},
			},
		},
	)

	order, err := f.svc.PlaceOrder(&PlaceOrderRequest{
		CustomerEmail: "alice@example.com",
		CustomerName:  "Alice",
		Lines: []PlaceOrderLine{{
			MenuItemID: "burger",
			Quantity:   2,
			AddOns:     []PlaceOrderLine{{MenuItemID: "extra-cheese", Quantity: 1}},
		}},
	})
	require.NoError(t, err)

	require.Len(t, order.Lines, 2, "add-on flattened into its own line")
	assert.Equal(t, 2, order.Lines[1].Quantity, "add-on quantity multiplies by parent quantity")
	assert.Equal(t, 24.0, order.Subtotal)

	assert.Equal(t, 8, f.stockRepo.items["patty"].ActiveQuantity)
	assert.Equal(t, 8, f.stockRepo.items["cheese"].ActiveQuantity)
	assert.NotEmpty(t, order.CustomerID, "customer created from email")
}

func TestPlaceOrderValidation(t *testing.T) {
	f := steakFixture(t)

	_, err := f.svc.PlaceOrder(&PlaceOrderRequest{CustomerID: "alice"})
	assert.True(t, models.IsValidation(err), "empty cart")

	_, err = f.svc.PlaceOrder(&PlaceOrderRequest{
		Lines: []PlaceOrderLine{{MenuItemID: "m1", Quantity: 1}},
	})
	assert.True(t, models.IsValidation(err), "no customer identity")

	_, err = f.svc.PlaceOrder(&PlaceOrderRequest{
		CustomerID: "alice",
		Lines:      []PlaceOrderLine{{MenuItemID: "ghost", Quantity: 1}},
	})
	assert.True(t, models.IsValidation(err), "unknown menu item")

	_, err = f.svc.PlaceOrder(&PlaceOrderRequest{
		CustomerID: "alice",
		Lines:      []PlaceOrderLine{{MenuItemID: "m1", Quantity: 0}},
	})
	assert.True(t, models.IsValidation(err), "non-positive quantity")
}

func TestPlaceOrderInsufficientStockRejected(t *testing.T) {
	f := steakFixture(t)

	_, err := f.svc.PlaceOrder(&PlaceOrderRequest{
		CustomerID: "alice",
		Lines:      []PlaceOrderLine{{MenuItemID: "m1", Quantity: 6}},
	})
	assert.ErrorIs(t, err, models.ErrStockInsufficient)

	steak := f.stockRepo.items["steak"]
	assert.Equal(t, 3, steak.ActiveQuantity, "no partial deduction")
	assert.Equal(t, 2, steak.ReserveQuantity)
	assert.Empty(t, f.movementRepo.movements)
}

func TestSteakDrainScenario(t *testing.T) {
	f := steakFixture(t)

	for i := 0; i < 5; i++ {
		_, err := f.svc.PlaceOrder(&PlaceOrderRequest{
			CustomerID: "alice",
			Lines:      []PlaceOrderLine{{MenuItemID: "m1", Quantity: 1}},
		})
		require.NoError(t, err, "order %d should succeed", i+1)
	}

	steak := f.stockRepo.items["steak"]
	assert.Equal(t, 0, steak.TotalQuantity(), "five sales drain both sites")
	assert.False(t, f.menuRepo.available("m1"), "recompute flips the dish off")

	// Simulate a stale catalog read racing the last sale: even with the
	// flag still up, the authoritative check under lock rejects.
	f.menuRepo.setAvailable("m1", true)
	_, err := f.svc.PlaceOrder(&PlaceOrderRequest{
		CustomerID: "alice",
		Lines:      []PlaceOrderLine{{MenuItemID: "m1", Quantity: 1}},
	})
	assert.ErrorIs(t, err, models.ErrStockInsufficient)
}

func TestCancelOrderRestoresExactSplit(t *testing.T) {
	f := steakFixture(t)

	order, err := f.svc.PlaceOrder(&PlaceOrderRequest{
		CustomerID: "alice",
		Lines:      []PlaceOrderLine{{MenuItemID: "m1", Quantity: 4}},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelOrder(order.ID))

	steak := f.stockRepo.items["steak"]
	assert.Equal(t, 3, steak.ActiveQuantity, "active site restored to its pre-order value")
	assert.Equal(t, 2, steak.ReserveQuantity, "reserve site restored to its pre-order value")

	stored, err := f.orderRepo.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.NotNil(t, stored.CancelledAt)
	assert.True(t, f.menuRepo.items["m1"].Available, "availability recomputed after restore")
}

func TestCancelOrderIdempotent(t *testing.T) {
	f := steakFixture(t)

	order, err := f.svc.PlaceOrder(&PlaceOrderRequest{
		CustomerID: "alice",
		Lines:      []PlaceOrderLine{{MenuItemID: "m1", Quantity: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelOrder(order.ID))
	err = f.svc.CancelOrder(order.ID)
	assert.ErrorIs(t, err, models.ErrOrderNotCancellable)

	steak := f.stockRepo.items["steak"]
	assert.Equal(t, 5, steak.TotalQuantity(), "stock restored exactly once")
}

func TestCancelDeliveredOrderRejected(t *testing.T) {
	f := steakFixture(t)

	order, err := f.svc.PlaceOrder(&PlaceOrderRequest{
		CustomerID: "alice",
		Lines:      []PlaceOrderLine{{MenuItemID: "m1", Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdateOrderStatus(order.ID, models.StatusPreparing))
	require.NoError(t, f.svc.UpdateOrderStatus(order.ID, models.StatusReady))
	require.NoError(t, f.svc.UpdateOrderStatus(order.ID, models.StatusDelivered))

	err = f.svc.CancelOrder(order.ID)
	assert.ErrorIs(t, err, models.ErrOrderNotCancellable)
	assert.Equal(t, 4, f.stockRepo.items["steak"].TotalQuantity(), "delivered stock stays consumed")
}

func TestUpdateOrderStatusTransitions(t *testing.T) {
	f := steakFixture(t)

	order, err := f.svc.PlaceOrder(&PlaceOrderRequest{
		CustomerID: "alice",
		Lines:      []PlaceOrderLine{{MenuItemID: "m1", Quantity: 1}},
	})
	require.NoError(t, err)

	err = f.svc.UpdateOrderStatus(order.ID, models.StatusReady)
	assert.ErrorIs(t, err, models.ErrInvalidTransition, "pending cannot skip to ready")

	err = f.svc.UpdateOrderStatus(order.ID, "en_route")
	assert.True(t, models.IsValidation(err), "unknown status")

	require.NoError(t, f.svc.UpdateOrderStatus(order.ID, models.StatusPreparing))
	require.NoError(t, f.svc.UpdateOrderStatus(order.ID, models.StatusReady))
	require.NoError(t, f.svc.UpdateOrderStatus(order.ID, models.StatusDelivered))

	err = f.svc.UpdateOrderStatus(order.ID, models.StatusPreparing)
	assert.ErrorIs(t, err, models.ErrInvalidTransition, "delivered is terminal")
}

func TestUpdateStatusToCancelledRestoresStock(t *testing.T) {
	f := steakFixture(t)

	order, err := f.svc.PlaceOrder(&PlaceOrderRequest{
		CustomerID: "alice",
		Lines:      []PlaceOrderLine{{MenuItemID: "m1", Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, 3, f.stockRepo.items["steak"].TotalQuantity())

	require.NoError(t, f.svc.UpdateOrderStatus(order.ID, models.StatusCancelled))

	assert.Equal(t, 5, f.stockRepo.items["steak"].TotalQuantity(), "cancellation path restores stock")
}

func TestPlaceOrderWithCouponClaim(t *testing.T) {
	coupon := &models.Coupon{
		ID: "c1", Name: "ten percent", Type: models.CouponPercentOff,
		Value: json.RawMessage(`{"percent":10}`), PointsCost: 10,
		DurationHours: 24, MaxPerAccountPerDay: 1, IsActive: true,
	}
	f := newOrderFixture(t,
		[]*models.StockItem{{Name: "steak", ReserveQuantity: 2, ActiveQuantity: 3}},
		[]*models.MenuItem{{
			ID: "m1", Name: "steak frites", Category: models.CategoryMain, Price: 25,
			AdminEnabled: true,
			Requirements: []models.StockRequirement{{StockItemName: "steak", QuantityPerUnit: 1}},
		}},
		coupon,
	)

	now := time.Now()
	f.couponRepo.claims["cl1"] = &models.CouponClaim{
		ID: "cl1", CustomerID: "alice", CouponID: "c1",
		ClaimedAt: now, ExpiresAt: now.Add(time.Hour),
	}

	order, err := f.svc.PlaceOrder(&PlaceOrderRequest{
		CustomerID:    "alice",
		CouponClaimID: "cl1",
		Lines:         []PlaceOrderLine{{MenuItemID: "m1", Quantity: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, 50.0, order.Subtotal)
	assert.Equal(t, 5.0, order.DiscountAmount)
	assert.Equal(t, 45.0, order.Total)
	require.NotNil(t, order.CouponClaimID)
	assert.Equal(t, "cl1", *order.CouponClaimID)

	claim := f.couponRepo.claims["cl1"]
	assert.True(t, claim.IsUsed)
	require.NotNil(t, claim.OrderID)
	assert.Equal(t, order.ID, *claim.OrderID)

	// The same claim cannot pay for a second order.
	_, err = f.svc.PlaceOrder(&PlaceOrderRequest{
		CustomerID:    "alice",
		CouponClaimID: "cl1",
		Lines:         []PlaceOrderLine{{MenuItemID: "m1", Quantity: 1}},
	})
	assert.ErrorIs(t, err, models.ErrCouponExpiredOrUsed)
}

func TestPlaceOrderRejectsForeignClaim(t *testing.T) {
	coupon := &models.Coupon{
		ID: "c1", Name: "ten percent", Type: models.CouponPercentOff,
		Value: json.RawMessage(`{"percent":10}`), PointsCost: 10,
		DurationHours: 24, MaxPerAccountPerDay: 1, IsActive: true,
	}
	f := newOrderFixture(t,
		[]*models.StockItem{{Name: "steak", ActiveQuantity: 5}},
		[]*models.MenuItem{{
			ID: "m1", Name: "steak frites", Category: models.CategoryMain, Price: 25,
			AdminEnabled: true,
			Requirements: []models.StockRequirement{{StockItemName: "steak", QuantityPerUnit: 1}},
		}},
		coupon,
	)

	now := time.Now()
	f.couponRepo.claims["cl1"] = &models.CouponClaim{
		ID: "cl1", CustomerID: "bob", CouponID: "c1",
		ClaimedAt: now, ExpiresAt: now.Add(time.Hour),
	}

	_, err := f.svc.PlaceOrder(&PlaceOrderRequest{
		CustomerID:    "alice",
		CouponClaimID: "cl1",
		Lines:         []PlaceOrderLine{{MenuItemID: "m1", Quantity: 1}},
	})
	assert.True(t, models.IsValidation(err))
	assert.False(t, f.couponRepo.claims["cl1"].IsUsed)
}

func TestConcurrentPlacementsNeverOversell(t *testing.T) {
	f := newOrderFixture(t,
		[]*models.StockItem{{Name: "steak", ReserveQuantity: 2, ActiveQuantity: 3}},
		[]*models.MenuItem{{
			ID: "m1", Name: "steak frites", Category: models.CategoryMain, Price: 25,
			AdminEnabled: true,
			Requirements: []models.StockRequirement{{StockItemName: "steak", QuantityPerUnit: 1}},
		}},
	)

	const workers = 10
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			_, err := f.svc.PlaceOrder(&PlaceOrderRequest{
				CustomerID: fmt.Sprintf("customer-%d", n),
				Lines:      []PlaceOrderLine{{MenuItemID: "m1", Quantity: 1}},
			})
			errs <- err
		}(i)
	}

	succeeded := 0
	for i := 0; i < workers; i++ {
		if err := <-errs; err == nil {
			succeeded++
		}
	}

	assert.Equal(t, 5, succeeded, "exactly the available total can sell")
	assert.Equal(t, 0, f.stockRepo.items["steak"].TotalQuantity())
}
