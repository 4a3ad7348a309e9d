package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brasserie/models"
)

func newResolver(t *testing.T, menuRepo *fakeMenuRepo, stockRepo *fakeStockRepo) *AvailabilityService {
	t.Helper()
	resolver, err := NewAvailabilityService(testLogger(), menuRepo, stockRepo)
	require.NoError(t, err)
	return resolver
}

func TestRecomputeAllDerivesAvailability(t *testing.T) {
	stockRepo := newFakeStockRepo(
		&models.StockItem{Name: "steak", ReserveQuantity: 1, ActiveQuantity: 0},
		&models.StockItem{Name: "chicken", ReserveQuantity: 0, ActiveQuantity: 0},
	)
	menuRepo := newFakeMenuRepo(
		&models.MenuItem{
			ID: "m1", Name: "steak plate", AdminEnabled: true,
			Requirements: []models.StockRequirement{{StockItemName: "steak", QuantityPerUnit: 1}},
		},
		&models.MenuItem{
			ID: "m2", Name: "chicken plate", AdminEnabled: true, Available: true,
			Requirements: []models.StockRequirement{{StockItemName: "chicken", QuantityPerUnit: 1}},
		},
		&models.MenuItem{
			ID: "m3", Name: "disabled plate", AdminEnabled: false, Available: true,
			Requirements: []models.StockRequirement{{StockItemName: "steak", QuantityPerUnit: 1}},
		},
	)
	resolver := newResolver(t, menuRepo, stockRepo)

	require.NoError(t, resolver.RecomputeAll())

	assert.True(t, menuRepo.items["m1"].Available, "reserve-only stock still satisfies the requirement")
	assert.False(t, menuRepo.items["m2"].Available, "no stock at either site")
	assert.False(t, menuRepo.items["m3"].Available, "admin-disabled overrides stock")
}

func TestRecomputeAllBumpsRevisionOnlyOnChange(t *testing.T) {
	stockRepo := newFakeStockRepo(&models.StockItem{Name: "steak", ActiveQuantity: 5})
	menuRepo := newFakeMenuRepo(&models.MenuItem{
		ID: "m1", Name: "steak plate", AdminEnabled: true,
		Requirements: []models.StockRequirement{{StockItemName: "steak", QuantityPerUnit: 1}},
	})
	resolver := newResolver(t, menuRepo, stockRepo)

	require.NoError(t, resolver.RecomputeAll())
	rev := resolver.Revision()
	assert.Equal(t, int64(1), rev)

	// Nothing changed; revision must hold still.
	require.NoError(t, resolver.RecomputeAll())
	assert.Equal(t, rev, resolver.Revision())

	stockRepo.items["steak"].ActiveQuantity = 0
	require.NoError(t, resolver.RecomputeAll())
	assert.Equal(t, rev+1, resolver.Revision())
	assert.False(t, menuRepo.items["m1"].Available)
}

func TestRequirementsForFallsBackToSeedTable(t *testing.T) {
	stockRepo := newFakeStockRepo(&models.StockItem{Name: "potatoes", ActiveQuantity: 1})
	menuRepo := newFakeMenuRepo(&models.MenuItem{
		ID: "m1", Name: "frites", AdminEnabled: true,
	})
	resolver := newResolver(t, menuRepo, stockRepo)

	reqs := resolver.RequirementsFor(menuRepo.items["m1"])
	require.Len(t, reqs, 1)
	assert.Equal(t, "potatoes", reqs[0].StockItemName)
	assert.Equal(t, 2, reqs[0].QuantityPerUnit)

	require.NoError(t, resolver.RecomputeAll())
	assert.False(t, menuRepo.items["m1"].Available, "one potato cannot satisfy a two-potato requirement")

	stockRepo.items["potatoes"].ActiveQuantity = 2
	require.NoError(t, resolver.RecomputeAll())
	assert.True(t, menuRepo.items["m1"].Available)
}

func TestSnapshotCarriesRevision(t *testing.T) {
	stockRepo := newFakeStockRepo(&models.StockItem{Name: "steak", ActiveQuantity: 1})
	menuRepo := newFakeMenuRepo(&models.MenuItem{
		ID: "m1", Name: "steak plate", Category: models.CategoryMain, Price: 25, AdminEnabled: true,
		Requirements: []models.StockRequirement{{StockItemName: "steak", QuantityPerUnit: 1}},
	})
	resolver := newResolver(t, menuRepo, stockRepo)
	require.NoError(t, resolver.RecomputeAll())

	snapshot, err := resolver.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, resolver.Revision(), snapshot.Revision)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "steak plate", snapshot.Items[0].Name)
	assert.True(t, snapshot.Items[0].Available)
}
