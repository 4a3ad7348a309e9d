package models

import "time"

// MenuItem is a sellable catalog entry. Available is derived and stored:
// it holds admin_enabled AND the resolver's stock-sufficiency verdict, so
// reads never recompute it. The resolver rewrites it after every ledger
// change.
type MenuItem struct {
	ID           string             `json:"menu_item_id" db:"id"`
	Name         string             `json:"name" db:"name"`
	Description  string             `json:"description" db:"description"`
	Category     MenuCategory       `json:"category" db:"category"`
	Price        float64            `json:"price" db:"price"`
	AdminEnabled bool               `json:"admin_enabled" db:"admin_enabled"`
	Available    bool               `json:"available" db:"available"`
	Requirements []StockRequirement `json:"stock_requirements"`
	CreatedAt    time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" db:"updated_at"`
}

// StockRequirement maps a menu item to one stock item it consumes, by the
// stock item's unique name, with the quantity used per unit sold.
type StockRequirement struct {
	StockItemName   string `json:"stock_item_name" db:"stock_item_name"`
	QuantityPerUnit int    `json:"quantity_per_unit" db:"quantity_per_unit"`
}

type MenuCategory string

const (
	CategoryMain    MenuCategory = "main"
	CategorySide    MenuCategory = "side"
	CategoryAddOn   MenuCategory = "add_on"
	CategoryDrink   MenuCategory = "drink"
	CategoryDessert MenuCategory = "dessert"
)

// ValidMenuCategory reports whether the category is one of the known values.
func ValidMenuCategory(c MenuCategory) bool {
	switch c {
	case CategoryMain, CategorySide, CategoryAddOn, CategoryDrink, CategoryDessert:
		return true
	default:
		return false
	}
}
