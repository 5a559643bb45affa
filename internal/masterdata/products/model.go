package products

import (
	"github.com/shopspring/decimal"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
)

// Product represents a sellable item tracked in inventory.
type Product struct {
	versioned.Meta
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	MinStockThreshold int64           `json:"min_stock_threshold"`
	SupplierID        *int64          `json:"supplier_id,omitempty"`
}

// LowStockRow reports a product whose total stock is below its threshold.
type LowStockRow struct {
	ProductID         int64  `json:"product_id"`
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	OnHand            int64  `json:"on_hand"`
	MinStockThreshold int64  `json:"min_stock_threshold"`
}
