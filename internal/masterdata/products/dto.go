package products

import "github.com/shopspring/decimal"

type ProductForm struct {
	SKU               string          `json:"sku" validate:"required,max=64"`
	Name              string          `json:"name" validate:"required,max=200"`
	Description       string          `json:"description" validate:"max=2000"`
	Price             decimal.Decimal `json:"price"`
	MinStockThreshold int64           `json:"min_stock_threshold" validate:"gte=0"`
	SupplierID        *int64          `json:"supplier_id" validate:"omitempty,gt=0"`
}

type updateForm struct {
	ProductForm
	Version int64 `json:"version" validate:"required,gt=0"`
}
