package procurement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
)

// Goods receipt statuses.
type GRNStatus string

const (
	GRNStatusDraft     GRNStatus = "draft"
	GRNStatusVerified  GRNStatus = "verified"
	GRNStatusCancelled GRNStatus = "cancelled"
)

// GoodsReceipt records goods arriving from a supplier at one location.
// Stock only moves when the receipt is verified.
type GoodsReceipt struct {
	versioned.Meta
	GRNNumber     string     `json:"grn_number"`
	SupplierID    *int64     `json:"supplier_id,omitempty"`
	LocationID    int64      `json:"location_id"`
	Status        GRNStatus  `json:"status"`
	Notes         string     `json:"notes,omitempty"`
	ItemSignature string     `json:"-"`
	CreatedBy     *int64     `json:"created_by,omitempty"`
	VerifiedBy    *int64     `json:"verified_by,omitempty"`
	CancelledBy   *int64     `json:"cancelled_by,omitempty"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	Items         []GRNLine  `json:"items"`
}

// GRNLine describes received goods.
type GRNLine struct {
	ID        int64           `json:"id"`
	GRNID     int64           `json:"grn_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// GRNLineInput for GRN.
type GRNLineInput struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// CreateGRNInput describes GRN creation.
type CreateGRNInput struct {
	SupplierID *int64         `json:"supplier_id" validate:"omitempty,gt=0"`
	LocationID int64          `json:"location_id" validate:"required,gt=0"`
	Notes      string         `json:"notes" validate:"max=500"`
	Items      []GRNLineInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateGRNInput replaces the header and lines of a draft.
type UpdateGRNInput struct {
	Version int64 `json:"version" validate:"required,gt=0"`
	CreateGRNInput
}

// GRNFilter narrows listings.
type GRNFilter struct {
	Status     GRNStatus
	SupplierID int64
	LocationID int64
}

type lineSignature struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitCost  string `json:"unit_cost"`
}

// grnSignature is the hashed identity of a draft receipt.
type grnSignature struct {
	SupplierID int64           `json:"supplier_id"`
	LocationID int64           `json:"location_id"`
	Items      []lineSignature `json:"items"`
}
