package inventory

import (
	"time"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"
)

// MovementType classifies a ledger row.
type MovementType string

const (
	// MovementStockIn receives goods into a location.
	MovementStockIn MovementType = "STOCK_IN"
	// MovementStockOut issues goods out of a location.
	MovementStockOut MovementType = "STOCK_OUT"
	// MovementTransferIn is the receiving leg of a transfer.
	MovementTransferIn MovementType = "TRANSFER_IN"
	// MovementTransferOut is the sending leg of a transfer.
	MovementTransferOut MovementType = "TRANSFER_OUT"
	// MovementAdjustment corrects stock in either direction.
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// ReferenceType names the document that caused a movement.
type ReferenceType string

// Registered reference types.
const (
	ReferenceGRN        ReferenceType = "GRN"
	ReferenceInvoice    ReferenceType = "INVOICE"
	ReferenceTransfer   ReferenceType = "TRANSFER"
	ReferenceAdjustment ReferenceType = "ADJUSTMENT"
)

func (r ReferenceType) valid() bool {
	switch r {
	case ReferenceGRN, ReferenceInvoice, ReferenceTransfer, ReferenceAdjustment:
		return true
	}
	return false
}

// Well-known location codes used by the stock summary.
const (
	LocationGodown   = "godown"
	LocationShowroom = "showroom"
)

// Movement is an immutable ledger row.
type Movement struct {
	ID             int64         `json:"id"`
	ProductID      int64         `json:"product_id"`
	LocationID     int64         `json:"location_id"`
	QuantityChange int64         `json:"quantity_change"`
	MovementType   MovementType  `json:"movement_type"`
	ReferenceType  ReferenceType `json:"reference_type"`
	ReferenceID    int64         `json:"reference_id"`
	Note           string        `json:"note,omitempty"`
	ActorID        *int64        `json:"actor_id,omitempty"`
	ActorName      string        `json:"actor_name"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Balance is the derived quantity for a (product, location) pair.
type Balance struct {
	ProductID  int64     `json:"product_id"`
	LocationID int64     `json:"location_id"`
	Quantity   int64     `json:"quantity"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MovementInput is the contract of ApplyMovement.
type MovementInput struct {
	ProductID      int64
	LocationID     int64
	QuantityChange int64
	MovementType   MovementType
	ReferenceType  ReferenceType
	ReferenceID    int64
	Note           string
}

// Location is a physical stock point.
type Location struct {
	versioned.Meta
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// LocationInput carries create/update fields.
type LocationInput struct {
	Code string `json:"code" validate:"required,max=32"`
	Name string `json:"name" validate:"required,max=120"`
}

// ProductRef is the slice of a product the ledger needs.
type ProductRef struct {
	ID        int64
	SKU       string
	Name      string
	IsDeleted bool
}

// TransferStatus enumerates the transfer lifecycle.
type TransferStatus string

// Transfer statuses.
const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

// StockTransfer moves quantity between two locations.
type StockTransfer struct {
	versioned.Meta
	ProductID      int64          `json:"product_id"`
	Quantity       int64          `json:"quantity"`
	FromLocationID int64          `json:"from_location_id"`
	ToLocationID   int64          `json:"to_location_id"`
	Status         TransferStatus `json:"status"`
	Note           string         `json:"note,omitempty"`
	ItemSignature  string         `json:"item_signature"`
	TransferredBy  *int64         `json:"transferred_by,omitempty"`
	CompletedBy    *int64         `json:"completed_by,omitempty"`
	CancelledBy    *int64         `json:"cancelled_by,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	CancelledAt    *time.Time     `json:"cancelled_at,omitempty"`
}

// TransferInput requests a new transfer.
type TransferInput struct {
	ProductID      int64  `json:"product_id" validate:"required,gt=0"`
	Quantity       int64  `json:"quantity" validate:"required,gt=0"`
	FromLocationID int64  `json:"from_location_id" validate:"required,gt=0"`
	ToLocationID   int64  `json:"to_location_id" validate:"required,gt=0"`
	Note           string `json:"note" validate:"max=500"`
}

// transferSignature is the hashed identity of a transfer request.
type transferSignature struct {
	ProductID      int64 `json:"product_id"`
	Quantity       int64 `json:"quantity"`
	FromLocationID int64 `json:"from_location_id"`
	ToLocationID   int64 `json:"to_location_id"`
}

// TransferFilter narrows transfer listings.
type TransferFilter struct {
	Status    TransferStatus
	ProductID int64
	Limit     int
	Offset    int
}

// AdjustmentInput corrects stock at one location.
type AdjustmentInput struct {
	ProductID      int64  `json:"product_id" validate:"required,gt=0"`
	LocationID     int64  `json:"location_id" validate:"required,gt=0"`
	QuantityChange int64  `json:"quantity_change" validate:"required"`
	Note           string `json:"note" validate:"required,max=500"`
}

// SummaryRow aggregates balances for the godown and showroom locations.
type SummaryRow struct {
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Godown    int64  `json:"godown"`
	Showroom  int64  `json:"showroom"`
	Total     int64  `json:"total"`
}

// BalanceFilter narrows balance listings.
type BalanceFilter struct {
	ProductID  int64
	LocationID int64
}
