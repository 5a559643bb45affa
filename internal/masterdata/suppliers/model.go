package suppliers

import "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"

// Supplier is a vendor goods are received from.
type Supplier struct {
	versioned.Meta
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	GSTIN   string `json:"gstin"`
	Address string `json:"address"`
}

type SupplierForm struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=32"`
	GSTIN   string `json:"gstin" validate:"omitempty,len=15"`
	Address string `json:"address" validate:"max=500"`
}

type updateForm struct {
	SupplierForm
	Version int64 `json:"version" validate:"required,gt=0"`
}
