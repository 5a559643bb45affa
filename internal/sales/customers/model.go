package customers

import "github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/platform/versioned"

// Customer is a billing party. State decides whether GST is split into
// CGST/SGST or charged as IGST.
type Customer struct {
	versioned.Meta
	Name    string  `json:"name"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	GSTIN   *string `json:"gstin,omitempty"`
	State   string  `json:"state"`
	Address *string `json:"address,omitempty"`
}

// Snapshot is the denormalized identity stored on invoices.
type Snapshot struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	GSTIN   string `json:"gstin,omitempty"`
	State   string `json:"state"`
	Address string `json:"address,omitempty"`
}

func (c Customer) Snapshot() Snapshot {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return Snapshot{
		ID:      c.ID,
		Name:    c.Name,
		Email:   deref(c.Email),
		Phone:   deref(c.Phone),
		GSTIN:   deref(c.GSTIN),
		State:   c.State,
		Address: deref(c.Address),
	}
}
