package customers

type CreateCustomerRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	GSTIN   *string `json:"gstin,omitempty" validate:"omitempty,len=15"`
	State   string  `json:"state" validate:"required,max=100"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

type UpdateCustomerRequest struct {
	Version int64   `json:"version" validate:"required,gt=0"`
	Name    *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	GSTIN   *string `json:"gstin,omitempty" validate:"omitempty,len=15"`
	State   *string `json:"state,omitempty" validate:"omitempty,max=100"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
}
