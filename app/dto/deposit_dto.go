package dto

import "encoding/json"

// CreateDepositRequest carries either amount_cents (preferred) or amount in dollars
type CreateDepositRequest struct {
	AmountCents *json.Number `json:"amount_cents,omitempty" example:"500"`
	Amount      *json.Number `json:"amount,omitempty" example:"5.00"`
}

// CreateDepositResponse returns the hosted checkout for a pending deposit
type CreateDepositResponse struct {
	URL         string `json:"url"`
	DepositID   string `json:"deposit_id"`
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	ProviderID  string `json:"provider_id"`
	Env         string `json:"env,omitempty"`
}

// DepositDTO is the admin view of a deposit
type DepositDTO struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	Method          string  `json:"method"`
	AmountCents     int64   `json:"amount_cents"`
	Status          string  `json:"status"`
	ProviderID      *string `json:"provider_id,omitempty"`
	ProviderOrderID *string `json:"provider_order_id,omitempty"`
	CreditedAt      *string `json:"credited_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}
