package dto

// WalletResponse is the caller's balance
type WalletResponse struct {
	BalanceCents int64  `json:"balance_cents" example:"1250"`
	Currency     string `json:"currency" example:"usd"`
}
