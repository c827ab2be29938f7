// Package services provides external service integrations: the upstream panel, checkout providers,
// the catalog cache, ops notifications, payload archiving and identity tokens
package services

import (
	"context"
	"encoding/json"
	"fmt"
)

// CheckoutInput describes one hosted checkout session for a local deposit
type CheckoutInput struct {
	DepositID   string
	UserID      string
	Email       string
	AmountCents int64
	RedirectURL string
	CancelURL   string
}

// CheckoutResult is what the provider returned for a created checkout
type CheckoutResult struct {
	URL             string
	ProviderID      string
	ProviderOrderID *string
	Raw             json.RawMessage
}

// PaymentProvider creates hosted checkout sessions
type PaymentProvider interface {
	Name() string
	Env() string
	CreateCheckout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error)
}

// ProviderError carries a provider-side failure message back to the caller
type ProviderError struct {
	Provider string
	Status   int
	Message  string
	Body     json.RawMessage
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
