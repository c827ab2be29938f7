package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexibleID accepts a JSON string or number; panels hand out numeric service ids.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number")
	}
	*f = FlexibleID(n.String())
	return nil
}

func (f FlexibleID) String() string {
	return string(f)
}

// CreateOrderRequest represents a new panel order paid from the wallet
type CreateOrderRequest struct {
	Service  FlexibleID `json:"service" validate:"required" example:"1024"`
	Link     string     `json:"link" validate:"required,max=2048" example:"https://instagram.com/p/abc"`
	Quantity int64      `json:"quantity" validate:"required,gt=0" example:"500"`
	Runs     *int64     `json:"runs,omitempty" validate:"omitempty,gt=0"`
	Interval *int64     `json:"interval,omitempty" validate:"omitempty,gt=0"`
	Comments string     `json:"comments,omitempty" validate:"omitempty,max=10000"`
}

// CreateOrderResponse is returned once the panel accepted the order
type CreateOrderResponse struct {
	OrderID         string `json:"order_id"`
	ProviderOrderID string `json:"provider_order_id"`
	CostCents       int64  `json:"cost_cents"`
	BalanceCents    int64  `json:"balance_cents"`
	Status          string `json:"status"`
}

// OrderDTO is the caller's view of an order
type OrderDTO struct {
	ID              string  `json:"id"`
	ServiceID       string  `json:"service_id"`
	ServiceName     string  `json:"service_name"`
	Link            string  `json:"link"`
	Quantity        int64   `json:"quantity"`
	Runs            *int64  `json:"runs,omitempty"`
	Interval        *int64  `json:"interval,omitempty"`
	CostCents       int64   `json:"cost_cents"`
	Status          string  `json:"status"`
	ProviderOrderID *string `json:"provider_order_id,omitempty"`
	UpstreamStatus  *string `json:"upstream_status,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// ListOrdersResponse is one page of orders, newest first
type ListOrdersResponse struct {
	Orders []OrderDTO `json:"orders"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// OrderActionResponse wraps the panel reply for status, cancel and refill
type OrderActionResponse struct {
	OrderID         string          `json:"order_id"`
	ProviderOrderID string          `json:"provider_order_id"`
	Status          string          `json:"status"`
	Upstream        json.RawMessage `json:"upstream"`
}
