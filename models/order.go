package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus tracks the local view of an order forwarded to the panel
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusCanceled  OrderStatus = "canceled"
	OrderStatusRefilling OrderStatus = "refilling"
)

// Order is a paid request forwarded to the upstream panel.
type Order struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string          `gorm:"type:text;not null;index" json:"user_id"`
	ServiceID        string          `gorm:"type:text;not null" json:"service_id"`
	ServiceName      string          `gorm:"type:text" json:"service_name"`
	Link             string          `gorm:"type:text;not null" json:"link"`
	Quantity         int64           `gorm:"not null" json:"quantity"`
	Runs             *int64          `json:"runs,omitempty"`
	Interval         *int64          `gorm:"column:run_interval" json:"interval,omitempty"`
	CostCents        int64           `gorm:"not null" json:"cost_cents"`
	Status           OrderStatus     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ProviderOrderID  *string         `gorm:"type:text;index" json:"provider_order_id,omitempty"`
	UpstreamStatus   *string         `gorm:"type:text" json:"upstream_status,omitempty"`
	UpstreamResponse json.RawMessage `gorm:"type:jsonb" json:"upstream_response,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	return nil
}

// OrderFilter represents filter criteria for order queries
type OrderFilter struct {
	ID              *uuid.UUID
	UserID          *string
	Status          *OrderStatus
	ProviderOrderID *string
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
}
