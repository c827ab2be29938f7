// Package businessflow contains the storefront use cases: wallet bootstrap, deposits, webhook reconciliation, orders and the catalog
package businessflow

import (
	"strings"
	"time"

	"github.com/dropsource/storefront/app/dto"
	"github.com/dropsource/storefront/models"
)

const RequestIDKey = "X-Request-ID"

// Identity is the already-authenticated caller supplied by the boundary
type Identity struct {
	UserID string
	Email  *string
}

// NewIdentity trims the id and drops an empty email
func NewIdentity(userID, email string) Identity {
	id := Identity{UserID: strings.TrimSpace(userID)}
	if e := strings.TrimSpace(email); e != "" {
		id.Email = &e
	}
	return id
}

func (i Identity) EmailOrEmpty() string {
	if i.Email == nil {
		return ""
	}
	return *i.Email
}

// ClientMetadata holds client-related information for request logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// ToDepositDTO converts a deposit model for admin listings
func ToDepositDTO(d models.Deposit) dto.DepositDTO {
	return dto.DepositDTO{
		ID:              d.ID.String(),
		UserID:          d.UserID,
		Method:          string(d.Method),
		AmountCents:     d.AmountCents,
		Status:          string(d.Status),
		ProviderID:      d.ProviderID,
		ProviderOrderID: d.ProviderOrderID,
		CreditedAt:      formatTimePtr(d.CreditedAt),
		CreatedAt:       formatTime(d.CreatedAt),
		UpdatedAt:       formatTime(d.UpdatedAt),
	}
}

// ToOrderDTO converts an order model for the caller
func ToOrderDTO(o models.Order) dto.OrderDTO {
	return dto.OrderDTO{
		ID:              o.ID.String(),
		ServiceID:       o.ServiceID,
		ServiceName:     o.ServiceName,
		Link:            o.Link,
		Quantity:        o.Quantity,
		Runs:            o.Runs,
		Interval:        o.Interval,
		CostCents:       o.CostCents,
		Status:          string(o.Status),
		ProviderOrderID: o.ProviderOrderID,
		UpstreamStatus:  o.UpstreamStatus,
		CreatedAt:       formatTime(o.CreatedAt),
	}
}

// ToWebhookLogDTO converts a webhook log for admin listings
func ToWebhookLogDTO(l models.WebhookLog) dto.WebhookLogDTO {
	out := dto.WebhookLogDTO{
		ID:           l.ID,
		Source:       l.Source,
		Event:        l.Event,
		EventType:    l.EventType,
		HTTPStatus:   l.HTTPStatus,
		ErrorMessage: l.ErrorMessage,
		CreatedAt:    formatTime(l.CreatedAt),
	}
	if l.DepositID != nil {
		id := l.DepositID.String()
		out.DepositID = &id
	}
	if len(l.CandidateIDs) > 0 {
		out.CandidateIDs = []string(l.CandidateIDs)
	}
	return out
}

func clampPage(limit, offset, def, maxLimit int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
