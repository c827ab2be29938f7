package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/utils"
)

func decode(t *testing.T, body string) any {
	t.Helper()
	doc, err := utils.DecodeJSON([]byte(body))
	require.NoError(t, err)
	return doc
}

func TestCoinbaseRules(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		refs   []string
		cross  string
		typ    string
		status string
		amount int64
	}{
		{
			name:   "event envelope",
			body:   `{"event":{"type":"charge:confirmed","data":{"id":"c1","code":"K1","metadata":{"deposit_id":"d1"},"timeline":[{"status":"NEW"},{"status":"COMPLETED"}],"pricing":{"local":{"amount":"12.34"}}}}}`,
			refs:   []string{"c1", "K1"},
			cross:  "d1",
			typ:    "charge:confirmed",
			status: "completed",
			amount: 1234,
		},
		{
			name:  "camel case metadata",
			body:  `{"event":{"type":"charge:pending","data":{"id":"c2","metadata":{"depositId":"d2"}}}}`,
			refs:  []string{"c2"},
			cross: "d2",
			typ:   "charge:pending",
		},
		{
			name:   "charge status without timeline",
			body:   `{"event":{"type":"charge:resolved","data":{"code":"K3","status":"RESOLVED"}}}`,
			refs:   []string{"K3"},
			typ:    "charge:resolved",
			status: "resolved",
		},
		{
			name:  "bare data envelope",
			body:  `{"type":"charge:failed","data":{"id":"c4","code":"K4","metadata":{"deposit_id":"d4"}}}`,
			refs:  []string{"c4", "K4"},
			cross: "d4",
			typ:   "charge:failed",
		},
		{
			name: "empty object",
			body: `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := RulesFor(models.DepositMethodCoinbase).Extract(decode(t, tt.body))
			assert.Equal(t, tt.refs, ev.ReferenceIDs)
			assert.Equal(t, tt.cross, ev.CrossRef)
			assert.Equal(t, tt.typ, ev.EventType)
			assert.Equal(t, tt.status, ev.Status)
			if tt.amount == 0 {
				assert.Nil(t, ev.AmountCents)
			} else {
				require.NotNil(t, ev.AmountCents)
				assert.Equal(t, tt.amount, *ev.AmountCents)
			}
		})
	}
}

func TestSquareRules(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		refs   []string
		cross  string
		typ    string
		status string
		amount int64
	}{
		{
			name:   "payment with order and link",
			body:   `{"type":"payment.updated","data":{"object":{"payment":{"payment_link_id":"L1","order_id":"O1","status":"COMPLETED","note":"deposit:d1","amount_money":{"amount":500}}}}}`,
			refs:   []string{"L1", "O1"},
			cross:  "deposit:d1",
			typ:    "payment.updated",
			status: "completed",
			amount: 500,
		},
		{
			name:  "payment link object",
			body:  `{"type":"payment_link.updated","data":{"object":{"payment_link_id":"L2","payment_link":{"id":"L2b"}}}}`,
			refs:  []string{"L2", "L2b"},
			typ:   "payment_link.updated",
		},
		{
			name:   "order object",
			body:   `{"event_type":"order.updated","data":{"object":{"order_id":"O3","order":{"id":"O3","state":"COMPLETED","reference_id":"d3","total_money":{"amount":1500}}}}}`,
			refs:   []string{"O3"},
			cross:  "d3",
			typ:    "order.updated",
			status: "completed",
			amount: 1500,
		},
		{
			name:   "doubly nested payment",
			body:   `{"type":"payment.created","data":{"object":{"object":{"payment":{"order_id":"O4","status":"APPROVED"}}}}}`,
			refs:   []string{"O4"},
			typ:    "payment.created",
			status: "approved",
		},
		{
			name:  "reference id on payment",
			body:  `{"type":"payment.updated","data":{"object":{"payment":{"reference_id":"d5"}}}}`,
			cross: "d5",
			typ:   "payment.updated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := RulesFor(models.DepositMethodSquare).Extract(decode(t, tt.body))
			assert.Equal(t, tt.refs, ev.ReferenceIDs)
			assert.Equal(t, tt.cross, ev.CrossRef)
			assert.Equal(t, tt.typ, ev.EventType)
			assert.Equal(t, tt.status, ev.Status)
			if tt.amount == 0 {
				assert.Nil(t, ev.AmountCents)
			} else {
				require.NotNil(t, ev.AmountCents)
				assert.Equal(t, tt.amount, *ev.AmountCents)
			}
		})
	}
}

func TestClassifyEvent(t *testing.T) {
	tests := []struct {
		status    string
		eventType string
		class     EventClass
		indicator string
	}{
		{status: "completed", class: EventClassSuccess, indicator: "completed"},
		{status: "CAPTURED", class: EventClassSuccess, indicator: "captured"},
		{eventType: "charge:confirmed", class: EventClassSuccess, indicator: "confirmed"},
		{eventType: "charge:resolved", class: EventClassSuccess, indicator: "resolved"},
		{status: "pending", eventType: "charge:confirmed", class: EventClassSuccess, indicator: "confirmed"},
		{status: "declined", eventType: "payment.updated", class: EventClassFailure, indicator: "declined"},
		{eventType: "charge:failed", class: EventClassFailure, indicator: "failed"},
		{status: "cancelled", class: EventClassFailure, indicator: "cancelled"},
		{status: "completed", eventType: "charge:failed", class: EventClassSuccess, indicator: "completed"},
		{eventType: "payment.updated", class: EventClassIgnored, indicator: "updated"},
		{class: EventClassIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.status+"|"+tt.eventType, func(t *testing.T) {
			class, indicator := ClassifyEvent(tt.status, tt.eventType)
			assert.Equal(t, tt.class, class)
			assert.Equal(t, tt.indicator, indicator)
		})
	}
}

func TestFailureStatus(t *testing.T) {
	assert.Equal(t, models.DepositStatusCanceled, FailureStatus("canceled"))
	assert.Equal(t, models.DepositStatusCanceled, FailureStatus("cancelled"))
	assert.Equal(t, models.DepositStatusFailed, FailureStatus("expired"))
	assert.Equal(t, models.DepositStatusFailed, FailureStatus("declined"))
}
