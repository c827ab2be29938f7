package businessflow

import (
	"strings"

	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/utils"
)

// ExtractionRule names one JSON path probed in a webhook payload
type ExtractionRule struct {
	Name string
	Path string
}

// ProviderRules lists, per field, the paths to probe in order
type ProviderRules struct {
	ReferenceIDs []ExtractionRule
	CrossRefs    []ExtractionRule
	EventType    []ExtractionRule
	Status       []ExtractionRule
	Amount       []ExtractionRule
	// AmountInDollars marks amounts reported in major units
	AmountInDollars bool
}

// ExtractedEvent is what a payload yielded under a rule set
type ExtractedEvent struct {
	ReferenceIDs []string
	CrossRef     string
	EventType    string
	Status       string
	AmountCents  *int64
}

var CoinbaseRules = ProviderRules{
	ReferenceIDs: []ExtractionRule{
		{Name: "event_charge_id", Path: "event.data.id"},
		{Name: "event_charge_code", Path: "event.data.code"},
		{Name: "charge_id", Path: "data.id"},
		{Name: "charge_code", Path: "data.code"},
	},
	CrossRefs: []ExtractionRule{
		{Name: "metadata_deposit_id", Path: "event.data.metadata.deposit_id"},
		{Name: "metadata_deposit_id_camel", Path: "event.data.metadata.depositId"},
		{Name: "data_metadata_deposit_id", Path: "data.metadata.deposit_id"},
	},
	EventType: []ExtractionRule{
		{Name: "event_type", Path: "event.type"},
		{Name: "type", Path: "type"},
	},
	Status: []ExtractionRule{
		{Name: "timeline_last_status", Path: "event.data.timeline.-1.status"},
		{Name: "charge_status", Path: "event.data.status"},
	},
	Amount: []ExtractionRule{
		{Name: "pricing_local_amount", Path: "event.data.pricing.local.amount"},
	},
	AmountInDollars: true,
}

var SquareRules = ProviderRules{
	ReferenceIDs: []ExtractionRule{
		{Name: "payment_link_id", Path: "data.object.payment_link_id"},
		{Name: "nested_payment_link_id", Path: "data.object.payment_link.id"},
		{Name: "payment_payment_link_id", Path: "data.object.payment.payment_link_id"},
		{Name: "payment_order_id", Path: "data.object.payment.order_id"},
		{Name: "object_order_id", Path: "data.object.order_id"},
		{Name: "order_id", Path: "data.object.order.id"},
		{Name: "nested_payment_order_id", Path: "data.object.object.payment.order_id"},
	},
	CrossRefs: []ExtractionRule{
		{Name: "payment_note", Path: "data.object.payment.note"},
		{Name: "payment_reference_id", Path: "data.object.payment.reference_id"},
		{Name: "order_reference_id", Path: "data.object.order.reference_id"},
	},
	EventType: []ExtractionRule{
		{Name: "type", Path: "type"},
		{Name: "event_type", Path: "event_type"},
	},
	Status: []ExtractionRule{
		{Name: "payment_status", Path: "data.object.payment.status"},
		{Name: "nested_payment_status", Path: "data.object.object.payment.status"},
		{Name: "order_state", Path: "data.object.order.state"},
	},
	Amount: []ExtractionRule{
		{Name: "payment_amount", Path: "data.object.payment.amount_money.amount"},
		{Name: "order_total", Path: "data.object.order.total_money.amount"},
	},
}

// RulesFor returns the rule set of a provider
func RulesFor(method models.DepositMethod) ProviderRules {
	if method == models.DepositMethodSquare {
		return SquareRules
	}
	return CoinbaseRules
}

// FirstMatch returns the first non-empty string found by rules
func FirstMatch(doc any, rules []ExtractionRule) (string, bool) {
	for _, r := range rules {
		if s, ok := utils.LookupString(doc, r.Path); ok {
			return s, true
		}
	}
	return "", false
}

// AllMatches returns every distinct non-empty string found by rules, in rule order
func AllMatches(doc any, rules []ExtractionRule) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range rules {
		s, ok := utils.LookupString(doc, r.Path)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func (p ProviderRules) Extract(doc any) ExtractedEvent {
	ev := ExtractedEvent{ReferenceIDs: AllMatches(doc, p.ReferenceIDs)}
	ev.CrossRef, _ = FirstMatch(doc, p.CrossRefs)
	if t, ok := FirstMatch(doc, p.EventType); ok {
		ev.EventType = strings.ToLower(t)
	}
	if s, ok := FirstMatch(doc, p.Status); ok {
		ev.Status = strings.ToLower(s)
	}
	for _, r := range p.Amount {
		f, ok := utils.LookupFloat(doc, r.Path)
		if !ok {
			continue
		}
		var cents int64
		if p.AmountInDollars {
			cents = utils.DollarsToCents(f)
		} else {
			cents = int64(f)
		}
		ev.AmountCents = &cents
		break
	}
	return ev
}

// EventClass is the outcome a webhook event drives
type EventClass string

const (
	EventClassSuccess EventClass = "success"
	EventClassFailure EventClass = "failure"
	EventClassIgnored EventClass = "ignored"
)

var (
	successIndicators = []string{"completed", "confirmed", "resolved", "approved", "captured", "paid"}
	failureIndicators = []string{"canceled", "cancelled", "failed", "declined", "expired", "voided"}
)

// ClassifyEvent looks at the payment status first, then at the suffix of the event type
// ("charge:confirmed", "payment.updated"). The returned indicator is the matching word.
func ClassifyEvent(status, eventType string) (EventClass, string) {
	if class, word := classifyWord(status); class != EventClassIgnored {
		return class, word
	}
	t := strings.ToLower(strings.TrimSpace(eventType))
	if i := strings.LastIndexAny(t, ":."); i >= 0 {
		t = t[i+1:]
	}
	return classifyWord(t)
}

func classifyWord(s string) (EventClass, string) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return EventClassIgnored, ""
	}
	for _, w := range successIndicators {
		if s == w {
			return EventClassSuccess, w
		}
	}
	for _, w := range failureIndicators {
		if s == w {
			return EventClassFailure, w
		}
	}
	return EventClassIgnored, s
}

// FailureStatus maps a failure indicator to the deposit status it leaves behind
func FailureStatus(indicator string) models.DepositStatus {
	switch indicator {
	case "canceled", "cancelled":
		return models.DepositStatusCanceled
	default:
		return models.DepositStatusFailed
	}
}
