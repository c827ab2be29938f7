package models

// Service is one normalized entry of the upstream panel catalog. It is not persisted.
type Service struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	CategorySlug   string   `json:"category_slug"`
	Type           string   `json:"type"`
	PanelRatePer1K float64  `json:"panel_rate_per_1k"`
	PricePer1K     float64  `json:"price_per_1k"`
	Min            int64    `json:"min"`
	Max            int64    `json:"max"`
	Dripfeed       bool     `json:"dripfeed"`
	Refill         bool     `json:"refill"`
	Cancel         bool     `json:"cancel"`
	Real           bool     `json:"real"`
	Fast           bool     `json:"fast"`
	Tier           string   `json:"tier"`
	Tags           []string `json:"tags"`
	Details        string   `json:"details,omitempty"`
}

// Service tiers by resale price per 1000 units
const (
	ServiceTierBudget    = "Budget"
	ServiceTierPremium   = "Premium"
	ServiceTierSpecialty = "Specialty"
)

// AllowsQuantity reports whether qty is within the service bounds; a zero bound is open.
func (s Service) AllowsQuantity(qty int64) bool {
	if qty <= 0 {
		return false
	}
	if s.Min > 0 && qty < s.Min {
		return false
	}
	if s.Max > 0 && qty > s.Max {
		return false
	}
	return true
}
