package services

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/utils"
	"github.com/gosimple/slug"
)

// ErrUnexpectedCatalogShape is returned when the services reply is neither an array nor {data:[...]}
var ErrUnexpectedCatalogShape = errors.New("unexpected services response shape")

type markupBand struct {
	below float64
	mult  float64
	add   float64
}

// markupBands are ordered by ascending upper bound; the last band is open.
var markupBands = []markupBand{
	{below: 1, mult: 2.2, add: 0.25},
	{below: 5, mult: 2.0, add: 0.25},
	{below: 20, mult: 1.6, add: 0.50},
	{below: 100, mult: 1.35, add: 1.00},
	{below: 300, mult: 1.20, add: 2.00},
	{below: math.Inf(1), mult: 1.12, add: 4.00},
}

// ResalePrice maps an upstream per-1000 rate to the storefront price per 1000
func ResalePrice(base float64) float64 {
	if math.IsNaN(base) || math.IsInf(base, 0) || base <= 0 {
		return 0
	}
	var out float64
	for _, band := range markupBands {
		if base < band.below {
			out = base*band.mult + band.add
			break
		}
	}
	out = math.Max(out, base*1.05)
	out = math.Max(out, 0.99)
	return utils.RoundCents(out)
}

// ServiceTier buckets a resale price
func ServiceTier(price float64) string {
	switch {
	case price < 20:
		return models.ServiceTierBudget
	case price < 100:
		return models.ServiceTierPremium
	default:
		return models.ServiceTierSpecialty
	}
}

var (
	brandPattern       = regexp.MustCompile(`(?i)smmgoal`)
	brandPrefixPattern = regexp.MustCompile(`(?i)\[(?:smmgoal|dropsource)\]\s*[—-]\s*`)
	realPattern        = regexp.MustCompile(`(?i)real`)
	fastPattern        = regexp.MustCompile(`(?i)fast|instant|speed`)

	geoTags = []string{"usa", "uk", "korea", "india", "brazil", "mexico", "turkey", "russia", "indonesia",
		"italy", "france", "germany", "uae", "saudi", "japan", "spain", "canada", "global", "worldwide"}
)

// SanitizeServiceName hides upstream branding
func SanitizeServiceName(raw string) string {
	name := brandPattern.ReplaceAllString(raw, "DropSource")
	name = brandPrefixPattern.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// NormalizeService maps one upstream record; ok is false for records without an id
func NormalizeService(raw map[string]any) (models.Service, bool) {
	id := firstString(raw, "service", "id", "service_id")
	if id == "" {
		return models.Service{}, false
	}

	rawName := firstString(raw, "name")
	if rawName == "" {
		rawName = "Service"
	}
	name := SanitizeServiceName(rawName)
	category := firstString(raw, "category")
	details := firstString(raw, "description", "note")
	rate, _ := firstFloat(raw, "rate", "price", "price_per_1k", "pricePer1000", "price_per_1000")
	minQty, _ := firstFloat(raw, "min", "min_order")
	maxQty, _ := firstFloat(raw, "max", "max_order")

	svcType := firstString(raw, "type", "kind")
	if svcType == "" {
		svcType = "Default"
	}

	var tags []string
	if arr, ok := raw["tags"].([]any); ok {
		for _, t := range arr {
			if s := utils.ScalarString(t); s != "" {
				tags = append(tags, s)
			}
		}
	}
	if category != "" {
		tags = append(tags, category)
	}
	if details != "" {
		tags = append(tags, details)
	}
	lower := strings.ToLower(name + " " + category)
	for _, g := range geoTags {
		if strings.Contains(lower, g) {
			tags = append(tags, strings.ToUpper(g))
		}
	}

	price := ResalePrice(rate)
	return models.Service{
		ID:             id,
		Name:           name,
		Category:       category,
		CategorySlug:   slug.Make(category),
		Type:           svcType,
		PanelRatePer1K: rate,
		PricePer1K:     price,
		Min:            int64(minQty),
		Max:            int64(maxQty),
		Dripfeed:       firstBool(raw, "dripfeed", "drip"),
		Refill:         firstBool(raw, "refill", "refill_time"),
		Cancel:         firstBool(raw, "cancel"),
		Real:           realPattern.MatchString(details) || realPattern.MatchString(rawName),
		Fast:           fastPattern.MatchString(rawName),
		Tier:           ServiceTier(price),
		Tags:           tags,
		Details:        details,
	}, true
}

// NormalizeCatalog accepts a JSON array or an object with a data array
func NormalizeCatalog(raw json.RawMessage) ([]models.Service, error) {
	doc, err := utils.DecodeJSON(raw)
	if err != nil {
		return nil, ErrUnexpectedCatalogShape
	}
	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		arr, ok := v["data"].([]any)
		if !ok {
			return nil, ErrUnexpectedCatalogShape
		}
		items = arr
	default:
		return nil, ErrUnexpectedCatalogShape
	}

	services := make([]models.Service, 0, len(items))
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if svc, ok := NormalizeService(rec); ok {
			services = append(services, svc)
		}
	}
	return services, nil
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			if s := utils.ScalarString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstFloat(raw map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			if f, ok := utils.ScalarFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func firstBool(raw map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return utils.ScalarBool(v)
		}
	}
	return false
}
