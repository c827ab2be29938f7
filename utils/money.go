package utils

import (
	"fmt"
	"math"
)

// RoundCents rounds a dollar amount to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// DollarsToCents converts a major-unit amount to the nearest cent.
func DollarsToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// CentsToDollarString formats cents as "12.34".
func CentsToDollarString(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
