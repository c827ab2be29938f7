package utils

import (
	"time"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Money constants
const (
	USDCurrency = "usd"

	// MinDepositCents is the smallest accepted deposit ($1.00)
	MinDepositCents int64 = 100
)

// Identity header names
const (
	HeaderUserID    = "x-user-id"
	HeaderUserEmail = "x-user-email"
)

// Fiber locals keys
const (
	LocalUserID    = "user_id"
	LocalUserEmail = "user_email"
)

// Webhook headers
const (
	HeaderCoinbaseSignature = "X-CC-Webhook-Signature"
	HeaderSquareSignature   = "X-Square-HmacSha256-Signature"
	HeaderDebugNoVerify     = "X-Debug-No-Verify"
)

const (
	DefaultPanelTimeout    = 20 * time.Second
	DefaultProviderTimeout = 15 * time.Second
	DefaultCatalogTTL      = 10 * time.Minute
)
