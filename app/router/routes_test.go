package router

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropsource/storefront/app/dto"
	"github.com/dropsource/storefront/app/handlers"
	"github.com/dropsource/storefront/app/middleware"
	"github.com/dropsource/storefront/config"
)

// newTestRouter mounts real handlers; only routes that never reach a flow are exercised
func newTestRouter(cfg *config.ProductionConfig) Router {
	r := NewFiberRouter(cfg, Handlers{
		Health:  handlers.NewHealthHandler(cfg.Deployment),
		Catalog: handlers.NewCatalogHandler(nil),
		Wallet:  handlers.NewWalletHandler(nil),
		Deposit: handlers.NewDepositHandler(nil),
		Order:   handlers.NewOrderHandler(nil),
		Webhook: handlers.NewWebhookHandler(nil),
		Admin:   handlers.NewAdminHandler(nil),
	}, middleware.NewIdentityMiddleware(nil, false))
	r.SetupRoutes()
	return r
}

func call(t *testing.T, r Router, method, target string) (int, string, map[string][]string) {
	t.Helper()
	resp, err := r.GetApp().Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload dto.APIResponse
	code := ""
	if json.Unmarshal(body, &payload) == nil {
		if detail, ok := payload.Error.(map[string]any); ok {
			code, _ = detail["code"].(string)
		}
	}
	return resp.StatusCode, code, resp.Header
}

func TestRoutes(t *testing.T) {
	r := newTestRouter(&config.ProductionConfig{})

	tests := []struct {
		name           string
		method         string
		target         string
		expectedStatus int
		expectedCode   string
	}{
		{"health", "GET", "/api/v1/health", 200, ""},
		{"ping", "GET", "/api/v1/ping?echo=hi", 200, ""},
		{"wallet requires identity", "GET", "/api/v1/wallet", 401, "MISSING_IDENTITY"},
		{"deposits require identity", "POST", "/api/v1/deposits/coinbase", 401, "MISSING_IDENTITY"},
		{"orders require identity", "GET", "/api/v1/orders", 401, "MISSING_IDENTITY"},
		{"admin disabled without key hash", "GET", "/api/v1/admin/deposits", 401, "ADMIN_DISABLED"},
		{"unknown route", "GET", "/api/v1/nope", 404, "NOT_FOUND"},
		{"wrong method on webhook", "GET", "/api/v1/webhooks/coinbase", 404, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, header := call(t, r, tt.method, tt.target)
			assert.Equal(t, tt.expectedStatus, status)
			assert.Equal(t, tt.expectedCode, code)
			assert.NotEmpty(t, header["X-Request-Id"])
		})
	}
}

func TestRateLimiter(t *testing.T) {
	cfg := &config.ProductionConfig{}
	cfg.Security.GlobalRateLimit = 2
	r := newTestRouter(cfg)

	for i := 0; i < 2; i++ {
		status, _, _ := call(t, r, "GET", "/api/v1/wallet")
		assert.Equal(t, 401, status)
	}

	status, code, _ := call(t, r, "GET", "/api/v1/wallet")
	assert.Equal(t, 429, status)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", code)

	// probes sit in front of the limiter
	status, _, _ = call(t, r, "GET", "/api/v1/health")
	assert.Equal(t, 200, status)
}

func TestCORSConfig(t *testing.T) {
	cfg := &config.ProductionConfig{}
	cfg.Security.AllowCredentials = true
	r := NewFiberRouter(cfg, Handlers{}, nil).(*FiberRouter)

	cc := r.corsConfig()
	assert.Equal(t, []string{"*"}, cc.AllowOrigins)
	assert.False(t, cc.AllowCredentials)

	cfg.Security.AllowedOrigins = []string{"https://shop.example"}
	cc = r.corsConfig()
	assert.True(t, cc.AllowCredentials)
}
