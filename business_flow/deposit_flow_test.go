package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropsource/storefront/app/dto"
	"github.com/dropsource/storefront/app/services"
	"github.com/dropsource/storefront/config"
	"github.com/dropsource/storefront/models"
)

func numberPtr(s string) *json.Number {
	n := json.Number(s)
	return &n
}

func TestResolveAmountCents(t *testing.T) {
	tests := []struct {
		name     string
		req      *dto.CreateDepositRequest
		expected int64
		ok       bool
	}{
		{name: "integral cents", req: &dto.CreateDepositRequest{AmountCents: numberPtr("500")}, expected: 500, ok: true},
		{name: "cents written as float", req: &dto.CreateDepositRequest{AmountCents: numberPtr("500.0")}, expected: 500, ok: true},
		{name: "fractional cents rejected", req: &dto.CreateDepositRequest{AmountCents: numberPtr("12.5")}, ok: false},
		{name: "dollars", req: &dto.CreateDepositRequest{Amount: numberPtr("5")}, expected: 500, ok: true},
		{name: "dollars rounded to cent", req: &dto.CreateDepositRequest{Amount: numberPtr("0.994")}, expected: 99, ok: true},
		{name: "cents win over dollars", req: &dto.CreateDepositRequest{AmountCents: numberPtr("250"), Amount: numberPtr("10")}, expected: 250, ok: true},
		{name: "not a number", req: &dto.CreateDepositRequest{Amount: numberPtr("abc")}, ok: false},
		{name: "empty request", req: &dto.CreateDepositRequest{}, ok: false},
		{name: "nil request", req: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cents, ok := ResolveAmountCents(tt.req)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, cents)
			}
		})
	}
}

type depositFixture struct {
	store    *memStore
	coinbase *fakeProvider
	square   *fakeProvider
	flow     DepositFlow
}

func newDepositFixture(payments config.PaymentsConfig) *depositFixture {
	s := newMemStore()
	coinbase := &fakeProvider{name: "coinbase", env: "production"}
	square := &fakeProvider{name: "square", env: "sandbox"}
	providers := map[models.DepositMethod]services.PaymentProvider{
		models.DepositMethodCoinbase: coinbase,
		models.DepositMethodSquare:   square,
	}
	flow := NewDepositFlow(
		newTestWalletFlow(s),
		fakeDepositRepo{s},
		providers,
		payments,
		config.ServerConfig{PublicBaseURL: "https://shop.example/"},
	)
	return &depositFixture{store: s, coinbase: coinbase, square: square, flow: flow}
}

func TestDepositFlow_Create(t *testing.T) {
	ctx := context.Background()
	identity := NewIdentity("user-1", "buyer@example.com")

	t.Run("creates pending deposit and checkout", func(t *testing.T) {
		fx := newDepositFixture(config.PaymentsConfig{})

		resp, err := fx.flow.Create(ctx, identity, models.DepositMethodSquare, &dto.CreateDepositRequest{Amount: numberPtr("5")}, NewClientMetadata("127.0.0.1", "test"))
		require.NoError(t, err)

		assert.Equal(t, int64(500), resp.AmountCents)
		assert.Equal(t, "square", resp.Method)
		assert.Equal(t, "sandbox", resp.Env)
		assert.Equal(t, "https://checkout.example/"+resp.DepositID, resp.URL)

		require.Len(t, fx.square.inputs, 1)
		in := fx.square.inputs[0]
		assert.Equal(t, resp.DepositID, in.DepositID)
		assert.Equal(t, "buyer@example.com", in.Email)
		assert.Equal(t, "https://shop.example/balance?ok=1", in.RedirectURL)
		assert.Equal(t, "https://shop.example/balance?canceled=1", in.CancelURL)
		assert.Empty(t, fx.coinbase.inputs)

		require.Equal(t, 1, fx.store.depositCount())
		for _, d := range fx.store.deposits {
			assert.Equal(t, models.DepositStatusPending, d.Status)
			assert.Equal(t, int64(500), d.AmountCents)
			require.NotNil(t, d.ProviderID)
			assert.Equal(t, "ref-"+resp.DepositID, *d.ProviderID)
			require.NotNil(t, d.ProviderOrderID)
			assert.Equal(t, "order-"+resp.DepositID, *d.ProviderOrderID)
		}
		assert.Contains(t, fx.store.wallets, "user-1")
	})

	t.Run("amounts below the minimum create nothing", func(t *testing.T) {
		for _, req := range []*dto.CreateDepositRequest{
			{AmountCents: numberPtr("99")},
			{Amount: numberPtr("0.994")},
			{AmountCents: numberPtr("-100")},
			{},
		} {
			fx := newDepositFixture(config.PaymentsConfig{})
			_, err := fx.flow.Create(ctx, identity, models.DepositMethodCoinbase, req, nil)
			require.Error(t, err)
			assert.True(t, IsAmountTooLow(err))

			var bizErr *BusinessError
			require.True(t, errors.As(err, &bizErr))
			assert.Equal(t, "Minimum deposit is $1.00", bizErr.Message)

			assert.Zero(t, fx.store.depositCount())
			assert.Empty(t, fx.coinbase.inputs)
		}
	})

	t.Run("configured minimum above one dollar", func(t *testing.T) {
		fx := newDepositFixture(config.PaymentsConfig{MinDepositCents: 500})
		_, err := fx.flow.Create(ctx, identity, models.DepositMethodCoinbase, &dto.CreateDepositRequest{AmountCents: numberPtr("499")}, nil)
		assert.True(t, IsAmountTooLow(err))

		_, err = fx.flow.Create(ctx, identity, models.DepositMethodCoinbase, &dto.CreateDepositRequest{AmountCents: numberPtr("500")}, nil)
		assert.NoError(t, err)
	})

	t.Run("unknown method", func(t *testing.T) {
		fx := newDepositFixture(config.PaymentsConfig{})
		_, err := fx.flow.Create(ctx, identity, models.DepositMethod("paypal"), &dto.CreateDepositRequest{AmountCents: numberPtr("500")}, nil)
		assert.True(t, IsInvalidMethod(err))
		assert.Zero(t, fx.store.depositCount())
	})

	t.Run("missing identity", func(t *testing.T) {
		fx := newDepositFixture(config.PaymentsConfig{})
		_, err := fx.flow.Create(ctx, Identity{}, models.DepositMethodCoinbase, &dto.CreateDepositRequest{AmountCents: numberPtr("500")}, nil)
		assert.True(t, IsMissingIdentity(err))
		assert.Zero(t, fx.store.depositCount())
	})

	t.Run("provider failure marks the deposit failed", func(t *testing.T) {
		fx := newDepositFixture(config.PaymentsConfig{})
		fx.coinbase.err = &services.ProviderError{
			Provider: "coinbase",
			Status:   400,
			Message:  "Invalid amount",
			Body:     json.RawMessage(`{"error":{"message":"Invalid amount"}}`),
		}

		_, err := fx.flow.Create(ctx, identity, models.DepositMethodCoinbase, &dto.CreateDepositRequest{AmountCents: numberPtr("500")}, nil)
		require.Error(t, err)
		assert.True(t, IsProviderFailed(err))

		var bizErr *BusinessError
		require.True(t, errors.As(err, &bizErr))
		assert.Equal(t, "PROVIDER_ERROR", bizErr.Code)
		assert.Equal(t, "Invalid amount", bizErr.Message)

		require.Equal(t, 1, fx.store.depositCount())
		for _, d := range fx.store.deposits {
			assert.Equal(t, models.DepositStatusFailed, d.Status)
			assert.Nil(t, d.ProviderID)

			var payload map[string]any
			require.NoError(t, json.Unmarshal(d.ProviderPayload, &payload))
			assert.Equal(t, "Invalid amount", payload["error"])
			assert.Equal(t, float64(400), payload["status"])
		}
		assert.Zero(t, fx.store.balance("user-1"))
	})
}
