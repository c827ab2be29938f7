package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"

	"github.com/dropsource/storefront/app/dto"
	businessflow "github.com/dropsource/storefront/business_flow"
	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/utils"
)

const testUserHeader = "X-Test-User"

// newTestApp mounts routes behind a stand-in for the identity middleware
func newTestApp(mount func(app *fiber.App)) *fiber.App {
	app := fiber.New()
	app.Use(func(c fiber.Ctx) error {
		if id := c.Get(testUserHeader); id != "" {
			c.Locals(utils.LocalUserID, id)
			c.Locals(utils.LocalUserEmail, id+"@example.com")
		}
		return c.Next()
	})
	mount(app)
	return app
}

type testResponse struct {
	Status  int
	Header  http.Header
	Body    []byte
	Payload dto.APIResponse
}

func (r testResponse) errorCode(t *testing.T) string {
	t.Helper()
	detail, ok := r.Payload.Error.(map[string]any)
	require.True(t, ok, "expected error detail, got %s", string(r.Body))
	code, _ := detail["code"].(string)
	return code
}

func (r testResponse) data(t *testing.T, out any) {
	t.Helper()
	raw, err := json.Marshal(r.Payload.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func doRequest(t *testing.T, app *fiber.App, method, target, body string, headers map[string]string) testResponse {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := testResponse{Status: resp.StatusCode, Header: resp.Header, Body: raw}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(raw, &out.Payload)
	}
	return out
}

func asUser(id string) map[string]string {
	return map[string]string{testUserHeader: id}
}

type fakeWalletFlow struct {
	resp     *dto.WalletResponse
	err      error
	identity businessflow.Identity
}

func (f *fakeWalletFlow) Ensure(ctx context.Context, identity businessflow.Identity) (*models.Wallet, error) {
	f.identity = identity
	return &models.Wallet{UserID: identity.UserID}, f.err
}

func (f *fakeWalletFlow) GetWallet(ctx context.Context, identity businessflow.Identity) (*dto.WalletResponse, error) {
	f.identity = identity
	return f.resp, f.err
}

type fakeDepositFlow struct {
	err    error
	method models.DepositMethod
	req    *dto.CreateDepositRequest
}

func (f *fakeDepositFlow) Create(ctx context.Context, identity businessflow.Identity, method models.DepositMethod, req *dto.CreateDepositRequest, metadata *businessflow.ClientMetadata) (*dto.CreateDepositResponse, error) {
	f.method = method
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.CreateDepositResponse{
		URL:         "https://checkout.example/dep-1",
		DepositID:   "dep-1",
		AmountCents: 500,
		Method:      string(method),
		ProviderID:  "ref-1",
	}, nil
}

type fakeWebhookFlow struct {
	outcome  *businessflow.WebhookOutcome
	delivery businessflow.WebhookDelivery
}

func (f *fakeWebhookFlow) Handle(ctx context.Context, delivery businessflow.WebhookDelivery) *businessflow.WebhookOutcome {
	f.delivery = delivery
	return f.outcome
}

type fakeOrderFlow struct {
	err        error
	createReq  *dto.CreateOrderRequest
	listLimit  int
	listOffset int
	actionID   string
	actionKind string
}

func (f *fakeOrderFlow) Create(ctx context.Context, identity businessflow.Identity, req *dto.CreateOrderRequest, metadata *businessflow.ClientMetadata) (*dto.CreateOrderResponse, error) {
	f.createReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.CreateOrderResponse{OrderID: "ord-1", ProviderOrderID: "1001", CostCents: 135, BalanceCents: 865, Status: "placed"}, nil
}

func (f *fakeOrderFlow) action(kind, orderID string) (*dto.OrderActionResponse, error) {
	f.actionKind = kind
	f.actionID = orderID
	if f.err != nil {
		return nil, f.err
	}
	return &dto.OrderActionResponse{OrderID: orderID, ProviderOrderID: "1001", Status: "placed", Upstream: json.RawMessage(`{"status":"In progress"}`)}, nil
}

func (f *fakeOrderFlow) Status(ctx context.Context, identity businessflow.Identity, orderID string) (*dto.OrderActionResponse, error) {
	return f.action("status", orderID)
}

func (f *fakeOrderFlow) Cancel(ctx context.Context, identity businessflow.Identity, orderID string) (*dto.OrderActionResponse, error) {
	return f.action("cancel", orderID)
}

func (f *fakeOrderFlow) Refill(ctx context.Context, identity businessflow.Identity, orderID string) (*dto.OrderActionResponse, error) {
	return f.action("refill", orderID)
}

func (f *fakeOrderFlow) List(ctx context.Context, identity businessflow.Identity, limit, offset int) (*dto.ListOrdersResponse, error) {
	f.listLimit, f.listOffset = limit, offset
	return &dto.ListOrdersResponse{Orders: []dto.OrderDTO{}, Limit: limit, Offset: offset}, f.err
}

type fakeCatalogFlow struct {
	err error
	req *dto.ListServicesRequest
}

func (f *fakeCatalogFlow) List(ctx context.Context, req *dto.ListServicesRequest) (*dto.ListServicesResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.ListServicesResponse{Services: []models.Service{{ID: "1", Name: "Views"}}, Count: 1}, nil
}

func (f *fakeCatalogFlow) Get(ctx context.Context, id string) (*models.Service, error) {
	if f.err != nil {
		return nil, f.err
	}
	if id != "1" {
		return nil, businessflow.ErrServiceNotFound
	}
	return &models.Service{ID: "1", Name: "Views"}, nil
}

func (f *fakeCatalogFlow) Refresh(ctx context.Context) (*dto.CatalogRefreshResponse, error) {
	return &dto.CatalogRefreshResponse{Count: 1}, f.err
}

type fakeAdminFlow struct {
	err     error
	ping    *dto.DBPingResponse
	listReq *dto.AdminListDepositsRequest
}

func (f *fakeAdminFlow) ListDeposits(ctx context.Context, req *dto.AdminListDepositsRequest) (*dto.AdminListDepositsResponse, error) {
	f.listReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.AdminListDepositsResponse{Deposits: []dto.DepositDTO{}, Limit: req.Limit, Offset: req.Offset}, nil
}

func (f *fakeAdminFlow) ExportDeposits(ctx context.Context, req *dto.AdminListDepositsRequest) (string, []byte, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return "deposits.xlsx", []byte("PK-xlsx"), nil
}

func (f *fakeAdminFlow) ListWebhookLogs(ctx context.Context, req *dto.AdminListWebhookLogsRequest) (*dto.AdminListWebhookLogsResponse, error) {
	return &dto.AdminListWebhookLogsResponse{Logs: []dto.WebhookLogDTO{}}, f.err
}

func (f *fakeAdminFlow) PanelBalance(ctx context.Context) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"balance":"12.50","currency":"USD"}`), nil
}

func (f *fakeAdminFlow) RefreshCatalog(ctx context.Context) (*dto.CatalogRefreshResponse, error) {
	return &dto.CatalogRefreshResponse{Count: 2}, f.err
}

func (f *fakeAdminFlow) DBPing(ctx context.Context) *dto.DBPingResponse {
	return f.ping
}

func (f *fakeAdminFlow) EnvReport() *dto.EnvReportResponse {
	return &dto.EnvReportResponse{Environment: "test", Present: map[string]bool{"SMM_API_KEY": true}}
}
