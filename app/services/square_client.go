package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dropsource/storefront/utils"
)

const squareAPIVersion = "2024-06-20"

// SquareClient creates Square payment links
type SquareClient struct {
	BaseURL     string
	AccessToken string
	LocationID  string
	Environment string
	HTTPClient  *http.Client
}

func NewSquareClient(baseURL, accessToken, locationID, env string, timeout time.Duration) *SquareClient {
	if timeout <= 0 {
		timeout = utils.DefaultProviderTimeout
	}
	return &SquareClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		AccessToken: accessToken,
		LocationID:  locationID,
		Environment: env,
		HTTPClient:  &http.Client{Timeout: timeout},
	}
}

func (c *SquareClient) Name() string { return "square" }

func (c *SquareClient) Env() string { return c.Environment }

type squareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type squareQuickPay struct {
	Name       string      `json:"name"`
	PriceMoney squareMoney `json:"price_money"`
	LocationID string      `json:"location_id"`
}

type squareCheckoutOptions struct {
	RedirectURL           string `json:"redirect_url,omitempty"`
	AskForShippingAddress bool   `json:"ask_for_shipping_address"`
}

type squarePrePopulatedData struct {
	BuyerEmail string `json:"buyer_email,omitempty"`
}

type squarePaymentLinkReq struct {
	IdempotencyKey   string                  `json:"idempotency_key"`
	Description      string                  `json:"description,omitempty"`
	PaymentNote      string                  `json:"payment_note,omitempty"`
	QuickPay         squareQuickPay          `json:"quick_pay"`
	CheckoutOptions  squareCheckoutOptions   `json:"checkout_options"`
	PrePopulatedData *squarePrePopulatedData `json:"pre_populated_data,omitempty"`
}

type squarePaymentLink struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	OrderID string `json:"order_id"`
}

type squarePaymentLinkResp struct {
	PaymentLink *squarePaymentLink `json:"payment_link"`
	Result      *struct {
		PaymentLink *squarePaymentLink `json:"payment_link"`
	} `json:"result"`
	Errors []struct {
		Category string `json:"category"`
		Code     string `json:"code"`
		Detail   string `json:"detail"`
	} `json:"errors"`
}

// DepositNote is the cross reference planted on Square payments
func DepositNote(depositID string) string {
	return "deposit:" + depositID
}

// CreateCheckout creates a quick-pay payment link; the deposit id travels in payment_note
func (c *SquareClient) CreateCheckout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if c.AccessToken == "" || c.LocationID == "" {
		return nil, &ProviderError{Provider: c.Name(), Message: "missing SQUARE_ACCESS_TOKEN or SQUARE_LOCATION_ID"}
	}
	body := squarePaymentLinkReq{
		IdempotencyKey: "dep_" + in.DepositID,
		Description:    "DropSource wallet top-up",
		PaymentNote:    DepositNote(in.DepositID),
		QuickPay: squareQuickPay{
			Name:       "DropSource Credits",
			PriceMoney: squareMoney{Amount: in.AmountCents, Currency: "USD"},
			LocationID: c.LocationID,
		},
		CheckoutOptions: squareCheckoutOptions{
			RedirectURL:           in.RedirectURL,
			AskForShippingAddress: false,
		},
	}
	if in.Email != "" {
		body.PrePopulatedData = &squarePrePopulatedData{BuyerEmail: in.Email}
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v2/online-checkout/payment-links", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Square-Version", squareAPIVersion)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Status: resp.StatusCode, Message: err.Error()}
	}

	var out squarePaymentLinkResp
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || len(out.Errors) > 0 {
		msg := fmt.Sprintf("square http %d", resp.StatusCode)
		if len(out.Errors) > 0 && out.Errors[0].Detail != "" {
			msg = out.Errors[0].Detail
		}
		return nil, &ProviderError{Provider: c.Name(), Status: resp.StatusCode, Message: msg, Body: rawJSON(raw)}
	}

	link := out.PaymentLink
	if link == nil && out.Result != nil {
		link = out.Result.PaymentLink
	}
	if link == nil || link.ID == "" || link.URL == "" {
		return nil, &ProviderError{Provider: c.Name(), Status: resp.StatusCode, Message: "payment link response missing id or url", Body: rawJSON(raw)}
	}

	result := &CheckoutResult{
		URL:        link.URL,
		ProviderID: link.ID,
		Raw:        rawJSON(raw),
	}
	if link.OrderID != "" {
		orderID := link.OrderID
		result.ProviderOrderID = &orderID
	}
	return result, nil
}
