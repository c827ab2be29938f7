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

const coinbaseAPIVersion = "2018-03-22"

// CoinbaseClient creates Coinbase Commerce charges
type CoinbaseClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewCoinbaseClient(baseURL, apiKey string, timeout time.Duration) *CoinbaseClient {
	if timeout <= 0 {
		timeout = utils.DefaultProviderTimeout
	}
	return &CoinbaseClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c *CoinbaseClient) Name() string { return "coinbase" }

func (c *CoinbaseClient) Env() string { return "" }

type coinbaseMoney struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type coinbaseChargeReq struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	PricingType string            `json:"pricing_type"`
	LocalPrice  coinbaseMoney     `json:"local_price"`
	Metadata    map[string]string `json:"metadata"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	CancelURL   string            `json:"cancel_url,omitempty"`
}

type coinbaseChargeResp struct {
	Data struct {
		ID        string `json:"id"`
		Code      string `json:"code"`
		HostedURL string `json:"hosted_url"`
	} `json:"data"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateCheckout creates a fixed-price charge; the deposit id travels in metadata
func (c *CoinbaseClient) CreateCheckout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if c.APIKey == "" {
		return nil, &ProviderError{Provider: c.Name(), Message: "missing COINBASE_COMMERCE_API_KEY"}
	}
	body := coinbaseChargeReq{
		Name:        "DropSource Credits",
		Description: "Wallet top-up",
		PricingType: "fixed_price",
		LocalPrice: coinbaseMoney{
			Amount:   utils.CentsToDollarString(in.AmountCents),
			Currency: "USD",
		},
		Metadata: map[string]string{
			"user_id":    in.UserID,
			"deposit_id": in.DepositID,
			"depositId":  in.DepositID,
		},
		RedirectURL: in.RedirectURL,
		CancelURL:   in.CancelURL,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/charges", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CC-Api-Key", c.APIKey)
	req.Header.Set("X-CC-Version", coinbaseAPIVersion)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), Status: resp.StatusCode, Message: err.Error()}
	}

	var out coinbaseChargeResp
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("coinbase http %d", resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, &ProviderError{Provider: c.Name(), Status: resp.StatusCode, Message: msg, Body: rawJSON(raw)}
	}
	if out.Data.ID == "" || out.Data.HostedURL == "" {
		return nil, &ProviderError{Provider: c.Name(), Status: resp.StatusCode, Message: "charge response missing id or hosted_url", Body: rawJSON(raw)}
	}

	result := &CheckoutResult{
		URL:        out.Data.HostedURL,
		ProviderID: out.Data.ID,
		Raw:        rawJSON(raw),
	}
	if out.Data.Code != "" {
		code := out.Data.Code
		result.ProviderOrderID = &code
	}
	return result, nil
}

// rawJSON keeps a provider body only when it is valid JSON
func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 || !json.Valid(b) {
		return nil
	}
	return json.RawMessage(b)
}
