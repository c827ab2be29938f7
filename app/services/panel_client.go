package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dropsource/storefront/utils"
)

// PanelClient talks to the upstream SMM panel API
type PanelClient interface {
	Call(ctx context.Context, action string, params url.Values) (json.RawMessage, error)
	Services(ctx context.Context) (json.RawMessage, error)
	AddOrder(ctx context.Context, in PanelOrderInput) (*PanelAddResult, error)
	OrderStatus(ctx context.Context, providerOrderID string) (json.RawMessage, error)
	Refill(ctx context.Context, providerOrderID string) (json.RawMessage, error)
	Cancel(ctx context.Context, providerOrderID string) (json.RawMessage, error)
	Balance(ctx context.Context) (json.RawMessage, error)
}

// PanelOrderInput is the "add" action payload
type PanelOrderInput struct {
	Service  string
	Link     string
	Quantity int64
	Runs     *int64
	Interval *int64
	Comments string
}

// PanelAddResult is the panel's reply to "add"
type PanelAddResult struct {
	OrderID string
	Raw     json.RawMessage
}

// PanelError is a non-2xx, non-JSON or embedded {error} reply from the panel
type PanelError struct {
	Status  int
	Message string
	Body    string
}

func (e *PanelError) Error() string {
	return "panel: " + e.Message
}

// HTTPPanelClient implements PanelClient over form-encoded POSTs
type HTTPPanelClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewPanelClient(baseURL, apiKey string, timeout time.Duration) *HTTPPanelClient {
	if timeout <= 0 {
		timeout = utils.DefaultPanelTimeout
	}
	return &HTTPPanelClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Call posts key, action and params and returns the JSON reply
func (c *HTTPPanelClient) Call(ctx context.Context, action string, params url.Values) (json.RawMessage, error) {
	if c.BaseURL == "" || c.APIKey == "" {
		return nil, &PanelError{Message: "missing panel URL or key"}
	}
	form := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				form.Add(k, v)
			}
		}
	}
	form.Set("key", c.APIKey)
	form.Set("action", action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &PanelError{Message: err.Error()}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PanelError{Status: resp.StatusCode, Message: err.Error()}
	}
	text := strings.TrimSpace(string(raw))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &PanelError{Status: resp.StatusCode, Message: fmt.Sprintf("http %d", resp.StatusCode), Body: truncate(text, 300)}
	}
	if !json.Valid([]byte(text)) {
		return nil, &PanelError{Status: resp.StatusCode, Message: "returned non-JSON", Body: truncate(text, 300)}
	}

	var envelope struct {
		Error any `json:"error"`
	}
	if json.Unmarshal([]byte(text), &envelope) == nil {
		if msg, ok := panelErrorMessage(envelope.Error); ok {
			return nil, &PanelError{Status: resp.StatusCode, Message: msg, Body: truncate(text, 300)}
		}
	}
	return json.RawMessage(text), nil
}

func (c *HTTPPanelClient) Services(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "services", nil)
}

func (c *HTTPPanelClient) AddOrder(ctx context.Context, in PanelOrderInput) (*PanelAddResult, error) {
	params := url.Values{}
	params.Set("service", in.Service)
	params.Set("link", in.Link)
	params.Set("quantity", strconv.FormatInt(in.Quantity, 10))
	if in.Runs != nil {
		params.Set("runs", strconv.FormatInt(*in.Runs, 10))
	}
	if in.Interval != nil {
		params.Set("interval", strconv.FormatInt(*in.Interval, 10))
	}
	if in.Comments != "" {
		params.Set("comments", in.Comments)
	}
	raw, err := c.Call(ctx, "add", params)
	if err != nil {
		return nil, err
	}
	doc, err := utils.DecodeJSON(raw)
	if err != nil {
		return nil, &PanelError{Message: "returned non-JSON", Body: string(raw)}
	}
	orderID, ok := utils.LookupString(doc, "order")
	if !ok {
		return nil, &PanelError{Message: "add reply has no order id", Body: truncate(string(raw), 300)}
	}
	return &PanelAddResult{OrderID: orderID, Raw: raw}, nil
}

func (c *HTTPPanelClient) OrderStatus(ctx context.Context, providerOrderID string) (json.RawMessage, error) {
	return c.Call(ctx, "status", url.Values{"order": {providerOrderID}})
}

func (c *HTTPPanelClient) Refill(ctx context.Context, providerOrderID string) (json.RawMessage, error) {
	return c.Call(ctx, "refill", url.Values{"order": {providerOrderID}})
}

func (c *HTTPPanelClient) Cancel(ctx context.Context, providerOrderID string) (json.RawMessage, error) {
	return c.Call(ctx, "cancel", url.Values{"order": {providerOrderID}})
}

func (c *HTTPPanelClient) Balance(ctx context.Context) (json.RawMessage, error) {
	return c.Call(ctx, "balance", nil)
}

// panelErrorMessage treats falsy values (null, false, "", 0) as no error
func panelErrorMessage(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case bool:
		return "error", t
	case string:
		return t, strings.TrimSpace(t) != ""
	case float64:
		return utils.ScalarString(t), t != 0
	default:
		b, _ := json.Marshal(t)
		return string(b), true
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
