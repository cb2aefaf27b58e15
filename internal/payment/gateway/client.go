package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"zerox/internal/config"
	"zerox/internal/errors"
)

// Order is the gateway-side record created for one payment attempt.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type errorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type Client struct {
	http     *resty.Client
	keyID    string
	currency string
}

func NewClient(cfg config.GatewayConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{http: httpClient, keyID: cfg.KeyID, currency: cfg.Currency}
}

// PublicKey is the key id the checkout widget needs; it is not a secret.
func (c *Client) PublicKey() string {
	return c.keyID
}

func (c *Client) Currency() string {
	return c.currency
}

// CreateOrder registers an amount in minor units with the gateway. Transport
// failures, timeouts and 5xx answers are reported as UpstreamUnavailable.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, receipt string) (*Order, error) {
	var created Order
	var failure errorBody

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(createOrderRequest{Amount: amountMinor, Currency: c.currency, Receipt: receipt}).
		SetResult(&created).
		SetError(&failure).
		Post("/v1/orders")
	if err != nil {
		return nil, errors.NewUpstreamUnavailableError("payment gateway unreachable", err)
	}

	switch code := resp.StatusCode(); {
	case code >= 200 && code < 300:
		if created.ID == "" {
			return nil, fmt.Errorf("gateway returned order without id")
		}
		return &created, nil
	case code >= 500 || code == http.StatusTooManyRequests:
		return nil, errors.NewUpstreamUnavailableError(fmt.Sprintf("payment gateway answered %d", code), nil)
	default:
		return nil, fmt.Errorf("gateway rejected order: status %d: %s %s", code, failure.Error.Code, failure.Error.Description)
	}
}
