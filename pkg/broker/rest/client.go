package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"scalper-core/pkg/broker/common"
)

// Client is one account's broker session over the order REST API.
// Order endpoints are throttled client-side so a burst of signals cannot
// trip the broker's rate limit.
type Client struct {
	BaseURL     string
	APIKey      string
	AccessToken string

	http    *http.Client
	limiter *rate.Limiter
}

// New creates a broker REST client for one account's credentials.
func New(baseURL, apiKey, accessToken string) *Client {
	return &Client{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		AccessToken: accessToken,
		http:        &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(5), 10), // broker allows ~10 order calls/sec
	}
}

type placeOrderRequest struct {
	Token     uint32  `json:"instrument_token"`
	Symbol    string  `json:"tradingsymbol"`
	Side      string  `json:"transaction_type"`
	OrderType string  `json:"order_type"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price,omitempty"`
	Product   string  `json:"product"`
	Validity  string  `json:"validity"`
}

type placeOrderResponse struct {
	OrderID string `json:"order_id"`
}

// PlaceOrder submits an order and returns the broker order id.
func (c *Client) PlaceOrder(ctx context.Context, req common.OrderRequest) (common.OrderResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return common.OrderResult{}, err
	}

	body := placeOrderRequest{
		Token:     req.Token,
		Symbol:    req.Symbol,
		Side:      string(req.Side),
		OrderType: string(req.Type),
		Quantity:  req.Qty,
		Product:   "MIS",
		Validity:  "DAY",
	}
	if req.Type == common.OrderTypeLimit {
		body.Price = req.Price
	}
	var resp placeOrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders/regular", body, &resp); err != nil {
		return common.OrderResult{}, fmt.Errorf("place order %s %s: %w", req.Side, req.Symbol, err)
	}
	return common.OrderResult{OrderID: resp.OrderID}, nil
}

// ModifyOrder changes the order type of a resting order (e.g. LIMIT to MARKET).
func (c *Client) ModifyOrder(ctx context.Context, orderID string, newType common.OrderType) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body := struct {
		OrderType string `json:"order_type"`
	}{OrderType: string(newType)}
	if err := c.do(ctx, http.MethodPut, "/orders/regular/"+orderID, body, nil); err != nil {
		return fmt.Errorf("modify order %s: %w", orderID, err)
	}
	return nil
}

// AvailableFunds returns the account's live balance.
func (c *Client) AvailableFunds(ctx context.Context) (float64, error) {
	var resp struct {
		LiveBalance float64 `json:"live_balance"`
	}
	if err := c.do(ctx, http.MethodGet, "/funds", nil, &resp); err != nil {
		return 0, fmt.Errorf("get funds: %w", err)
	}
	return resp.LiveBalance, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.APIKey)
	req.Header.Set("Authorization", "token "+c.APIKey+":"+c.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("broker api %d: %s", resp.StatusCode, apiErr.Message)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
