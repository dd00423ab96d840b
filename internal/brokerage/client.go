package brokerage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stocksignal/internal/apperr"
)

// Config is the desktop-gateway connection singleton.
type Config struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	APIPassword string `json:"apiPassword"`
}

func DefaultConfig() Config {
	return Config{Host: "localhost", Port: 18080}
}

// OrderRequest is one cash equity order.
type OrderRequest struct {
	Code      string  `json:"code"`
	Side      string  `json:"side"` // buy or sell
	Quantity  int64   `json:"quantity"`
	OrderType string  `json:"orderType"` // market, limit or stop
	Price     float64 `json:"price"`
}

// OrderResult is the gateway's acknowledgement.
type OrderResult struct {
	OrderID string  `json:"OrderId"`
	Result  float64 `json:"Result"`
}

// Balance is the free cash report.
type Balance struct {
	StockAccountWallet float64 `json:"StockAccountWallet"`
}

// Position is one open position at the brokerage.
type Position struct {
	Symbol         string  `json:"Symbol"`
	SymbolName     string  `json:"SymbolName"`
	LeavesQty      float64 `json:"LeavesQty"`
	Price          float64 `json:"Price"`
	CurrentPrice   float64 `json:"CurrentPrice"`
	ProfitLoss     float64 `json:"ProfitLoss"`
	ProfitLossRate float64 `json:"ProfitLossRate"`
}

// Client talks to the kabu STATION gateway on the local machine. A token is
// fetched per call chain; transport failures surface as
// BrokerageUnavailableError so callers can tell offline from rejected.
type Client struct {
	cfg     Config
	http    *http.Client
	baseURL string
}

func NewClient(cfg Config, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		baseURL: fmt.Sprintf("http://%s:%d/kabusapi", cfg.Host, cfg.Port),
	}
}

// Connect fetches a fresh API token.
func (c *Client) Connect(ctx context.Context) (string, error) {
	var out struct {
		Token string `json:"Token"`
	}
	err := c.call(ctx, http.MethodPost, "/token", "", map[string]any{
		"APIPassword": c.cfg.APIPassword,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *Client) Balance(ctx context.Context) (*Balance, error) {
	token, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	var out Balance
	if err := c.call(ctx, http.MethodGet, "/wallet/cash", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Positions(ctx context.Context) ([]Position, error) {
	token, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	var out []Position
	if err := c.call(ctx, http.MethodGet, "/positions", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var sideCodes = map[string]string{
	"buy":  "2",
	"sell": "1",
}

var frontOrderTypes = map[string]string{
	"market": "10",
	"limit":  "20",
	"stop":   "30",
}

// SendOrder submits a cash order for same-day expiry on the Tokyo exchange.
func (c *Client) SendOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	token, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}

	side, ok := sideCodes[req.Side]
	if !ok {
		return nil, apperr.Validation("side", "must be buy or sell")
	}
	frontOrderType, ok := frontOrderTypes[req.OrderType]
	if !ok {
		frontOrderType = frontOrderTypes["market"]
	}

	body := map[string]any{
		"Password":       c.cfg.APIPassword,
		"Symbol":         req.Code + "@1",
		"Exchange":       1,
		"SecurityType":   1,
		"Side":           side,
		"CashMargin":     1,
		"DelivType":      2,
		"AccountType":    2,
		"Qty":            req.Quantity,
		"FrontOrderType": frontOrderType,
		"Price":          req.Price,
		"ExpireDay":      0,
	}

	var out OrderResult
	if err := c.call(ctx, http.MethodPost, "/sendorder", token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelOrder cancels a working order by its gateway identifier.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*OrderResult, error) {
	token, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	var out OrderResult
	err = c.call(ctx, http.MethodPut, "/cancelorder", token, map[string]any{
		"OrderId":  orderID,
		"Password": c.cfg.APIPassword,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RejectedError is a request the gateway understood and refused, as opposed
// to a gateway that cannot be reached.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("brokerage rejected request: status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) call(ctx context.Context, method, path, token string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Host = "localhost"
	if token != "" {
		req.Header.Set("X-API-KEY", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &apperr.BrokerageUnavailableError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &apperr.BrokerageUnavailableError{Op: method + " " + path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RejectedError{StatusCode: resp.StatusCode, Body: string(payload)}
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decoding %s response: %w", path, err)
		}
	}
	return nil
}
