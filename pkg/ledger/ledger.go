// Package ledger 访问外部预付费账本
// 账本是计费的事实来源，本服务只读取余额和提交扣费/退款指令
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config 账本接入配置
type Config struct {
	BaseURL string
	Token   string // Bearer token
	Timeout time.Duration
}

// Client 账本 HTTP 客户端
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
	}
}

type balanceResponse struct {
	BalanceCents int64 `json:"balance_cents"`
}

type chargeRequest struct {
	TenantID    string `json:"tenant_id"`
	AmountCents int64  `json:"amount_cents"`
	Reference   string `json:"reference"`
}

// Balance 查询租户余额（美分）
func (c *Client) Balance(ctx context.Context, tenantID string) (int64, error) {
	var resp balanceResponse
	if err := c.call(ctx, http.MethodGet, "/v1/accounts/"+tenantID+"/balance", nil, &resp); err != nil {
		return 0, err
	}
	return resp.BalanceCents, nil
}

// Charge 从租户账户扣费
func (c *Client) Charge(ctx context.Context, tenantID string, amountCents int64, reference string) error {
	req := &chargeRequest{TenantID: tenantID, AmountCents: amountCents, Reference: reference}
	return c.call(ctx, http.MethodPost, "/v1/charges", req, nil)
}

// Refund 向租户账户退款
func (c *Client) Refund(ctx context.Context, tenantID string, amountCents int64, reference string) error {
	req := &chargeRequest{TenantID: tenantID, AmountCents: amountCents, Reference: reference}
	return c.call(ctx, http.MethodPost, "/v1/refunds", req, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal ledger request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call ledger %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ledger %s returned %d: %s", path, resp.StatusCode, string(data))
	}
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode ledger response: %w", err)
		}
	}
	return nil
}
