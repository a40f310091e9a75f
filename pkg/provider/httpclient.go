package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Config HTTP 客户端配置
type Config struct {
	BaseURL   string
	KeyID     string
	SecretKey string
	Timeout   time.Duration
}

// HTTPClient 通过 HTTP API 访问云厂商计算服务
// 请求使用 HMAC-SHA256 签名；每个 Action 对应一次 POST 调用
// 客户端由调用方显式构造注入，不使用包级单例
type HTTPClient struct {
	baseURL    string
	keyID      string
	secretKey  string
	httpClient *http.Client
}

var _ ComputeClient = (*HTTPClient)(nil)

// NewHTTPClient 创建 HTTP 客户端
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.KeyID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("provider credentials (key_id and secret_key) are required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HTTPClient{
		baseURL:   cfg.BaseURL,
		keyID:     cfg.KeyID,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// apiErrorEnvelope 错误响应的外层包装
type apiErrorEnvelope struct {
	Error *APIError `json:"error"`
}

// call 执行一次 Action 调用：序列化 body，签名，解析响应或错误
func (c *HTTPClient) call(ctx context.Context, action string, body any, result any) error {
	var bodyBytes []byte
	var err error
	if body != nil {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	url := c.baseURL + "/" + action
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.signRequest(req, action, bodyBytes)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", action, err)
	}

	if resp.StatusCode >= 400 {
		var envelope apiErrorEnvelope
		if err := json.Unmarshal(respBody, &envelope); err == nil && envelope.Error != nil {
			return envelope.Error
		}
		// 无法解析的错误响应，按原始状态码包装
		return &APIError{
			Code:    CodeServiceUnavailable,
			Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, action),
		}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%s: decode response: %w", action, err)
		}
	}
	return nil
}

// signRequest 为请求附加 HMAC-SHA256 签名头
// 签名内容：action + "\n" + unix 时间戳 + "\n" + body
func (c *HTTPClient) signRequest(req *http.Request, action string, body []byte) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(action))
	mac.Write([]byte("\n"))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("\n"))
	mac.Write(body)

	req.Header.Set("X-Key-ID", c.keyID)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
}

func (c *HTTPClient) RunInstance(ctx context.Context, input *RunInstanceInput) (*Instance, error) {
	var instance Instance
	if err := c.call(ctx, "RunInstance", input, &instance); err != nil {
		return nil, err
	}
	return &instance, nil
}

func (c *HTTPClient) StartInstance(ctx context.Context, providerID string) error {
	return c.call(ctx, "StartInstance", map[string]string{"providerID": providerID}, nil)
}

func (c *HTTPClient) StopInstance(ctx context.Context, providerID string) error {
	return c.call(ctx, "StopInstance", map[string]string{"providerID": providerID}, nil)
}

func (c *HTTPClient) TerminateInstance(ctx context.Context, providerID string) error {
	return c.call(ctx, "TerminateInstance", map[string]string{"providerID": providerID}, nil)
}

func (c *HTTPClient) DescribeInstance(ctx context.Context, providerID string) (*Instance, error) {
	var instance Instance
	if err := c.call(ctx, "DescribeInstance", map[string]string{"providerID": providerID}, &instance); err != nil {
		return nil, err
	}
	return &instance, nil
}

func (c *HTTPClient) ListInstances(ctx context.Context) ([]Instance, error) {
	var instances []Instance
	if err := c.call(ctx, "ListInstances", struct{}{}, &instances); err != nil {
		return nil, err
	}
	return instances, nil
}

func (c *HTTPClient) CreateSecurityGroup(ctx context.Context, name, description string) (*SecurityGroup, error) {
	var group SecurityGroup
	body := map[string]string{"name": name, "description": description}
	if err := c.call(ctx, "CreateSecurityGroup", body, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (c *HTTPClient) AuthorizeIngress(ctx context.Context, groupID string, rule IngressRule) error {
	body := map[string]any{"groupID": groupID, "rule": rule}
	return c.call(ctx, "AuthorizeIngress", body, nil)
}

func (c *HTTPClient) RevokeIngress(ctx context.Context, groupID string, rule IngressRule) error {
	body := map[string]any{"groupID": groupID, "rule": rule}
	return c.call(ctx, "RevokeIngress", body, nil)
}

func (c *HTTPClient) DescribeSecurityGroup(ctx context.Context, groupID string) (*SecurityGroup, error) {
	var group SecurityGroup
	if err := c.call(ctx, "DescribeSecurityGroup", map[string]string{"groupID": groupID}, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (c *HTTPClient) DeleteSecurityGroup(ctx context.Context, groupID string) error {
	return c.call(ctx, "DeleteSecurityGroup", map[string]string{"groupID": groupID}, nil)
}

func (c *HTTPClient) CreateKeyPair(ctx context.Context, name string) (*KeyPair, error) {
	var keyPair KeyPair
	if err := c.call(ctx, "CreateKeyPair", map[string]string{"name": name}, &keyPair); err != nil {
		return nil, err
	}
	return &keyPair, nil
}

func (c *HTTPClient) DeleteKeyPair(ctx context.Context, name string) error {
	return c.call(ctx, "DeleteKeyPair", map[string]string{"name": name}, nil)
}

func (c *HTTPClient) GetInstanceMetrics(ctx context.Context, providerID string, window time.Duration) (*Metrics, error) {
	var metrics Metrics
	body := map[string]any{"providerID": providerID, "windowSeconds": int(window.Seconds())}
	if err := c.call(ctx, "GetInstanceMetrics", body, &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}
