package provider

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryPolicy 重试策略
type RetryPolicy struct {
	MaxAttempts int           // 最大尝试次数（含首次）
	BaseDelay   time.Duration // 首次重试前的基础等待
	MaxDelay    time.Duration // 单次等待上限
}

// DefaultRetryPolicy 默认策略：最多 3 次，指数退避加抖动
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// RetryingClient 为 ComputeClient 附加重试策略的装饰器
// 只重试可重试类错误（容量、限流、网络），鉴权/参数/状态类错误立即失败
type RetryingClient struct {
	inner  ComputeClient
	policy RetryPolicy
}

// NewRetryingClient 创建带重试策略的客户端
func NewRetryingClient(inner ComputeClient, policy RetryPolicy) *RetryingClient {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultRetryPolicy().BaseDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = DefaultRetryPolicy().MaxDelay
	}
	return &RetryingClient{inner: inner, policy: policy}
}

var _ ComputeClient = (*RetryingClient)(nil)

// backoffDelay 计算第 attempt 次重试前的等待时间（指数退避 + 随机抖动）
func (c *RetryingClient) backoffDelay(attempt int) time.Duration {
	delay := c.policy.BaseDelay << uint(attempt-1)
	if delay > c.policy.MaxDelay {
		delay = c.policy.MaxDelay
	}
	// 抖动：在 [delay/2, delay] 之间取随机值，避免重试风暴
	half := delay / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// do 执行 fn，按策略重试可重试错误
func (c *RetryingClient) do(ctx context.Context, op string, fn func() error) error {
	logger := zerolog.Ctx(ctx)

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !IsRetryable(lastErr) {
			logger.Warn().
				Str("operation", op).
				Int("attempt", attempt).
				Err(lastErr).
				Msg("Provider call failed with non-retryable error")
			return lastErr
		}

		if attempt == c.policy.MaxAttempts {
			break
		}

		delay := c.backoffDelay(attempt)
		logger.Warn().
			Str("operation", op).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(lastErr).
			Msg("Provider call failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	logger.Error().
		Str("operation", op).
		Int("attempts", c.policy.MaxAttempts).
		Err(lastErr).
		Msg("Provider call failed after all retries")
	return lastErr
}

func (c *RetryingClient) RunInstance(ctx context.Context, input *RunInstanceInput) (*Instance, error) {
	var result *Instance
	err := c.do(ctx, "RunInstance", func() error {
		var innerErr error
		result, innerErr = c.inner.RunInstance(ctx, input)
		return innerErr
	})
	return result, err
}

func (c *RetryingClient) StartInstance(ctx context.Context, providerID string) error {
	return c.do(ctx, "StartInstance", func() error {
		return c.inner.StartInstance(ctx, providerID)
	})
}

func (c *RetryingClient) StopInstance(ctx context.Context, providerID string) error {
	return c.do(ctx, "StopInstance", func() error {
		return c.inner.StopInstance(ctx, providerID)
	})
}

func (c *RetryingClient) TerminateInstance(ctx context.Context, providerID string) error {
	return c.do(ctx, "TerminateInstance", func() error {
		return c.inner.TerminateInstance(ctx, providerID)
	})
}

func (c *RetryingClient) DescribeInstance(ctx context.Context, providerID string) (*Instance, error) {
	var result *Instance
	err := c.do(ctx, "DescribeInstance", func() error {
		var innerErr error
		result, innerErr = c.inner.DescribeInstance(ctx, providerID)
		return innerErr
	})
	return result, err
}

func (c *RetryingClient) ListInstances(ctx context.Context) ([]Instance, error) {
	var result []Instance
	err := c.do(ctx, "ListInstances", func() error {
		var innerErr error
		result, innerErr = c.inner.ListInstances(ctx)
		return innerErr
	})
	return result, err
}

func (c *RetryingClient) CreateSecurityGroup(ctx context.Context, name, description string) (*SecurityGroup, error) {
	var result *SecurityGroup
	err := c.do(ctx, "CreateSecurityGroup", func() error {
		var innerErr error
		result, innerErr = c.inner.CreateSecurityGroup(ctx, name, description)
		return innerErr
	})
	return result, err
}

func (c *RetryingClient) AuthorizeIngress(ctx context.Context, groupID string, rule IngressRule) error {
	return c.do(ctx, "AuthorizeIngress", func() error {
		return c.inner.AuthorizeIngress(ctx, groupID, rule)
	})
}

func (c *RetryingClient) RevokeIngress(ctx context.Context, groupID string, rule IngressRule) error {
	return c.do(ctx, "RevokeIngress", func() error {
		return c.inner.RevokeIngress(ctx, groupID, rule)
	})
}

func (c *RetryingClient) DescribeSecurityGroup(ctx context.Context, groupID string) (*SecurityGroup, error) {
	var result *SecurityGroup
	err := c.do(ctx, "DescribeSecurityGroup", func() error {
		var innerErr error
		result, innerErr = c.inner.DescribeSecurityGroup(ctx, groupID)
		return innerErr
	})
	return result, err
}

func (c *RetryingClient) DeleteSecurityGroup(ctx context.Context, groupID string) error {
	return c.do(ctx, "DeleteSecurityGroup", func() error {
		return c.inner.DeleteSecurityGroup(ctx, groupID)
	})
}

func (c *RetryingClient) CreateKeyPair(ctx context.Context, name string) (*KeyPair, error) {
	var result *KeyPair
	err := c.do(ctx, "CreateKeyPair", func() error {
		var innerErr error
		result, innerErr = c.inner.CreateKeyPair(ctx, name)
		return innerErr
	})
	return result, err
}

func (c *RetryingClient) DeleteKeyPair(ctx context.Context, name string) error {
	return c.do(ctx, "DeleteKeyPair", func() error {
		return c.inner.DeleteKeyPair(ctx, name)
	})
}

func (c *RetryingClient) GetInstanceMetrics(ctx context.Context, providerID string, window time.Duration) (*Metrics, error) {
	var result *Metrics
	err := c.do(ctx, "GetInstanceMetrics", func() error {
		var innerErr error
		result, innerErr = c.inner.GetInstanceMetrics(ctx, providerID, window)
		return innerErr
	})
	return result, err
}
