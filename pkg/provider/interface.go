package provider

import (
	"context"
	"time"
)

// ComputeClient 定义云厂商计算服务的客户端接口
// 用于抽象实例、隔离组、凭据和指标操作，便于测试和 mock
type ComputeClient interface {
	// 实例生命周期
	RunInstance(ctx context.Context, input *RunInstanceInput) (*Instance, error)
	StartInstance(ctx context.Context, providerID string) error
	StopInstance(ctx context.Context, providerID string) error
	TerminateInstance(ctx context.Context, providerID string) error
	DescribeInstance(ctx context.Context, providerID string) (*Instance, error)
	ListInstances(ctx context.Context) ([]Instance, error)

	// 隔离组操作
	CreateSecurityGroup(ctx context.Context, name, description string) (*SecurityGroup, error)
	AuthorizeIngress(ctx context.Context, groupID string, rule IngressRule) error
	RevokeIngress(ctx context.Context, groupID string, rule IngressRule) error
	DescribeSecurityGroup(ctx context.Context, groupID string) (*SecurityGroup, error)
	DeleteSecurityGroup(ctx context.Context, groupID string) error

	// 访问凭据操作
	CreateKeyPair(ctx context.Context, name string) (*KeyPair, error)
	DeleteKeyPair(ctx context.Context, name string) error

	// 监控指标
	GetInstanceMetrics(ctx context.Context, providerID string, window time.Duration) (*Metrics, error)
}
