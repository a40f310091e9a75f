package provider

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockComputeClient ComputeClient 的 mock 实现，测试用
type MockComputeClient struct {
	mock.Mock
}

var _ ComputeClient = (*MockComputeClient)(nil)

func (m *MockComputeClient) RunInstance(ctx context.Context, input *RunInstanceInput) (*Instance, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Instance), args.Error(1)
}

func (m *MockComputeClient) StartInstance(ctx context.Context, providerID string) error {
	args := m.Called(ctx, providerID)
	return args.Error(0)
}

func (m *MockComputeClient) StopInstance(ctx context.Context, providerID string) error {
	args := m.Called(ctx, providerID)
	return args.Error(0)
}

func (m *MockComputeClient) TerminateInstance(ctx context.Context, providerID string) error {
	args := m.Called(ctx, providerID)
	return args.Error(0)
}

func (m *MockComputeClient) DescribeInstance(ctx context.Context, providerID string) (*Instance, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Instance), args.Error(1)
}

func (m *MockComputeClient) ListInstances(ctx context.Context) ([]Instance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Instance), args.Error(1)
}

func (m *MockComputeClient) CreateSecurityGroup(ctx context.Context, name, description string) (*SecurityGroup, error) {
	args := m.Called(ctx, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SecurityGroup), args.Error(1)
}

func (m *MockComputeClient) AuthorizeIngress(ctx context.Context, groupID string, rule IngressRule) error {
	args := m.Called(ctx, groupID, rule)
	return args.Error(0)
}

func (m *MockComputeClient) RevokeIngress(ctx context.Context, groupID string, rule IngressRule) error {
	args := m.Called(ctx, groupID, rule)
	return args.Error(0)
}

func (m *MockComputeClient) DescribeSecurityGroup(ctx context.Context, groupID string) (*SecurityGroup, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SecurityGroup), args.Error(1)
}

func (m *MockComputeClient) DeleteSecurityGroup(ctx context.Context, groupID string) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

func (m *MockComputeClient) CreateKeyPair(ctx context.Context, name string) (*KeyPair, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*KeyPair), args.Error(1)
}

func (m *MockComputeClient) DeleteKeyPair(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockComputeClient) GetInstanceMetrics(ctx context.Context, providerID string, window time.Duration) (*Metrics, error) {
	args := m.Called(ctx, providerID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Metrics), args.Error(1)
}
