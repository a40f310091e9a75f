package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// 测试用快速策略，避免真实退避拖慢测试
func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
	}
}

func TestRetryingClientTransientThenSuccess(t *testing.T) {
	t.Parallel()

	mockClient := new(MockComputeClient)
	mockClient.On("StartInstance", mock.Anything, "i-123").
		Return(&APIError{Code: CodeInsufficientCapacity, Message: "no capacity"}).Twice()
	mockClient.On("StartInstance", mock.Anything, "i-123").
		Return(nil).Once()

	client := NewRetryingClient(mockClient, fastPolicy())
	err := client.StartInstance(context.Background(), "i-123")

	require.NoError(t, err)
	mockClient.AssertNumberOfCalls(t, "StartInstance", 3)
}

func TestRetryingClientNonRetryableFailsFast(t *testing.T) {
	t.Parallel()

	mockClient := new(MockComputeClient)
	mockClient.On("StartInstance", mock.Anything, "i-123").
		Return(&APIError{Code: CodeAuthFailure, Message: "bad credentials"})

	client := NewRetryingClient(mockClient, fastPolicy())
	err := client.StartInstance(context.Background(), "i-123")

	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, CodeAuthFailure, apiErr.Code)
	mockClient.AssertNumberOfCalls(t, "StartInstance", 1)
}

func TestRetryingClientExhaustsAttempts(t *testing.T) {
	t.Parallel()

	mockClient := new(MockComputeClient)
	mockClient.On("StopInstance", mock.Anything, "i-456").
		Return(&APIError{Code: CodeRequestLimitExceeded, Message: "throttled"})

	client := NewRetryingClient(mockClient, fastPolicy())
	err := client.StopInstance(context.Background(), "i-456")

	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, CodeRequestLimitExceeded, apiErr.Code)
	mockClient.AssertNumberOfCalls(t, "StopInstance", 3)
}

func TestRetryingClientRespectsContextCancel(t *testing.T) {
	t.Parallel()

	mockClient := new(MockComputeClient)
	mockClient.On("StartInstance", mock.Anything, "i-789").
		Return(&APIError{Code: CodeServiceUnavailable})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
	client := NewRetryingClient(mockClient, policy)
	err := client.StartInstance(ctx, "i-789")

	require.ErrorIs(t, err, context.Canceled)
	mockClient.AssertNumberOfCalls(t, "StartInstance", 1)
}

func TestRetryingClientReturnsResultFromRetriedCall(t *testing.T) {
	t.Parallel()

	want := &Instance{ProviderID: "i-abc", Status: StatusRunning}
	mockClient := new(MockComputeClient)
	mockClient.On("DescribeInstance", mock.Anything, "i-abc").
		Return(nil, &APIError{Code: CodeServiceUnavailable}).Once()
	mockClient.On("DescribeInstance", mock.Anything, "i-abc").
		Return(want, nil).Once()

	client := NewRetryingClient(mockClient, fastPolicy())
	got, err := client.DescribeInstance(context.Background(), "i-abc")

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBackoffDelayCap(t *testing.T) {
	t.Parallel()

	client := NewRetryingClient(new(MockComputeClient), RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   time.Second,
		MaxDelay:    4 * time.Second,
	})

	for attempt := 1; attempt <= 9; attempt++ {
		delay := client.backoffDelay(attempt)
		assert.LessOrEqual(t, delay, 4*time.Second, "attempt %d", attempt)
		assert.GreaterOrEqual(t, delay, 500*time.Millisecond, "attempt %d", attempt)
	}
}
