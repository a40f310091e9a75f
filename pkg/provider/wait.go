package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/adiology/cvp/pkg/apierror"
)

// WaitForStatus 以固定间隔轮询实例状态，直到进入目标状态之一或超时
// 调用方取消 ctx 会立即中止等待，不会泄漏 goroutine
func WaitForStatus(
	ctx context.Context,
	client ComputeClient,
	providerID string,
	targets []InstanceStatus,
	interval time.Duration,
	timeout time.Duration,
) (InstanceStatus, error) {
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last InstanceStatus
	for {
		instance, err := client.DescribeInstance(ctx, providerID)
		if err != nil {
			return last, err
		}
		last = instance.Status

		for _, target := range targets {
			if instance.Status == target {
				return instance.Status, nil
			}
		}

		if time.Now().After(deadline) {
			return last, apierror.WrapError(
				apierror.ErrTimeout,
				apierror.ErrTimeout.Message,
				fmt.Errorf("instance %s still %s after %s", providerID, last, timeout),
			)
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
