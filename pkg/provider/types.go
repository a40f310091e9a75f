// Package provider 提供云厂商计算服务的类型化客户端
//
// 通过 ComputeClient 接口抽象实例生命周期、隔离组、访问凭据和监控指标操作，
// 便于注入 mock 进行测试。具体实现见 HTTPClient（HTTP API）与 MockComputeClient（测试）。
// 重试策略由 RetryingClient 装饰器提供，见 retry.go。
package provider

import "time"

// InstanceStatus 云厂商侧的实例状态
type InstanceStatus string

const (
	StatusPending      InstanceStatus = "pending"
	StatusRunning      InstanceStatus = "running"
	StatusStopping     InstanceStatus = "stopping"
	StatusStopped      InstanceStatus = "stopped"
	StatusShuttingDown InstanceStatus = "shutting-down"
	StatusTerminated   InstanceStatus = "terminated"
)

// RunInstanceInput 启动实例的参数
type RunInstanceInput struct {
	ImageID      string            `json:"imageID"`
	InstanceType string            `json:"instanceType"`
	Region       string            `json:"region"`
	GroupID      string            `json:"groupID"`      // 隔离组 ID
	KeyName      string            `json:"keyName"`      // 凭据对名称（Windows 实例为空）
	RootVolumeGB int               `json:"rootVolumeGB"` // 根磁盘大小（GB）
	Tags         map[string]string `json:"tags"`         // 归属标签（tenant/vm）
}

// Instance 云厂商侧的实例信息
type Instance struct {
	ProviderID string         `json:"providerID"`
	Status     InstanceStatus `json:"status"`
	PublicIP   string         `json:"publicIP"`  // 仅 running 状态存在
	PrivateIP  string         `json:"privateIP"` // 仅 running 状态存在
	LaunchedAt time.Time      `json:"launchedAt"`
}

// IngressRule 隔离组的入站规则
type IngressRule struct {
	Protocol    string   `json:"protocol"` // tcp/udp
	Port        int      `json:"port"`
	SourceCIDRs []string `json:"sourceCIDRs"`
}

// SecurityGroup 隔离组
type SecurityGroup struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Rules []IngressRule `json:"rules"`
}

// KeyPair 访问凭据对
// PrivateKey 仅在创建时返回一次，云厂商不保存
type KeyPair struct {
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
	PrivateKey  string `json:"privateKey,omitempty"`
}

// Metrics 实例利用率指标
type Metrics struct {
	CPUUtilization  float64 `json:"cpuUtilization"` // 0-100
	NetworkInBytes  float64 `json:"networkInBytes"`
	NetworkOutBytes float64 `json:"networkOutBytes"`
	SampleCount     int     `json:"sampleCount"`
}
