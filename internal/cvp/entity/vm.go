// Package entity 定义业务实体
package entity

import "time"

// VM 状态机的状态
// creating → running ⇄ stopped → terminated；任意状态 → error
// terminated 与 error 为终态，error 可以手动终止清理
const (
	StatusCreating   = "creating"
	StatusRunning    = "running"
	StatusStopped    = "stopped"
	StatusTerminated = "terminated"
	StatusError      = "error"

	// 操作进行中的占位状态，由发起操作的请求通过条件更新独占持有，
	// 完成或失败时落回目标/原状态
	StatusStarting    = "starting"
	StatusStopping    = "stopping"
	StatusTerminating = "terminating"
)

// IsTerminalStatus 判断状态是否为终态
func IsTerminalStatus(status string) bool {
	return status == StatusTerminated || status == StatusError
}

// IsTransientStatus 判断状态是否为操作进行中的占位状态
func IsTransientStatus(status string) bool {
	return status == StatusStarting || status == StatusStopping || status == StatusTerminating
}

// VMConfiguration 创建时提交的实例配置，创建后不可变
type VMConfiguration struct {
	Name       string `json:"name"        binding:"required"` // 实例名称
	OSFamily   string `json:"os_family"   binding:"required"` // 操作系统家族：linux-ubuntu / linux-debian / windows
	OSVersion  string `json:"os_version"  binding:"required"` // 版本，如 22.04 / 2022
	Region     string `json:"region"      binding:"required"` // 区域，如 us-east-1
	SizeClass  string `json:"size_class"  binding:"required"` // 规格，如 "2 vCPU/4GB/30GB"
	StorageGB  int    `json:"storage_gb"`                     // 根磁盘大小（GB），0 取规格默认值
	AllowedIPs []string `json:"allowed_ips,omitempty"`        // 入站来源 IP 白名单，空表示开放
}

// VM 实例信息
type VM struct {
	ID               string `json:"id"`                 // vm-{sonyflake}
	TenantID         string `json:"tenant_id"`          // 归属租户
	Name             string `json:"name"`               // 实例名称
	Status           string `json:"status"`             // 见状态机常量
	ProviderID       string `json:"provider_id"`        // 云厂商实例 ID，启动成功后赋值
	Region           string `json:"region"`             // 区域
	SizeClass        string `json:"size_class"`         // 规格
	OSFamily         string `json:"os_family"`          // 操作系统家族
	OSVersion        string `json:"os_version"`         // 操作系统版本
	StorageGB        int    `json:"storage_gb"`         // 根磁盘大小（GB）
	PublicIP         string `json:"public_ip"`          // 公网 IP，仅 running 时存在
	PrivateIP        string `json:"private_ip"`         // 内网 IP，仅 running 时存在
	IsolationGroupID string `json:"isolation_group_id"` // 隔离组 ID
	CredentialName   string `json:"credential_name"`    // 凭据对名称（linux）或凭据引用（windows）
	HourlyRate       float64 `json:"hourly_rate"`       // 小时费率（美元，精确到 1e-5）
	MonthlyCents     int64   `json:"monthly_cents"`     // 月度费用（美分）
	CreatedAt        string `json:"created_at"`         // 创建时间
	UpdatedAt        string `json:"updated_at"`         // 更新时间
	LastStartedAt    string `json:"last_started_at"`    // 最近启动时间
	LastStoppedAt    string `json:"last_stopped_at"`    // 最近停止时间
}

// RunVMRequest 创建实例请求
type RunVMRequest struct {
	Configuration VMConfiguration `json:"configuration" binding:"required"`
}

// RunVMResponse 创建实例响应
// PrivateKey 仅在创建时返回一次（linux 家族），平台不保存
type RunVMResponse struct {
	VM         *VM    `json:"vm"`
	PrivateKey string `json:"private_key,omitempty"` // linux：SSH 私钥，仅此一次
	Password   string `json:"password,omitempty"`    // windows：生成的密码，仅此一次
}

// DescribeVMsRequest 描述实例请求
type DescribeVMsRequest struct {
	VMIDs  []string `json:"vm_ids,omitempty"` // 为空时列出租户全部实例
	Status string   `json:"status,omitempty"` // 按状态过滤
	Region string   `json:"region,omitempty"` // 按区域过滤
}

// DescribeVMsResponse 描述实例响应
type DescribeVMsResponse struct {
	VMs []VM `json:"vms"`
}

// VMActionRequest 单实例操作请求（start/stop/reboot/terminate/delete）
type VMActionRequest struct {
	VMID string `json:"vm_id" binding:"required"`
}

// VMActionResponse 单实例操作响应
type VMActionResponse struct {
	VM            *VM    `json:"vm"`
	PreviousState string `json:"previous_state"` // 操作前的状态
}

// ConnectionInfo 实例远程连接信息
type ConnectionInfo struct {
	Type           string `json:"type"`            // rdp / ssh
	Endpoint       string `json:"endpoint"`        // host:port
	Username       string `json:"username"`        // 登录用户名
	CredentialName string `json:"credential_name"` // 凭据引用（密钥对名称或密码凭据 ID）
}

// ConnectionInfoResponse 连接信息响应
type ConnectionInfoResponse struct {
	ConnectionInfo *ConnectionInfo `json:"connection_info"`
}

// VMEventsResponse 实例生命周期事件响应
type VMEventsResponse struct {
	Events []VMEvent `json:"events"`
}

// VMEvent 一条生命周期事件
type VMEvent struct {
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail"`
}
