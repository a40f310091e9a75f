package entity

// 健康检查结论
const (
	VerdictHealthy   = "healthy"   // 四项检查全部通过
	VerdictUnhealthy = "unhealthy" // 至少一项通过但未全部通过
	VerdictUnknown   = "unknown"   // 所有检查均无结论
)

// HealthCheckRequest 健康检查请求
type HealthCheckRequest struct {
	VMID string `json:"vm_id" binding:"required"`
}

// HealthReport 单实例健康检查报告
type HealthReport struct {
	VMID            string  `json:"vm_id"`
	Verdict         string  `json:"verdict"`          // healthy / unhealthy / unknown
	ProviderStatus  string  `json:"provider_status"`  // 云厂商观察到的状态
	PersistedStatus string  `json:"persisted_status"` // 检查后的本地状态（已纠偏）
	StatusCorrected bool    `json:"status_corrected"` // 本次检查是否纠偏了本地状态
	CPUUtilization  float64 `json:"cpu_utilization"`  // running 时采样，0-100
	MetricsOK       bool    `json:"metrics_ok"`       // 指标是否可达
	NetworkOK       bool    `json:"network_ok"`       // 网络是否可达（公网 IP 存在）
}

// HealthCheckResponse 健康检查响应
type HealthCheckResponse struct {
	Report *HealthReport `json:"report"`
}
