package entity

// IsolationGroup 实例的网络隔离组
// 与实例 1:1，默认只放行操作系统所需的单个端口
type IsolationGroup struct {
	ID       string   `json:"id"`        // 云厂商侧的组 ID
	Name     string   `json:"name"`      // cvp-{vm名称}-{discriminator}
	VMID     string   `json:"vm_id"`     // 归属实例
	Protocol string   `json:"protocol"`  // tcp
	Port     int      `json:"port"`      // windows 家族 3389，其余 22
	Sources  []string `json:"sources"`   // 来源 CIDR 列表，默认 0.0.0.0/0
}

// AllowIPRequest 为实例放行来源 IP 请求
type AllowIPRequest struct {
	VMID string `json:"vm_id" binding:"required"`
	IP   string `json:"ip"    binding:"required"` // 单个 IP 或 CIDR
}

// RevokeIPRequest 撤销来源 IP 请求
type RevokeIPRequest struct {
	VMID string `json:"vm_id" binding:"required"`
	IP   string `json:"ip"    binding:"required"`
}

// AuditIsolationRequest 审计实例隔离组请求
type AuditIsolationRequest struct {
	VMID string `json:"vm_id" binding:"required"`
}

// AuditReport 隔离组审计报告，仅诊断不阻断
// 满分 100，按发现项扣分：对全网开放 -30、多余端口每个 -25、缺少必需端口 -40
type AuditReport struct {
	GroupID         string   `json:"group_id"`
	Score           int      `json:"score"` // 0-100
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`
}

// AuditIsolationResponse 审计响应
type AuditIsolationResponse struct {
	Report *AuditReport `json:"report"`
}
