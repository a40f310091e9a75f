package model

import (
	"time"
)

// UsageSample 健康检查采集的利用率样本，只追加不修改
type UsageSample struct {
	ID             uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	VMID           string    `gorm:"type:text;not null;index:idx_usage_samples_vm_id;column:vm_id" json:"vm_id"`       // 关联实例
	TenantID       string    `gorm:"type:text;not null;index:idx_usage_samples_tenant_id;column:tenant_id" json:"tenant_id"`
	CPUUtilization float64   `gorm:"type:real;not null;column:cpu_utilization" json:"cpu_utilization"` // 0-100
	SampledAt      time.Time `gorm:"type:datetime;not null;index:idx_usage_samples_sampled_at;column:sampled_at" json:"sampled_at"`
}

// TableName 指定表名
func (UsageSample) TableName() string {
	return "usage_samples"
}
