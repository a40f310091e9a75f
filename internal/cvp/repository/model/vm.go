package model

import (
	"time"

	"gorm.io/gorm"
)

// VM 实例表
type VM struct {
	ID               string         `gorm:"primaryKey;type:text;column:id" json:"id"`                                                  // vm-{sonyflake}
	TenantID         string         `gorm:"type:text;not null;index:idx_vms_tenant_id;column:tenant_id" json:"tenant_id"`              // 归属租户
	Name             string         `gorm:"type:text;not null;column:name" json:"name"`                                                // 实例名称
	Status           string         `gorm:"type:text;not null;index:idx_vms_status;column:status" json:"status"`                       // creating, running, stopped, terminated, error
	ProviderID       string         `gorm:"type:text;index:idx_vms_provider_id;column:provider_id" json:"provider_id"`                 // 云厂商实例 ID
	Region           string         `gorm:"type:text;not null;column:region" json:"region"`                                            // 区域
	SizeClass        string         `gorm:"type:text;not null;column:size_class" json:"size_class"`                                    // 规格
	OSFamily         string         `gorm:"type:text;not null;column:os_family" json:"os_family"`                                      // 操作系统家族
	OSVersion        string         `gorm:"type:text;not null;column:os_version" json:"os_version"`                                    // 操作系统版本
	StorageGB        int            `gorm:"type:integer;not null;column:storage_gb" json:"storage_gb"`                                 // 根磁盘大小（GB）
	PublicIP         string         `gorm:"type:text;column:public_ip" json:"public_ip"`                                               // 公网 IP
	PrivateIP        string         `gorm:"type:text;column:private_ip" json:"private_ip"`                                             // 内网 IP
	IsolationGroupID string         `gorm:"type:text;column:isolation_group_id" json:"isolation_group_id"`                             // 隔离组 ID
	CredentialName   string         `gorm:"type:text;column:credential_name" json:"credential_name"`                                   // 凭据对名称或凭据 ID
	CredentialHash   string         `gorm:"type:text;column:credential_hash" json:"-"`                                                 // windows 密码的 bcrypt 哈希，永不返回
	HourlyRate       float64        `gorm:"type:real;not null;column:hourly_rate" json:"hourly_rate"`                                  // 小时费率（美元）
	MonthlyCents     int64          `gorm:"type:integer;not null;column:monthly_cents" json:"monthly_cents"`                           // 月度费用（美分）
	CreatedAt        time.Time      `gorm:"type:datetime;not null;index:idx_vms_created_at;column:created_at" json:"created_at"`       // 创建时间
	UpdatedAt        time.Time      `gorm:"type:datetime;not null;column:updated_at" json:"updated_at"`                                // 更新时间
	LastStartedAt    *time.Time     `gorm:"type:datetime;column:last_started_at" json:"last_started_at"`                               // 最近启动时间
	LastStoppedAt    *time.Time     `gorm:"type:datetime;column:last_stopped_at" json:"last_stopped_at"`                               // 最近停止时间
	DeletedAt        gorm.DeletedAt `gorm:"type:datetime;index:idx_vms_deleted_at;column:deleted_at" json:"deleted_at,omitempty"`      // 软删除
}

// TableName 指定表名
func (VM) TableName() string {
	return "vms"
}
