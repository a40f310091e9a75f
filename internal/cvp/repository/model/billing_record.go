package model

import (
	"time"
)

// BillingRecord 计费流水表，只追加不修改，不做软删除
type BillingRecord struct {
	ID          string     `gorm:"primaryKey;type:text;column:id" json:"id"`                                                   // bill-{sonyflake}
	VMID        string     `gorm:"type:text;not null;index:idx_billing_records_vm_id;column:vm_id" json:"vm_id"`               // 关联实例
	TenantID    string     `gorm:"type:text;not null;index:idx_billing_records_tenant_id;column:tenant_id" json:"tenant_id"`   // 归属租户
	Kind        string     `gorm:"type:text;not null;column:kind" json:"kind"`                                                 // creation_fee, usage, refund
	AmountCents int64      `gorm:"type:integer;not null;column:amount_cents" json:"amount_cents"`                              // 金额（美分），退款为负
	PeriodStart *time.Time `gorm:"type:datetime;column:period_start" json:"period_start"`                                      // usage 类型的计费区间起点
	PeriodEnd   *time.Time `gorm:"type:datetime;column:period_end" json:"period_end"`                                          // usage 类型的计费区间终点
	CreatedAt   time.Time  `gorm:"type:datetime;not null;index:idx_billing_records_created_at;column:created_at" json:"created_at"`
}

// TableName 指定表名
func (BillingRecord) TableName() string {
	return "billing_records"
}
