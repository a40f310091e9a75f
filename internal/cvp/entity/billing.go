package entity

// 计费记录类型
const (
	BillingKindCreationFee = "creation_fee" // 创建费
	BillingKindUsage       = "usage"        // 使用费
	BillingKindRefund      = "refund"       // 退款（金额为负）
)

// BillingRecord 计费流水，只追加不修改
// 金额单位为美分，退款为负数
type BillingRecord struct {
	ID          string `json:"id"`           // bill-{sonyflake}
	VMID        string `json:"vm_id"`        // 关联实例
	TenantID    string `json:"tenant_id"`    // 归属租户
	Kind        string `json:"kind"`         // 见 BillingKind 常量
	AmountCents int64  `json:"amount_cents"` // 金额（美分），退款为负
	PeriodStart string `json:"period_start"` // usage 类型的计费区间起点
	PeriodEnd   string `json:"period_end"`   // usage 类型的计费区间终点
	CreatedAt   string `json:"created_at"`   // 记录时间
}

// DescribeBillingRecordsRequest 查询计费流水请求
type DescribeBillingRecordsRequest struct {
	VMID string `json:"vm_id,omitempty"` // 为空时返回租户全部流水
	Kind string `json:"kind,omitempty"`  // 按类型过滤
}

// DescribeBillingRecordsResponse 查询计费流水响应
type DescribeBillingRecordsResponse struct {
	Records []BillingRecord `json:"records"`
}

// BillingStatisticsRequest 计费统计请求
type BillingStatisticsRequest struct{}

// BillingStatistics 租户计费统计
type BillingStatistics struct {
	TenantID         string `json:"tenant_id"`
	TotalCents       int64  `json:"total_cents"`        // 累计净支出（美分，退款已抵扣）
	CreationFeeCents int64  `json:"creation_fee_cents"` // 创建费合计
	UsageCents       int64  `json:"usage_cents"`        // 使用费合计
	RefundCents      int64  `json:"refund_cents"`       // 退款合计（负数）
	RecordCount      int64  `json:"record_count"`       // 流水条数
}

// BillingStatisticsResponse 计费统计响应
type BillingStatisticsResponse struct {
	Statistics *BillingStatistics `json:"statistics"`
}
