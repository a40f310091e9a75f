package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/adiology/cvp/internal/cvp/repository/model"
)

// BillingAggregates 租户计费聚合
type BillingAggregates struct {
	TotalCents       int64
	CreationFeeCents int64
	UsageCents       int64
	RefundCents      int64
	RecordCount      int64
}

// BillingRecordFilters 计费流水过滤条件
type BillingRecordFilters struct {
	VMID string
	Kind string
}

// BillingRepository 计费流水仓库接口，流水只追加不修改
type BillingRepository interface {
	CreateRecord(ctx context.Context, record *model.BillingRecord) error
	ListByTenant(ctx context.Context, tenantID string, filters BillingRecordFilters) ([]*model.BillingRecord, error)
	AggregateByTenant(ctx context.Context, tenantID string) (*BillingAggregates, error)
}

type billingRepository struct {
	db *gorm.DB
}

// NewBillingRepository 创建计费流水仓库
func NewBillingRepository(db *gorm.DB) BillingRepository {
	return &billingRepository{db: db}
}

// CreateRecord 追加一条流水
func (r *billingRepository) CreateRecord(ctx context.Context, record *model.BillingRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListByTenant 列出租户的计费流水
func (r *billingRepository) ListByTenant(ctx context.Context, tenantID string, filters BillingRecordFilters) ([]*model.BillingRecord, error) {
	var records []*model.BillingRecord
	query := r.db.WithContext(ctx).Model(&model.BillingRecord{}).Where("tenant_id = ?", tenantID)

	if filters.VMID != "" {
		query = query.Where("vm_id = ?", filters.VMID)
	}
	if filters.Kind != "" {
		query = query.Where("kind = ?", filters.Kind)
	}

	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// AggregateByTenant 按类型汇总租户支出
func (r *billingRepository) AggregateByTenant(ctx context.Context, tenantID string) (*BillingAggregates, error) {
	type kindSum struct {
		Kind  string
		Total int64
		Count int64
	}

	var sums []kindSum
	if err := r.db.WithContext(ctx).Model(&model.BillingRecord{}).
		Select("kind, COALESCE(SUM(amount_cents), 0) AS total, COUNT(*) AS count").
		Where("tenant_id = ?", tenantID).
		Group("kind").
		Scan(&sums).Error; err != nil {
		return nil, err
	}

	agg := &BillingAggregates{}
	for _, s := range sums {
		agg.TotalCents += s.Total
		agg.RecordCount += s.Count
		switch s.Kind {
		case "creation_fee":
			agg.CreationFeeCents = s.Total
		case "usage":
			agg.UsageCents = s.Total
		case "refund":
			agg.RefundCents = s.Total
		}
	}
	return agg, nil
}
