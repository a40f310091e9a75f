package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/adiology/cvp/internal/cvp/repository/model"
)

// UsageRepository 利用率样本仓库接口
type UsageRepository interface {
	CreateSample(ctx context.Context, sample *model.UsageSample) error
	ListByVM(ctx context.Context, tenantID, vmID string, limit int) ([]*model.UsageSample, error)
}

type usageRepository struct {
	db *gorm.DB
}

// NewUsageRepository 创建利用率样本仓库
func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

// CreateSample 追加一条样本
func (r *usageRepository) CreateSample(ctx context.Context, sample *model.UsageSample) error {
	return r.db.WithContext(ctx).Create(sample).Error
}

// ListByVM 按时间倒序列出实例的利用率样本
func (r *usageRepository) ListByVM(ctx context.Context, tenantID, vmID string, limit int) ([]*model.UsageSample, error) {
	if limit <= 0 {
		limit = 100
	}
	var samples []*model.UsageSample
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND vm_id = ?", tenantID, vmID).
		Order("sampled_at DESC").
		Limit(limit).
		Find(&samples).Error
	if err != nil {
		return nil, err
	}
	return samples, nil
}
