package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/adiology/cvp/internal/cvp/repository/model"
)

// ErrQuotaExceeded 租户实例数达到配额上限
var ErrQuotaExceeded = errors.New("tenant vm quota exceeded")

// ErrStatusConflict 状态前置条件不满足，乐观锁更新未命中
var ErrStatusConflict = errors.New("vm status precondition not met")

// VMListFilters 实例列表过滤条件
type VMListFilters struct {
	Status string
	Region string
	IDs    []string
}

// VMRepository 实例仓库接口
// 所有读写都必须带租户，跨租户访问返回 gorm.ErrRecordNotFound
type VMRepository interface {
	CreateDraftWithQuota(ctx context.Context, vm *model.VM, quota int64) error
	GetByID(ctx context.Context, tenantID, id string) (*model.VM, error)
	ListByTenant(ctx context.Context, tenantID string, filters VMListFilters) ([]*model.VM, error)
	Update(ctx context.Context, vm *model.VM) error
	UpdateFields(ctx context.Context, tenantID, id string, fields map[string]interface{}) error
	TransitionStatus(ctx context.Context, tenantID, id string, from []string, to string) error
	Delete(ctx context.Context, tenantID, id string) error
	CountByTenant(ctx context.Context, tenantID string) (int64, error)
	ListTenants(ctx context.Context) ([]string, error)
}

type vmRepository struct {
	db *gorm.DB
}

// NewVMRepository 创建实例仓库
func NewVMRepository(db *gorm.DB) VMRepository {
	return &vmRepository{db: db}
}

// CreateDraftWithQuota 在单个事务内检查配额并插入草稿记录
// 计数和插入必须在同一事务内完成，避免并发创建时超出配额
func (r *vmRepository) CreateDraftWithQuota(ctx context.Context, vm *model.VM, quota int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.VM{}).
			Where("tenant_id = ? AND status NOT IN (?)", vm.TenantID, []string{"terminated", "error"}).
			Count(&count).Error; err != nil {
			return fmt.Errorf("count tenant vms: %w", err)
		}
		if count >= quota {
			return ErrQuotaExceeded
		}
		return tx.Create(vm).Error
	})
}

// GetByID 根据 ID 获取实例，租户不匹配时返回 not found
func (r *vmRepository) GetByID(ctx context.Context, tenantID, id string) (*model.VM, error) {
	var vm model.VM
	if err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&vm).Error; err != nil {
		return nil, err
	}
	return &vm, nil
}

// ListByTenant 列出租户的实例
func (r *vmRepository) ListByTenant(ctx context.Context, tenantID string, filters VMListFilters) ([]*model.VM, error) {
	var vms []*model.VM
	query := r.db.WithContext(ctx).Model(&model.VM{}).Where("tenant_id = ?", tenantID)

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Region != "" {
		query = query.Where("region = ?", filters.Region)
	}
	if len(filters.IDs) > 0 {
		query = query.Where("id IN (?)", filters.IDs)
	}

	if err := query.Order("created_at DESC").Find(&vms).Error; err != nil {
		return nil, err
	}
	return vms, nil
}

// Update 全量更新实例
func (r *vmRepository) Update(ctx context.Context, vm *model.VM) error {
	return r.db.WithContext(ctx).Save(vm).Error
}

// UpdateFields 按字段更新实例，租户不匹配时返回 not found
func (r *vmRepository) UpdateFields(ctx context.Context, tenantID, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.VM{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TransitionStatus 条件更新状态，充当乐观锁
// 只有当前状态在 from 集合内时才更新；未命中说明状态已被并发操作修改，
// 返回 ErrStatusConflict（记录存在）或 gorm.ErrRecordNotFound（记录不存在）
func (r *vmRepository) TransitionStatus(ctx context.Context, tenantID, id string, from []string, to string) error {
	result := r.db.WithContext(ctx).Model(&model.VM{}).
		Where("id = ? AND tenant_id = ? AND status IN (?)", id, tenantID, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 区分记录不存在和状态冲突
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.VM{}).
			Where("id = ? AND tenant_id = ?", id, tenantID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrStatusConflict
	}
	return nil
}

// Delete 软删除实例
func (r *vmRepository) Delete(ctx context.Context, tenantID, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&model.VM{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListTenants 返回持有未终结实例的租户 ID 列表
// 后台巡检按租户逐个对账时使用
func (r *vmRepository) ListTenants(ctx context.Context) ([]string, error) {
	var tenants []string
	err := r.db.WithContext(ctx).Model(&model.VM{}).
		Where("status NOT IN (?)", []string{"terminated", "error"}).
		Distinct("tenant_id").
		Order("tenant_id").
		Pluck("tenant_id", &tenants).Error
	return tenants, err
}

// CountByTenant 统计租户未终结的实例数
func (r *vmRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.VM{}).
		Where("tenant_id = ? AND status NOT IN (?)", tenantID, []string{"terminated", "error"}).
		Count(&count).Error
	return count, err
}
