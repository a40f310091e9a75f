package service

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/adiology/cvp/internal/cvp/entity"
	"github.com/adiology/cvp/internal/cvp/repository/model"
)

// vmModelToEntity 将 model.VM 转换为 entity.VM
func vmModelToEntity(m *model.VM) (*entity.VM, error) {
	e := &entity.VM{}
	if err := copier.Copy(e, m); err != nil {
		return nil, err
	}

	// 处理时间字段
	e.CreatedAt = m.CreatedAt.Format(time.RFC3339)
	e.UpdatedAt = m.UpdatedAt.Format(time.RFC3339)
	if m.LastStartedAt != nil {
		e.LastStartedAt = m.LastStartedAt.Format(time.RFC3339)
	}
	if m.LastStoppedAt != nil {
		e.LastStoppedAt = m.LastStoppedAt.Format(time.RFC3339)
	}

	return e, nil
}

// billingModelToEntity 将 model.BillingRecord 转换为 entity.BillingRecord
func billingModelToEntity(m *model.BillingRecord) (*entity.BillingRecord, error) {
	e := &entity.BillingRecord{}
	if err := copier.Copy(e, m); err != nil {
		return nil, err
	}

	// 处理时间字段
	e.CreatedAt = m.CreatedAt.Format(time.RFC3339)
	if m.PeriodStart != nil {
		e.PeriodStart = m.PeriodStart.Format(time.RFC3339)
	}
	if m.PeriodEnd != nil {
		e.PeriodEnd = m.PeriodEnd.Format(time.RFC3339)
	}

	return e, nil
}
