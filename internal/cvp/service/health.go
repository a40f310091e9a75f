package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/adiology/cvp/internal/cvp/entity"
	"github.com/adiology/cvp/internal/cvp/repository"
	"github.com/adiology/cvp/internal/cvp/repository/model"
	"github.com/adiology/cvp/pkg/apierror"
	"github.com/adiology/cvp/pkg/eventlog"
	"github.com/adiology/cvp/pkg/provider"
)

// metricsWindow 健康检查采样利用率的时间窗口
const metricsWindow = 5 * time.Minute

// HealthService 健康检查与状态纠偏服务
// 云厂商是 running/stopped/terminated 的事实来源，本地状态漂移时以云厂商为准
type HealthService struct {
	vms    repository.VMRepository
	usage  repository.UsageRepository
	client provider.ComputeClient
	events *eventlog.Log
}

// NewHealthService 创建健康检查服务
func NewHealthService(
	vms repository.VMRepository,
	usage repository.UsageRepository,
	client provider.ComputeClient,
	events *eventlog.Log,
) *HealthService {
	return &HealthService{vms: vms, usage: usage, client: client, events: events}
}

// ReconcileStatus 纯函数：根据云厂商观察到的状态推导本地状态应取的值
// creating 期间云厂商的中间态（pending）不触发纠偏；terminated/error 为终态不回退
func ReconcileStatus(persisted string, observed provider.InstanceStatus) string {
	// 终态不回退
	if entity.IsTerminalStatus(persisted) {
		return persisted
	}
	// 占位状态由进行中的操作独占持有，纠偏不与其竞争
	if entity.IsTransientStatus(persisted) {
		return persisted
	}

	switch observed {
	case provider.StatusRunning:
		return entity.StatusRunning
	case provider.StatusStopped:
		return entity.StatusStopped
	case provider.StatusTerminated, provider.StatusShuttingDown:
		return entity.StatusTerminated
	case provider.StatusPending, provider.StatusStopping:
		// 中间态：保持本地状态等待收敛
		return persisted
	default:
		return persisted
	}
}

// CheckVM 对单个实例执行健康检查：纠偏状态、采样指标、给出结论
// 本地状态与云厂商一致时不产生写入，连续检查结果幂等
func (s *HealthService) CheckVM(ctx context.Context, tenantID, vmID string) (*entity.HealthReport, error) {
	logger := zerolog.Ctx(ctx)

	vm, err := s.vms.GetByID(ctx, tenantID, vmID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.WrapError(apierror.ErrResourceNotFound, "VM not found", err)
		}
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to load VM", err)
	}

	report := &entity.HealthReport{
		VMID:            vmID,
		PersistedStatus: vm.Status,
	}

	// 尚未拿到云厂商实例 ID 的记录无法检查
	if vm.ProviderID == "" {
		report.Verdict = entity.VerdictUnknown
		return report, nil
	}

	providerOK := false
	instance, err := s.client.DescribeInstance(ctx, vm.ProviderID)
	if err != nil {
		logger.Warn().
			Str("vm_id", vmID).
			Str("provider_id", vm.ProviderID).
			Err(err).
			Msg("Health check: describe instance failed")
	} else {
		providerOK = true
		report.ProviderStatus = string(instance.Status)
	}

	agreement := false
	if providerOK {
		corrected := ReconcileStatus(vm.Status, instance.Status)
		if corrected != vm.Status {
			// 漂移：以云厂商为准纠偏本地状态
			if err := s.vms.UpdateFields(ctx, tenantID, vmID, map[string]interface{}{
				"status": corrected,
			}); err != nil {
				return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to correct VM status", err)
			}
			logger.Info().
				Str("vm_id", vmID).
				Str("persisted", vm.Status).
				Str("observed", string(instance.Status)).
				Str("corrected", corrected).
				Msg("Corrected status drift")
			s.events.Record(vmID, eventlog.KindHealthCheck,
				"status corrected from "+vm.Status+" to "+corrected)
			report.StatusCorrected = true
			report.PersistedStatus = corrected
		} else {
			agreement = true
		}
	}

	metricsOK := false
	if providerOK && instance.Status == provider.StatusRunning {
		metrics, err := s.client.GetInstanceMetrics(ctx, vm.ProviderID, metricsWindow)
		if err != nil {
			logger.Warn().
				Str("vm_id", vmID).
				Err(err).
				Msg("Health check: metrics query failed")
		} else {
			metricsOK = true
			report.CPUUtilization = metrics.CPUUtilization
			if err := s.usage.CreateSample(ctx, &model.UsageSample{
				VMID:           vmID,
				TenantID:       tenantID,
				CPUUtilization: metrics.CPUUtilization,
				SampledAt:      time.Now(),
			}); err != nil {
				logger.Warn().Str("vm_id", vmID).Err(err).Msg("Failed to persist usage sample")
			}
		}
	}
	report.MetricsOK = metricsOK

	// 网络可达性：以 running 实例持有公网地址为判据
	networkOK := providerOK && instance.Status == provider.StatusRunning && instance.PublicIP != ""
	report.NetworkOK = networkOK

	report.Verdict = verdict(providerOK, metricsOK, networkOK, agreement)
	return report, nil
}

// ReconcileTenant 对租户的全部非终态实例执行健康检查
// 由外部触发（API 或定时任务），本服务不持有时钟
func (s *HealthService) ReconcileTenant(ctx context.Context, tenantID string) ([]entity.HealthReport, error) {
	logger := zerolog.Ctx(ctx)

	vms, err := s.vms.ListByTenant(ctx, tenantID, repository.VMListFilters{})
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to list VMs", err)
	}

	var reports []entity.HealthReport
	for _, vm := range vms {
		if entity.IsTerminalStatus(vm.Status) {
			continue
		}
		report, err := s.CheckVM(ctx, tenantID, vm.ID)
		if err != nil {
			logger.Warn().Str("vm_id", vm.ID).Err(err).Msg("Reconcile: health check failed")
			continue
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

// verdict 综合四项检查给出结论
// 全部通过为 healthy，至少一项通过为 unhealthy，全部失败为 unknown
func verdict(providerOK, metricsOK, networkOK, agreement bool) string {
	passed := 0
	for _, ok := range []bool{providerOK, metricsOK, networkOK, agreement} {
		if ok {
			passed++
		}
	}
	switch {
	case passed == 4:
		return entity.VerdictHealthy
	case passed >= 1:
		return entity.VerdictUnhealthy
	default:
		return entity.VerdictUnknown
	}
}
