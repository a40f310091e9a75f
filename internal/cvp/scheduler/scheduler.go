// Package scheduler 周期性地把本地状态与云厂商对账
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/adiology/cvp/internal/cvp/entity"
)

// 单轮对账的最长耗时，超时后剩余租户留到下一轮
const reconcileTimeout = 5 * time.Minute

// Reconciler 按租户对账实例状态
type Reconciler interface {
	ReconcileTenant(ctx context.Context, tenantID string) ([]entity.HealthReport, error)
}

// TenantLister 列出需要对账的租户
type TenantLister interface {
	ListTenants(ctx context.Context) ([]string, error)
}

// Options 调度器配置
type Options struct {
	Spec string // cron 表达式，如 "@every 10m"
}

type Scheduler struct {
	cron       *cron.Cron
	tenants    TenantLister
	reconciler Reconciler
	logger     zerolog.Logger
}

func New(opts Options, tenants TenantLister, reconciler Reconciler, logger zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:       cron.New(),
		tenants:    tenants,
		reconciler: reconciler,
		logger:     logger.With().Str("component", "scheduler").Logger(),
	}
	if _, err := s.cron.AddFunc(opts.Spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

// Start 启动后台巡检，立即返回
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("reconciliation scheduler started")
}

// Stop 停止调度并等待进行中的一轮结束
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info().Msg("reconciliation scheduler stopped")
}

// runOnce 执行一轮全租户对账
// 单个租户失败不影响其余租户
func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	s.reconcileAll(ctx)
}

func (s *Scheduler) reconcileAll(ctx context.Context) {
	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list tenants for reconciliation")
		return
	}

	var corrected int
	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			s.logger.Warn().Msg("reconciliation round timed out")
			return
		}

		reports, err := s.reconciler.ReconcileTenant(ctx, tenantID)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("tenant_id", tenantID).
				Msg("tenant reconciliation failed")
			continue
		}
		for _, report := range reports {
			if report.StatusCorrected {
				corrected++
				s.logger.Info().
					Str("tenant_id", tenantID).
					Str("vm_id", report.VMID).
					Str("provider_status", report.ProviderStatus).
					Str("persisted_status", report.PersistedStatus).
					Msg("vm status corrected from provider")
			}
		}
	}

	s.logger.Info().
		Int("tenants", len(tenants)).
		Int("corrected", corrected).
		Msg("reconciliation round finished")
}
