package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/adiology/cvp/internal/cvp/entity"
	"github.com/adiology/cvp/internal/cvp/repository"
	"github.com/adiology/cvp/internal/cvp/repository/model"
	"github.com/adiology/cvp/pkg/apierror"
	"github.com/adiology/cvp/pkg/idgen"
)

// Ledger 外部计费账本，金额单位为美分
// 余额由账本方派生，本服务只调用 Charge/Refund，从不就地扣减
type Ledger interface {
	Balance(ctx context.Context, tenantID string) (int64, error)
	Charge(ctx context.Context, tenantID string, amountCents int64, reference string) error
	Refund(ctx context.Context, tenantID string, amountCents int64, reference string) error
}

// 退款规则：运行超过 24 小时且不足一个计费月（730 小时）才计算按比例退款，
// 金额不足 1 美元的退款不发放，避免长尾小额流水
const (
	refundMinElapsed = 24 * time.Hour
	refundMaxElapsed = 730 * time.Hour
	refundMinCents   = 100
)

// BillingService 计费桥接服务
// 每次计费动作都追加一条 BillingRecord 流水，流水只增不改
type BillingService struct {
	ledger  Ledger
	records repository.BillingRepository
	idGen   *idgen.Generator
	now     func() time.Time
}

// NewBillingService 创建计费桥接服务
func NewBillingService(ledger Ledger, records repository.BillingRepository, idGen *idgen.Generator) *BillingService {
	return &BillingService{
		ledger:  ledger,
		records: records,
		idGen:   idGen,
		now:     time.Now,
	}
}

// Validate 创建前的余额预检
// 余额低于月度报价时返回 InsufficientBalance，消息带缺口金额；此时不会发生任何云厂商调用
func (s *BillingService) Validate(ctx context.Context, tenantID string, quote *entity.PriceQuote) error {
	balance, err := s.ledger.Balance(ctx, tenantID)
	if err != nil {
		return apierror.WrapError(apierror.ErrInternalError, "Failed to query balance", err)
	}
	if balance < quote.MonthlyCents {
		shortfall := quote.MonthlyCents - balance
		return apierror.WrapError(apierror.ErrInsufficientBalance,
			fmt.Sprintf("Balance is short by $%d.%02d for the monthly fee", shortfall/100, shortfall%100),
			nil)
	}
	return nil
}

// ChargeCreationFee 收取创建费（一个计费月的费用）
func (s *BillingService) ChargeCreationFee(ctx context.Context, tenantID, vmID string, quote *entity.PriceQuote) error {
	return s.charge(ctx, tenantID, vmID, entity.BillingKindCreationFee, quote.MonthlyCents, nil, nil)
}

// ChargeUsage 按运行时长收取使用费，区间与金额记入流水
func (s *BillingService) ChargeUsage(ctx context.Context, tenantID, vmID string, start, end time.Time, hourlyRate float64) error {
	if !end.After(start) {
		return nil
	}
	amount := usageCents(end.Sub(start), hourlyRate)
	if amount == 0 {
		return nil
	}
	return s.charge(ctx, tenantID, vmID, entity.BillingKindUsage, amount, &start, &end)
}

// RefundProrated 提前终止时按剩余时间比例退款
// 不满 24 小时或已满一个计费月不退；退款金额不足 1 美元不退
func (s *BillingService) RefundProrated(ctx context.Context, tenantID, vmID string, createdAt time.Time, monthlyCents int64) (int64, error) {
	logger := zerolog.Ctx(ctx)
	elapsed := s.now().Sub(createdAt)

	if elapsed <= refundMinElapsed || elapsed >= refundMaxElapsed {
		logger.Debug().
			Str("vm_id", vmID).
			Dur("elapsed", elapsed).
			Msg("No refund: outside refund window")
		return 0, nil
	}

	remaining := float64(refundMaxElapsed-elapsed) / float64(refundMaxElapsed)
	amount := int64(math.Round(float64(monthlyCents) * remaining))
	if amount < refundMinCents {
		logger.Debug().
			Str("vm_id", vmID).
			Int64("amount_cents", amount).
			Msg("No refund: amount below minimum")
		return 0, nil
	}

	if err := s.ledger.Refund(ctx, tenantID, amount, vmID); err != nil {
		return 0, apierror.WrapError(apierror.ErrInternalError, "Refund failed", err)
	}
	if err := s.appendRecord(ctx, tenantID, vmID, entity.BillingKindRefund, -amount, nil, nil); err != nil {
		return 0, err
	}

	logger.Info().
		Str("vm_id", vmID).
		Int64("amount_cents", amount).
		Msg("Issued prorated refund")
	return amount, nil
}

// DescribeRecords 查询租户的计费流水
func (s *BillingService) DescribeRecords(ctx context.Context, tenantID string, req *entity.DescribeBillingRecordsRequest) (*entity.DescribeBillingRecordsResponse, error) {
	rows, err := s.records.ListByTenant(ctx, tenantID, repository.BillingRecordFilters{
		VMID: req.VMID,
		Kind: req.Kind,
	})
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to list billing records", err)
	}

	resp := &entity.DescribeBillingRecordsResponse{Records: make([]entity.BillingRecord, 0, len(rows))}
	for _, row := range rows {
		record, err := billingModelToEntity(row)
		if err != nil {
			return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to convert billing record", err)
		}
		resp.Records = append(resp.Records, *record)
	}
	return resp, nil
}

// Statistics 汇总租户支出
func (s *BillingService) Statistics(ctx context.Context, tenantID string) (*entity.BillingStatistics, error) {
	agg, err := s.records.AggregateByTenant(ctx, tenantID)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to aggregate billing records", err)
	}
	return &entity.BillingStatistics{
		TenantID:         tenantID,
		TotalCents:       agg.TotalCents,
		CreationFeeCents: agg.CreationFeeCents,
		UsageCents:       agg.UsageCents,
		RefundCents:      agg.RefundCents,
		RecordCount:      agg.RecordCount,
	}, nil
}

// charge 调账本扣费并追加流水
func (s *BillingService) charge(ctx context.Context, tenantID, vmID, kind string, amountCents int64, start, end *time.Time) error {
	if err := s.ledger.Charge(ctx, tenantID, amountCents, vmID); err != nil {
		return apierror.WrapError(apierror.ErrInternalError, "Charge failed", err)
	}
	return s.appendRecord(ctx, tenantID, vmID, kind, amountCents, start, end)
}

// appendRecord 追加一条流水
func (s *BillingService) appendRecord(ctx context.Context, tenantID, vmID, kind string, amountCents int64, start, end *time.Time) error {
	id, err := s.idGen.GenerateBillingID()
	if err != nil {
		return apierror.WrapError(apierror.ErrInternalError, "Failed to generate billing record ID", err)
	}
	record := &model.BillingRecord{
		ID:          id,
		VMID:        vmID,
		TenantID:    tenantID,
		Kind:        kind,
		AmountCents: amountCents,
		PeriodStart: start,
		PeriodEnd:   end,
		CreatedAt:   s.now(),
	}
	if err := s.records.CreateRecord(ctx, record); err != nil {
		return apierror.WrapError(apierror.ErrInternalError, "Failed to persist billing record", err)
	}
	return nil
}

// usageCents 按时长和小时费率计算使用费（美分，四舍五入）
func usageCents(duration time.Duration, hourlyRate float64) int64 {
	hours := duration.Hours()
	return int64(math.Round(hours * hourlyRate * 100))
}
