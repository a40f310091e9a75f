package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adiology/cvp/internal/cvp/entity"
	"github.com/adiology/cvp/internal/cvp/service"
	"github.com/adiology/cvp/pkg/ginx"
)

// BillingServiceInterface 定义计费服务的接口
type BillingServiceInterface interface {
	DescribeRecords(ctx context.Context, tenantID string, req *entity.DescribeBillingRecordsRequest) (*entity.DescribeBillingRecordsResponse, error)
	Statistics(ctx context.Context, tenantID string) (*entity.BillingStatistics, error)
}

type Billing struct {
	billingService BillingServiceInterface
}

func NewBilling(billingService *service.BillingService) *Billing {
	return &Billing{
		billingService: billingService,
	}
}

func (b *Billing) RegisterRoutes(router *gin.RouterGroup) {
	billingRouter := router.Group("/billing")
	billingRouter.POST("/describe-records", ginx.Adapt(b.DescribeRecords))
	billingRouter.POST("/statistics", ginx.AdaptGet(b.Statistics))
}

func (b *Billing) DescribeRecords(ctx *gin.Context, req *entity.DescribeBillingRecordsRequest) (*entity.DescribeBillingRecordsResponse, error) {
	logger := zerolog.Ctx(ctx)

	resp, err := b.billingService.DescribeRecords(ctx, TenantID(ctx), req)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("Failed to describe billing records")
		return nil, err
	}

	logger.Info().
		Int("count", len(resp.Records)).
		Msg("Billing records described successfully")

	return resp, nil
}

func (b *Billing) Statistics(ctx *gin.Context) (*entity.BillingStatisticsResponse, error) {
	logger := zerolog.Ctx(ctx)

	stats, err := b.billingService.Statistics(ctx, TenantID(ctx))
	if err != nil {
		logger.Error().
			Err(err).
			Msg("Failed to compute billing statistics")
		return nil, err
	}

	return &entity.BillingStatisticsResponse{Statistics: stats}, nil
}
