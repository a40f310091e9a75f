package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adiology/cvp/internal/cvp/entity"
	"github.com/adiology/cvp/internal/cvp/service"
	"github.com/adiology/cvp/pkg/ginx"
)

// PricingServiceInterface 定义报价服务的接口
type PricingServiceInterface interface {
	Quote(ctx context.Context, config *entity.VMConfiguration) (*entity.PriceQuote, error)
}

type Pricing struct {
	pricingService PricingServiceInterface
}

func NewPricing(pricingService *service.PricingService) *Pricing {
	return &Pricing{
		pricingService: pricingService,
	}
}

func (p *Pricing) RegisterRoutes(router *gin.RouterGroup) {
	pricingRouter := router.Group("/pricing")
	pricingRouter.POST("/quote", ginx.Adapt(p.Quote))
}

func (p *Pricing) Quote(ctx *gin.Context, req *entity.QuoteRequest) (*entity.QuoteResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("os_family", req.Configuration.OSFamily).
		Str("region", req.Configuration.Region).
		Str("size_class", req.Configuration.SizeClass).
		Msg("Quote called")

	quote, err := p.pricingService.Quote(ctx, &req.Configuration)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("Failed to compute quote")
		return nil, err
	}

	logger.Info().
		Float64("hourly_rate", quote.HourlyRate).
		Int64("monthly_cents", quote.MonthlyCents).
		Msg("Quote computed")

	return &entity.QuoteResponse{Quote: quote}, nil
}
