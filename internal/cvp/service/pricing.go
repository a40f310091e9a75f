package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adiology/cvp/internal/cvp/entity"
)

// DefaultMarkup 平台加价比例
const DefaultMarkup = 0.20

// 报价缓存的有效期，吸收云厂商费率抖动，避免配置表单每次变更都重新计算
const quoteCacheTTL = 5 * time.Minute

// PricingService 报价服务
// 报价公式：基础小时费率 × 区域系数 + 操作系统附加费，再按 markup 加价；
// 小时费率精确到 1e-5 美元（云厂商费率粒度），月度费用 = 小时费率 × 730 取整到美分
type PricingService struct {
	catalog *Catalog
	markup  float64

	mu    sync.Mutex
	cache map[string]cachedQuote
	now   func() time.Time // 测试时可替换
}

type cachedQuote struct {
	quote     entity.PriceQuote
	expiresAt time.Time
}

// NewPricingService 创建报价服务
func NewPricingService(catalog *Catalog) *PricingService {
	return &PricingService{
		catalog: catalog,
		markup:  DefaultMarkup,
		cache:   make(map[string]cachedQuote),
		now:     time.Now,
	}
}

// Quote 计算配置的报价，命中缓存时不重新计算
func (s *PricingService) Quote(ctx context.Context, config *entity.VMConfiguration) (*entity.PriceQuote, error) {
	if err := s.catalog.Validate(config); err != nil {
		return nil, err
	}

	key := s.fingerprint(config)

	s.mu.Lock()
	if cached, ok := s.cache[key]; ok && s.now().Before(cached.expiresAt) {
		s.mu.Unlock()
		quote := cached.quote
		return &quote, nil
	}
	s.mu.Unlock()

	quote := s.compute(config)

	s.mu.Lock()
	s.cache[key] = cachedQuote{quote: *quote, expiresAt: s.now().Add(quoteCacheTTL)}
	s.mu.Unlock()

	zerolog.Ctx(ctx).Debug().
		Str("size_class", config.SizeClass).
		Str("region", config.Region).
		Str("os_family", config.OSFamily).
		Float64("hourly_rate", quote.HourlyRate).
		Int64("monthly_cents", quote.MonthlyCents).
		Msg("Computed price quote")

	return quote, nil
}

// compute 纯计算，调用前配置必须已通过目录校验
func (s *PricingService) compute(config *entity.VMConfiguration) *entity.PriceQuote {
	size, _ := s.catalog.Size(config.SizeClass)
	region, _ := s.catalog.Region(config.Region)
	family, _ := s.catalog.Family(config.OSFamily)

	providerRate := roundRate(size.BaseHourlyRate*region.Multiplier + family.HourlySurcharge)
	hourly := roundRate(providerRate * (1 + s.markup))
	monthlyCents := int64(math.Round(hourly * 730 * 100))

	return &entity.PriceQuote{
		ProviderHourlyRate: providerRate,
		HourlyRate:         hourly,
		MonthlyCents:       monthlyCents,
		Currency:           "USD",
		Markup:             s.markup,
	}
}

// fingerprint 配置指纹：操作系统家族+版本、区域、规格、磁盘
func (s *PricingService) fingerprint(config *entity.VMConfiguration) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d",
		config.OSFamily, config.OSVersion, config.Region, config.SizeClass,
		s.catalog.ResolveStorageGB(config))
}

// roundRate 小时费率取整到 1e-5 美元
func roundRate(rate float64) float64 {
	return math.Round(rate*1e5) / 1e5
}
