package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiology/cvp/internal/cvp/entity"
	"github.com/adiology/cvp/pkg/apierror"
)

func ubuntuConfig() *entity.VMConfiguration {
	return &entity.VMConfiguration{
		Name:      "web-01",
		OSFamily:  "linux-ubuntu",
		OSVersion: "22.04",
		Region:    "us-east-1",
		SizeClass: "2 vCPU/4GB/30GB",
	}
}

// 基准场景：基础费率 0.0416，us-east-1 无系数，加价 20%
// ⇒ 小时费率 0.04992，月度 36.44 美元
func TestPricingQuoteReferenceScenario(t *testing.T) {
	t.Parallel()

	pricing := NewPricingService(NewCatalog())
	quote, err := pricing.Quote(context.Background(), ubuntuConfig())
	require.NoError(t, err)

	assert.Equal(t, 0.0416, quote.ProviderHourlyRate)
	assert.Equal(t, 0.04992, quote.HourlyRate)
	assert.Equal(t, int64(3644), quote.MonthlyCents)
	assert.Equal(t, "USD", quote.Currency)
	assert.Equal(t, 0.20, quote.Markup)
}

// 所有有效配置都满足：月度 = round(小时 × 730)，小时 = round(基础 × 1.2)
func TestPricingRoundTrip(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog()
	pricing := NewPricingService(catalog)

	configs := []*entity.VMConfiguration{
		{Name: "a", OSFamily: "linux-ubuntu", OSVersion: "24.04", Region: "eu-west-1", SizeClass: "4 vCPU/16GB/80GB"},
		{Name: "b", OSFamily: "linux-debian", OSVersion: "12", Region: "us-west-2", SizeClass: "1 vCPU/2GB/20GB"},
		{Name: "c", OSFamily: "windows", OSVersion: "2022", Region: "ap-northeast-1", SizeClass: "8 vCPU/32GB/160GB"},
	}
	for _, config := range configs {
		quote, err := pricing.Quote(context.Background(), config)
		require.NoError(t, err)

		wantHourly := math.Round(quote.ProviderHourlyRate*1.2*1e5) / 1e5
		assert.Equal(t, wantHourly, quote.HourlyRate, config.Name)

		wantMonthly := int64(math.Round(quote.HourlyRate * 730 * 100))
		assert.Equal(t, wantMonthly, quote.MonthlyCents, config.Name)
	}
}

// Windows 附加费进入基础费率再参与加价
func TestPricingWindowsSurcharge(t *testing.T) {
	t.Parallel()

	pricing := NewPricingService(NewCatalog())
	config := ubuntuConfig()
	config.OSFamily = "windows"
	config.OSVersion = "2022"

	quote, err := pricing.Quote(context.Background(), config)
	require.NoError(t, err)

	// 0.0416 + 0.046 = 0.0876 ⇒ ×1.2 = 0.10512
	assert.Equal(t, 0.0876, quote.ProviderHourlyRate)
	assert.Equal(t, 0.10512, quote.HourlyRate)
}

func TestPricingInvalidConfig(t *testing.T) {
	t.Parallel()

	pricing := NewPricingService(NewCatalog())

	tests := []struct {
		name   string
		mutate func(*entity.VMConfiguration)
	}{
		{"unknown size", func(c *entity.VMConfiguration) { c.SizeClass = "128 vCPU/1TB" }},
		{"unknown region", func(c *entity.VMConfiguration) { c.Region = "mars-north-1" }},
		{"unknown os", func(c *entity.VMConfiguration) { c.OSFamily = "plan9" }},
		{"no image for region", func(c *entity.VMConfiguration) { c.OSVersion = "8.04" }},
		{"missing name", func(c *entity.VMConfiguration) { c.Name = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			config := ubuntuConfig()
			tt.mutate(config)
			_, err := pricing.Quote(context.Background(), config)
			assert.ErrorIs(t, err, apierror.ErrValidation)
		})
	}
}

// 缓存命中返回相同报价，过期后重新计算
func TestPricingQuoteCache(t *testing.T) {
	t.Parallel()

	pricing := NewPricingService(NewCatalog())
	current := time.Now()
	pricing.now = func() time.Time { return current }

	first, err := pricing.Quote(context.Background(), ubuntuConfig())
	require.NoError(t, err)

	// TTL 内命中缓存
	second, err := pricing.Quote(context.Background(), ubuntuConfig())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// 不同配置不共享缓存
	other := ubuntuConfig()
	other.SizeClass = "2 vCPU/8GB/50GB"
	third, err := pricing.Quote(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, first.MonthlyCents, third.MonthlyCents)

	// 过期后重新计算，结果不变
	current = current.Add(quoteCacheTTL + time.Second)
	fourth, err := pricing.Quote(context.Background(), ubuntuConfig())
	require.NoError(t, err)
	assert.Equal(t, first, fourth)
}
