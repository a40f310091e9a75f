package entity

// PriceQuote 报价
// 小时费率为美元，精确到 1e-5（云厂商费率粒度）；月度费用为美分
// 报价按配置指纹缓存，不作为计费依据，计费以 BillingRecord 为准
type PriceQuote struct {
	ProviderHourlyRate float64 `json:"provider_hourly_rate"` // 云厂商基础小时费率
	HourlyRate         float64 `json:"hourly_rate"`          // 加价后的小时费率
	MonthlyCents       int64   `json:"monthly_cents"`        // 月度费用（小时费率 × 730，美分）
	Currency           string  `json:"currency"`             // USD
	Markup             float64 `json:"markup"`               // 加价比例，默认 0.20
}

// QuoteRequest 报价请求
type QuoteRequest struct {
	Configuration VMConfiguration `json:"configuration" binding:"required"`
}

// QuoteResponse 报价响应
type QuoteResponse struct {
	Quote *PriceQuote `json:"quote"`
}
