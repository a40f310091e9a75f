// Package api 提供 HTTP 接口层，所有业务路由都在租户鉴权之后
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adiology/cvp/internal/cvp/service"
)

// Options API 层配置
type Options struct {
	Addr      string // 监听地址，如 :8080
	JWTSecret string // 租户令牌签名密钥
}

type API struct {
	engine *gin.Engine
	server *http.Server

	vm      *VM
	pricing *Pricing
	billing *Billing
}

func New(
	opts Options,
	logger zerolog.Logger,
	vmService *service.VMService,
	healthService *service.HealthService,
	pricingService *service.PricingService,
	billingService *service.BillingService,
) (*API, error) {
	engine := gin.New()
	// 让 zerolog.Ctx(ctx) 能穿透 gin.Context 找到请求级 logger
	engine.ContextWithFallback = true
	engine.Use(gin.Recovery())
	engine.Use(RequestIDMiddleware(logger))

	api := &API{
		engine:  engine,
		vm:      NewVM(vmService, healthService),
		pricing: NewPricing(pricingService),
		billing: NewBilling(billingService),
	}

	group := engine.Group("/api")
	group.Use(AuthMiddleware(opts.JWTSecret))
	api.vm.RegisterRoutes(group)
	api.pricing.RegisterRoutes(group)
	api.billing.RegisterRoutes(group)

	api.server = &http.Server{
		Addr:    opts.Addr,
		Handler: engine,
	}
	return api, nil
}

func (a *API) Run(ctx context.Context) error {
	return a.server.ListenAndServe()
}

func (a *API) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func (a *API) Name() string {
	return "api"
}
