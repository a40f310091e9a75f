// Package cvp 提供 CVP 服务器的主入口和初始化逻辑
package cvp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jimmicro/grace"
	"github.com/rs/zerolog"

	"github.com/adiology/cvp/internal/cvp/api"
	"github.com/adiology/cvp/internal/cvp/config"
	"github.com/adiology/cvp/internal/cvp/repository"
	"github.com/adiology/cvp/internal/cvp/scheduler"
	"github.com/adiology/cvp/internal/cvp/service"
	"github.com/adiology/cvp/pkg/eventlog"
	"github.com/adiology/cvp/pkg/idgen"
	"github.com/adiology/cvp/pkg/ledger"
	"github.com/adiology/cvp/pkg/provider"
)

// 生命周期事件环形缓冲的容量
const eventLogCapacity = 4096

type Server struct {
	cfg       *config.Config
	api       *api.API
	repo      *repository.Repository
	scheduler *scheduler.Scheduler
}

func New(cfg *config.Config) (*Server, error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger

	// 1. 打开本地存储
	repo, err := repository.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	logger.Info().Str("db_path", cfg.DBPath()).Msg("Repository opened")

	// 2. 创建云厂商客户端，所有调用都走重试层
	httpClient, err := provider.NewHTTPClient(provider.Config{
		BaseURL:   cfg.Provider.BaseURL,
		KeyID:     cfg.Provider.KeyID,
		SecretKey: cfg.Provider.SecretKey,
		Timeout:   cfg.Provider.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create provider client: %w", err)
	}
	client := provider.NewRetryingClient(httpClient, provider.DefaultRetryPolicy())

	// 3. 基础设施
	idGen, err := idgen.New()
	if err != nil {
		return nil, fmt.Errorf("create id generator: %w", err)
	}
	events := eventlog.New(eventLogCapacity)
	catalog := service.NewCatalog()
	ledgerClient := ledger.NewClient(ledger.Config{
		BaseURL: cfg.Ledger.BaseURL,
		Token:   cfg.Ledger.Token,
	})

	// 4. 仓库
	vmRepo := repository.NewVMRepository(repo.DB())
	billingRepo := repository.NewBillingRepository(repo.DB())
	usageRepo := repository.NewUsageRepository(repo.DB())

	// 5. 业务服务
	pricingService := service.NewPricingService(catalog)
	billingService := service.NewBillingService(ledgerClient, billingRepo, idGen)
	securityService := service.NewSecurityService(client, idGen)
	credentialService := service.NewCredentialService(client, idGen)
	healthService := service.NewHealthService(vmRepo, usageRepo, client, events)

	vmOpts := service.DefaultVMServiceOptions()
	vmOpts.TenantQuota = cfg.TenantQuota
	vmService := service.NewVMService(
		vmRepo,
		pricingService,
		billingService,
		securityService,
		credentialService,
		client,
		catalog,
		idGen,
		events,
		vmOpts,
	)

	// 6. API
	apiInstance, err := api.New(
		api.Options{Addr: cfg.Address, JWTSecret: cfg.JWTSecret},
		logger,
		vmService,
		healthService,
		pricingService,
		billingService,
	)
	if err != nil {
		return nil, fmt.Errorf("create api: %w", err)
	}

	server := &Server{
		cfg:  cfg,
		api:  apiInstance,
		repo: repo,
	}

	// 7. 后台对账巡检（默认关闭）
	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(
			scheduler.Options{Spec: cfg.Scheduler.Spec},
			vmRepo,
			healthService,
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("create scheduler: %w", err)
		}
		server.scheduler = sched
	}

	return server, nil
}

func (s *Server) Run(ctx context.Context) error {
	if s.scheduler != nil {
		s.scheduler.Start()
	}

	// 使用 grace.Shepherd 管理服务生命周期
	services := []grace.Grace{
		s.api,
	}

	shepherd := grace.NewShepherd(
		services,
		grace.WithTimeout(30*time.Second),
		grace.WithLogger(&zerologLogger{}),
	)

	shepherd.Start(ctx)
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if err := s.api.Shutdown(ctx); err != nil {
		return err
	}
	return s.repo.Close()
}

// Name 实现 grace.Grace 接口
func (s *Server) Name() string {
	return "CVP Server"
}

// zerologLogger 实现 grace.Logger 接口
type zerologLogger struct{}

func (l *zerologLogger) Info(msg string, args ...interface{}) {
	logger := zerolog.DefaultContextLogger.Info()
	if len(args) > 0 {
		logger.Msgf(msg, args...)
	} else {
		logger.Msg(msg)
	}
}

func (l *zerologLogger) Error(msg string, args ...interface{}) {
	logger := zerolog.DefaultContextLogger.Error()
	if len(args) > 0 {
		logger.Msgf(msg, args...)
	} else {
		logger.Msg(msg)
	}
}
