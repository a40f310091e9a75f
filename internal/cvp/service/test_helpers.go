package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adiology/cvp/internal/cvp/repository"
	"github.com/adiology/cvp/pkg/eventlog"
	"github.com/adiology/cvp/pkg/idgen"
	"github.com/adiology/cvp/pkg/provider"
)

// ledgerStub 测试用账本，余额可设置，记录所有扣费和退款
type ledgerStub struct {
	mu       sync.Mutex
	balances map[string]int64
	charges  []ledgerOp
	refunds  []ledgerOp
}

type ledgerOp struct {
	TenantID    string
	AmountCents int64
	Reference   string
}

func newLedgerStub() *ledgerStub {
	return &ledgerStub{balances: make(map[string]int64)}
}

func (l *ledgerStub) setBalance(tenantID string, cents int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[tenantID] = cents
}

func (l *ledgerStub) Balance(_ context.Context, tenantID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[tenantID], nil
}

func (l *ledgerStub) Charge(_ context.Context, tenantID string, amountCents int64, reference string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.charges = append(l.charges, ledgerOp{TenantID: tenantID, AmountCents: amountCents, Reference: reference})
	return nil
}

func (l *ledgerStub) Refund(_ context.Context, tenantID string, amountCents int64, reference string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refunds = append(l.refunds, ledgerOp{TenantID: tenantID, AmountCents: amountCents, Reference: reference})
	return nil
}

func (l *ledgerStub) chargeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.charges)
}

// testServices 一次性装配好的全部服务，每个测试独立数据库
type testServices struct {
	repo        *repository.Repository
	vms         repository.VMRepository
	billingRepo repository.BillingRepository
	usageRepo   repository.UsageRepository
	client      *provider.MockComputeClient
	ledger      *ledgerStub
	catalog     *Catalog
	pricing     *PricingService
	billing     *BillingService
	security    *SecurityService
	credentials *CredentialService
	vm          *VMService
	health      *HealthService
	events      *eventlog.Log
}

// setupTestServices 创建测试服务集
// 轮询和等待参数压到毫秒级，让失败路径在测试里也能秒级跑完
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	repo, err := repository.New(filepath.Join(t.TempDir(), "cvp-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	client := new(provider.MockComputeClient)
	ledger := newLedgerStub()
	idGen, err := idgen.New()
	require.NoError(t, err)
	events := eventlog.New(256)
	catalog := NewCatalog()

	vms := repository.NewVMRepository(repo.DB())
	billingRepo := repository.NewBillingRepository(repo.DB())
	usageRepo := repository.NewUsageRepository(repo.DB())

	pricing := NewPricingService(catalog)
	billing := NewBillingService(ledger, billingRepo, idGen)
	security := NewSecurityService(client, idGen)
	credentials := NewCredentialService(client, idGen)

	opts := VMServiceOptions{
		TenantQuota:  10,
		RunTimeout:   200 * time.Millisecond,
		StopTimeout:  200 * time.Millisecond,
		PollInterval: time.Millisecond,
		CleanupDelay: 0,
	}
	vm := NewVMService(vms, pricing, billing, security, credentials, client, catalog, idGen, events, opts)
	health := NewHealthService(vms, usageRepo, client, events)

	return &testServices{
		repo:        repo,
		vms:         vms,
		billingRepo: billingRepo,
		usageRepo:   usageRepo,
		client:      client,
		ledger:      ledger,
		catalog:     catalog,
		pricing:     pricing,
		billing:     billing,
		security:    security,
		credentials: credentials,
		vm:          vm,
		health:      health,
		events:      events,
	}
}

// mustIDGen 创建测试用 ID 生成器
func mustIDGen(t *testing.T) *idgen.Generator {
	t.Helper()
	idGen, err := idgen.New()
	require.NoError(t, err)
	return idGen
}
