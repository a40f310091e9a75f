package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/adiology/cvp/internal/cvp/repository/model"
)

// setupTestRepo 为每个测试创建独立的临时数据库
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cvp-test.db")
	repo, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testVM(tenantID, id, name, status string) *model.VM {
	now := time.Now()
	return &model.VM{
		ID:           id,
		TenantID:     tenantID,
		Name:         name,
		Status:       status,
		Region:       "us-east-1",
		SizeClass:    "2 vCPU/4GB/30GB",
		OSFamily:     "linux-ubuntu",
		OSVersion:    "22.04",
		StorageGB:    30,
		HourlyRate:   0.04992,
		MonthlyCents: 3644,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestVMRepositoryCreateAndGet(t *testing.T) {
	t.Parallel()

	repo := setupTestRepo(t)
	vms := NewVMRepository(repo.DB())
	ctx := context.Background()

	vm := testVM("tenant-1", "vm-1", "web-01", "creating")
	require.NoError(t, vms.CreateDraftWithQuota(ctx, vm, 10))

	got, err := vms.GetByID(ctx, "tenant-1", "vm-1")
	require.NoError(t, err)
	assert.Equal(t, "web-01", got.Name)
	assert.Equal(t, "creating", got.Status)
	assert.Equal(t, 0.04992, got.HourlyRate)
}

// 跨租户读取必须返回 not found，不能泄露其他租户的记录
func TestVMRepositoryTenantScope(t *testing.T) {
	t.Parallel()

	repo := setupTestRepo(t)
	vms := NewVMRepository(repo.DB())
	ctx := context.Background()

	require.NoError(t, vms.CreateDraftWithQuota(ctx, testVM("tenant-1", "vm-1", "web-01", "running"), 10))

	_, err := vms.GetByID(ctx, "tenant-2", "vm-1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = vms.Delete(ctx, "tenant-2", "vm-1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = vms.UpdateFields(ctx, "tenant-2", "vm-1", map[string]interface{}{"public_ip": "1.2.3.4"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	list, err := vms.ListByTenant(ctx, "tenant-2", VMListFilters{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestVMRepositoryQuota(t *testing.T) {
	t.Parallel()

	repo := setupTestRepo(t)
	vms := NewVMRepository(repo.DB())
	ctx := context.Background()

	require.NoError(t, vms.CreateDraftWithQuota(ctx, testVM("tenant-1", "vm-1", "a", "running"), 2))
	require.NoError(t, vms.CreateDraftWithQuota(ctx, testVM("tenant-1", "vm-2", "b", "creating"), 2))

	err := vms.CreateDraftWithQuota(ctx, testVM("tenant-1", "vm-3", "c", "creating"), 2)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// 终态记录不占配额
	require.NoError(t, vms.TransitionStatus(ctx, "tenant-1", "vm-1", []string{"running"}, "terminated"))
	assert.NoError(t, vms.CreateDraftWithQuota(ctx, testVM("tenant-1", "vm-3", "c", "creating"), 2))
}

// 并发创建不能突破配额
func TestVMRepositoryQuotaConcurrent(t *testing.T) {
	t.Parallel()

	repo := setupTestRepo(t)
	vms := NewVMRepository(repo.DB())
	ctx := context.Background()

	const quota = 3
	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vm := testVM("tenant-1", fmt.Sprintf("vm-%d", i), fmt.Sprintf("vm-%d", i), "creating")
			results[i] = vms.CreateDraftWithQuota(ctx, vm, quota)
		}(i)
	}
	wg.Wait()

	count, err := vms.CountByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.LessOrEqual(t, count, int64(quota))
}

func TestVMRepositoryTransitionStatus(t *testing.T) {
	t.Parallel()

	repo := setupTestRepo(t)
	vms := NewVMRepository(repo.DB())
	ctx := context.Background()

	require.NoError(t, vms.CreateDraftWithQuota(ctx, testVM("tenant-1", "vm-1", "web-01", "running"), 10))

	// 前置条件满足
	require.NoError(t, vms.TransitionStatus(ctx, "tenant-1", "vm-1", []string{"running"}, "stopped"))
	got, err := vms.GetByID(ctx, "tenant-1", "vm-1")
	require.NoError(t, err)
	assert.Equal(t, "stopped", got.Status)

	// 前置条件不满足：stopped 不能再 stop
	err = vms.TransitionStatus(ctx, "tenant-1", "vm-1", []string{"running"}, "stopped")
	assert.ErrorIs(t, err, ErrStatusConflict)

	// 记录不存在
	err = vms.TransitionStatus(ctx, "tenant-1", "vm-nope", []string{"running"}, "stopped")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// 冲突时记录保持原状
	got, err = vms.GetByID(ctx, "tenant-1", "vm-1")
	require.NoError(t, err)
	assert.Equal(t, "stopped", got.Status)
}

// 同一实例的并发状态转换只能有一个成功
func TestVMRepositoryTransitionStatusConcurrent(t *testing.T) {
	t.Parallel()

	repo := setupTestRepo(t)
	vms := NewVMRepository(repo.DB())
	ctx := context.Background()

	require.NoError(t, vms.CreateDraftWithQuota(ctx, testVM("tenant-1", "vm-1", "web-01", "running"), 10))

	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = vms.TransitionStatus(ctx, "tenant-1", "vm-1", []string{"running"}, "stopped")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestVMRepositoryListFilters(t *testing.T) {
	t.Parallel()

	repo := setupTestRepo(t)
	vms := NewVMRepository(repo.DB())
	ctx := context.Background()

	require.NoError(t, vms.CreateDraftWithQuota(ctx, testVM("tenant-1", "vm-1", "a", "running"), 10))
	require.NoError(t, vms.CreateDraftWithQuota(ctx, testVM("tenant-1", "vm-2", "b", "stopped"), 10))
	vm3 := testVM("tenant-1", "vm-3", "c", "running")
	vm3.Region = "eu-west-1"
	require.NoError(t, vms.CreateDraftWithQuota(ctx, vm3, 10))

	running, err := vms.ListByTenant(ctx, "tenant-1", VMListFilters{Status: "running"})
	require.NoError(t, err)
	assert.Len(t, running, 2)

	eu, err := vms.ListByTenant(ctx, "tenant-1", VMListFilters{Region: "eu-west-1"})
	require.NoError(t, err)
	require.Len(t, eu, 1)
	assert.Equal(t, "vm-3", eu[0].ID)

	byID, err := vms.ListByTenant(ctx, "tenant-1", VMListFilters{IDs: []string{"vm-1", "vm-2"}})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
}

func TestVMRepositoryDelete(t *testing.T) {
	t.Parallel()

	repo := setupTestRepo(t)
	vms := NewVMRepository(repo.DB())
	ctx := context.Background()

	require.NoError(t, vms.CreateDraftWithQuota(ctx, testVM("tenant-1", "vm-1", "web-01", "terminated"), 10))
	require.NoError(t, vms.Delete(ctx, "tenant-1", "vm-1"))

	_, err := vms.GetByID(ctx, "tenant-1", "vm-1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestVMRepositoryListTenants(t *testing.T) {
	t.Parallel()

	repo := setupTestRepo(t)
	vms := NewVMRepository(repo.DB())
	ctx := context.Background()

	require.NoError(t, vms.CreateDraftWithQuota(ctx, testVM("tenant-b", "vm-1", "a", "running"), 10))
	require.NoError(t, vms.CreateDraftWithQuota(ctx, testVM("tenant-a", "vm-2", "b", "stopped"), 10))
	require.NoError(t, vms.CreateDraftWithQuota(ctx, testVM("tenant-a", "vm-3", "c", "running"), 10))
	// 只剩终态实例的租户不参与对账
	require.NoError(t, vms.CreateDraftWithQuota(ctx, testVM("tenant-c", "vm-4", "d", "terminated"), 10))

	tenants, err := vms.ListTenants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant-a", "tenant-b"}, tenants)
}
