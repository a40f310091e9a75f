package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/adiology/cvp/internal/cvp/entity"
	"github.com/adiology/cvp/internal/cvp/repository"
	"github.com/adiology/cvp/internal/cvp/repository/model"
	"github.com/adiology/cvp/pkg/apierror"
	"github.com/adiology/cvp/pkg/eventlog"
	"github.com/adiology/cvp/pkg/idgen"
	"github.com/adiology/cvp/pkg/provider"
)

// VMServiceOptions 生命周期编排的等待参数
type VMServiceOptions struct {
	TenantQuota  int64         // 租户同时存在的实例上限
	RunTimeout   time.Duration // 等待 running 的时限
	StopTimeout  time.Duration // 等待 stopped 的时限
	PollInterval time.Duration // 轮询间隔
	CleanupDelay time.Duration // 终止后延迟删除隔离组，容忍云厂商最终一致
}

// DefaultVMServiceOptions 默认参数
func DefaultVMServiceOptions() VMServiceOptions {
	return VMServiceOptions{
		TenantQuota:  10,
		RunTimeout:   10 * time.Minute,
		StopTimeout:  5 * time.Minute,
		PollInterval: 10 * time.Second,
		CleanupDelay: 30 * time.Second,
	}
}

// VMService 实例生命周期编排服务
// 状态机：creating → running ⇄ stopped → terminated；任意状态 → error。
// 同一实例的操作通过状态字段的条件更新串行化：操作开始时先把状态
// 抢成 starting/stopping/terminating 占位，再执行计费和云厂商调用，
// 落败方零副作用；不同实例完全并行
type VMService struct {
	vms         repository.VMRepository
	pricing     *PricingService
	billing     *BillingService
	security    *SecurityService
	credentials *CredentialService
	client      provider.ComputeClient
	catalog     *Catalog
	idGen       *idgen.Generator
	events      *eventlog.Log
	opts        VMServiceOptions
}

// NewVMService 创建生命周期编排服务
func NewVMService(
	vms repository.VMRepository,
	pricing *PricingService,
	billing *BillingService,
	security *SecurityService,
	credentials *CredentialService,
	client provider.ComputeClient,
	catalog *Catalog,
	idGen *idgen.Generator,
	events *eventlog.Log,
	opts VMServiceOptions,
) *VMService {
	return &VMService{
		vms:         vms,
		pricing:     pricing,
		billing:     billing,
		security:    security,
		credentials: credentials,
		client:      client,
		catalog:     catalog,
		idGen:       idGen,
		events:      events,
		opts:        opts,
	}
}

// compensation 创建过程中累积的补偿动作
type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// RunVM 创建并启动实例
// 步骤：校验 → 余额预检 → 配额内落草稿 → 隔离组 → 凭据 → 启动实例 → 等待 running → 计费。
// 从隔离组创建起任何一步失败，都按逆序执行已累积的补偿动作并把记录置为 error；
// 之前的失败不会留下任何云厂商侧痕迹
func (s *VMService) RunVM(ctx context.Context, tenantID string, req *entity.RunVMRequest) (*entity.RunVMResponse, error) {
	logger := zerolog.Ctx(ctx)
	config := &req.Configuration

	// 1. 配置校验，非法输入零云厂商调用
	if err := s.catalog.Validate(config); err != nil {
		return nil, err
	}
	windows := s.catalog.IsWindows(config.OSFamily)

	// 2. 报价与余额预检，余额不足零云厂商调用
	quote, err := s.pricing.Quote(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := s.billing.Validate(ctx, tenantID, quote); err != nil {
		return nil, err
	}

	// 3. 配额内落草稿，计数与插入在同一事务内
	vmID, err := s.idGen.GenerateVMID()
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to generate VM ID", err)
	}
	now := time.Now()
	draft := &model.VM{
		ID:           vmID,
		TenantID:     tenantID,
		Name:         config.Name,
		Status:       entity.StatusCreating,
		Region:       config.Region,
		SizeClass:    config.SizeClass,
		OSFamily:     config.OSFamily,
		OSVersion:    config.OSVersion,
		StorageGB:    s.catalog.ResolveStorageGB(config),
		HourlyRate:   quote.HourlyRate,
		MonthlyCents: quote.MonthlyCents,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.vms.CreateDraftWithQuota(ctx, draft, s.opts.TenantQuota); err != nil {
		if errors.Is(err, repository.ErrQuotaExceeded) {
			return nil, apierror.WrapError(apierror.ErrQuotaExceeded,
				fmt.Sprintf("Tenant VM quota of %d reached", s.opts.TenantQuota), err)
		}
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to persist VM draft", err)
	}

	logger.Info().
		Str("vm_id", vmID).
		Str("tenant_id", tenantID).
		Str("size_class", config.SizeClass).
		Str("region", config.Region).
		Msg("Creating VM")
	s.events.Record(vmID, eventlog.KindCreating, "creation started")

	// 从这里开始累积补偿动作，失败时逆序执行
	// 补偿和落 error 在脱离取消的 context 上执行：
	// 请求被放弃（调用方断开、超时）时记录也不能停在 creating
	var compensations []compensation
	fail := func(stage string, cause error) (*entity.RunVMResponse, error) {
		cleanupCtx := context.WithoutCancel(ctx)
		s.compensate(cleanupCtx, vmID, compensations)
		s.markError(cleanupCtx, tenantID, vmID, stage, cause)
		return nil, cause
	}

	// 4. 隔离组
	group, err := s.security.CreateForVM(ctx, vmID, config.Name, windows, config.AllowedIPs)
	if err != nil {
		return fail("isolation group", err)
	}
	compensations = append(compensations, compensation{
		name: "delete isolation group",
		undo: func(ctx context.Context) error { return s.security.Delete(ctx, group.ID) },
	})

	// 5. 凭据
	creds, err := s.credentials.CreateForVM(ctx, vmID, windows)
	if err != nil {
		return fail("credentials", err)
	}
	compensations = append(compensations, compensation{
		name: "delete credentials",
		undo: func(ctx context.Context) error { return s.credentials.Delete(ctx, creds, windows) },
	})

	// 6. 启动实例，带归属标签
	imageID, _ := s.catalog.ImageID(config.OSFamily, config.OSVersion, config.Region)
	size, _ := s.catalog.Size(config.SizeClass)
	keyName := ""
	if !windows {
		keyName = creds.Name
	}
	instance, err := s.client.RunInstance(ctx, &provider.RunInstanceInput{
		ImageID:      imageID,
		InstanceType: size.InstanceType,
		Region:       config.Region,
		GroupID:      group.ID,
		KeyName:      keyName,
		RootVolumeGB: draft.StorageGB,
		Tags: map[string]string{
			"cvp:tenant": tenantID,
			"cvp:vm":     vmID,
		},
	})
	if err != nil {
		return fail("instance launch", provider.Translate(err))
	}
	compensations = append(compensations, compensation{
		name: "terminate instance",
		undo: func(ctx context.Context) error {
			if err := s.client.TerminateInstance(ctx, instance.ProviderID); err != nil {
				return provider.Translate(err)
			}
			return nil
		},
	})

	// 先持久化云厂商实例 ID，等待失败后仍可定位和终止
	if err := s.vms.UpdateFields(ctx, tenantID, vmID, map[string]interface{}{
		"provider_id":        instance.ProviderID,
		"isolation_group_id": group.ID,
		"credential_name":    creds.Name,
		"credential_hash":    creds.PasswordHash,
	}); err != nil {
		return fail("persist provider id", apierror.WrapError(apierror.ErrInternalError, "Failed to persist provider instance ID", err))
	}

	// 7. 等待 running
	_, err = provider.WaitForStatus(ctx, s.client, instance.ProviderID,
		[]provider.InstanceStatus{provider.StatusRunning}, s.opts.PollInterval, s.opts.RunTimeout)
	if err != nil {
		return fail("wait for running", translateWaitErr(err))
	}

	// 8. 回填地址、置 running、收创建费
	final, err := s.client.DescribeInstance(ctx, instance.ProviderID)
	if err != nil {
		return fail("describe after launch", provider.Translate(err))
	}
	startedAt := time.Now()
	if err := s.vms.UpdateFields(ctx, tenantID, vmID, map[string]interface{}{
		"status":          entity.StatusRunning,
		"public_ip":       final.PublicIP,
		"private_ip":      final.PrivateIP,
		"last_started_at": startedAt,
	}); err != nil {
		return fail("finalize record", apierror.WrapError(apierror.ErrInternalError, "Failed to finalize VM record", err))
	}

	if err := s.billing.ChargeCreationFee(ctx, tenantID, vmID, quote); err != nil {
		// 实例已就绪，计费失败只记录不回滚
		logger.Error().Str("vm_id", vmID).Err(err).Msg("Failed to charge creation fee")
	}

	logger.Info().
		Str("vm_id", vmID).
		Str("provider_id", instance.ProviderID).
		Str("public_ip", final.PublicIP).
		Msg("VM is running")
	s.events.Record(vmID, eventlog.KindStarting, "vm running at "+final.PublicIP)

	vm, err := s.getEntity(ctx, tenantID, vmID)
	if err != nil {
		return nil, err
	}
	return &entity.RunVMResponse{
		VM:         vm,
		PrivateKey: creds.PrivateKey,
		Password:   creds.Password,
	}, nil
}

// StartVM 启动已停止的实例，只能从 stopped 发起
func (s *VMService) StartVM(ctx context.Context, tenantID, vmID string) (*entity.VMActionResponse, error) {
	vm, err := s.getModel(ctx, tenantID, vmID)
	if err != nil {
		return nil, err
	}
	if vm.Status != entity.StatusStopped {
		return nil, invalidTransition("start", vm.Status, entity.StatusStopped)
	}

	// 条件更新充当乐观锁：先抢到 starting 占位再碰云厂商，
	// 并发操作只有一个能通过，落败方不产生任何云厂商调用和计费
	if err := s.vms.TransitionStatus(ctx, tenantID, vmID,
		[]string{entity.StatusStopped}, entity.StatusStarting); err != nil {
		return nil, translateTransitionErr(err, "start")
	}

	s.events.Record(vmID, eventlog.KindStarting, "start requested")
	if err := s.client.StartInstance(ctx, vm.ProviderID); err != nil {
		s.revertClaim(ctx, tenantID, vmID, entity.StatusStarting, entity.StatusStopped)
		return nil, provider.Translate(err)
	}
	if _, err := provider.WaitForStatus(ctx, s.client, vm.ProviderID,
		[]provider.InstanceStatus{provider.StatusRunning}, s.opts.PollInterval, s.opts.RunTimeout); err != nil {
		// 最近一次确认的状态仍是 stopped，实际进度交给健康检查收敛
		s.revertClaim(ctx, tenantID, vmID, entity.StatusStarting, entity.StatusStopped)
		return nil, translateWaitErr(err)
	}

	fields := map[string]interface{}{
		"status":          entity.StatusRunning,
		"last_started_at": time.Now(),
	}
	if instance, err := s.client.DescribeInstance(ctx, vm.ProviderID); err == nil {
		// 停止再启动后公网地址可能变化
		fields["public_ip"] = instance.PublicIP
		fields["private_ip"] = instance.PrivateIP
	}
	if err := s.vms.UpdateFields(ctx, tenantID, vmID, fields); err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to finalize VM record", err)
	}

	return s.actionResponse(ctx, tenantID, vmID, entity.StatusStopped)
}

// StopVM 优雅停止实例，只能从 running 发起
// 使用费在发出停止调用前按最近一次启动以来的时长结算；
// 记录只在云厂商确认 stopped 后才落 stopped，从不乐观提前
func (s *VMService) StopVM(ctx context.Context, tenantID, vmID string) (*entity.VMActionResponse, error) {
	logger := zerolog.Ctx(ctx)

	vm, err := s.getModel(ctx, tenantID, vmID)
	if err != nil {
		return nil, err
	}
	if vm.Status != entity.StatusRunning {
		return nil, invalidTransition("stop", vm.Status, entity.StatusRunning)
	}

	// 先抢到 stopping 占位再结算和碰云厂商，
	// 并发重复的停止只有一个会扣费、只发出一次云厂商调用
	if err := s.vms.TransitionStatus(ctx, tenantID, vmID,
		[]string{entity.StatusRunning}, entity.StatusStopping); err != nil {
		return nil, translateTransitionErr(err, "stop")
	}

	// 停止前结算本段运行时长的使用费
	if vm.LastStartedAt != nil {
		if err := s.billing.ChargeUsage(ctx, tenantID, vmID, *vm.LastStartedAt, time.Now(), vm.HourlyRate); err != nil {
			logger.Error().Str("vm_id", vmID).Err(err).Msg("Failed to charge usage before stop")
		}
	}

	s.events.Record(vmID, eventlog.KindStopping, "stop requested")
	if err := s.client.StopInstance(ctx, vm.ProviderID); err != nil {
		s.revertClaim(ctx, tenantID, vmID, entity.StatusStopping, entity.StatusRunning)
		return nil, provider.Translate(err)
	}
	if _, err := provider.WaitForStatus(ctx, s.client, vm.ProviderID,
		[]provider.InstanceStatus{provider.StatusStopped}, s.opts.PollInterval, s.opts.StopTimeout); err != nil {
		s.revertClaim(ctx, tenantID, vmID, entity.StatusStopping, entity.StatusRunning)
		return nil, translateWaitErr(err)
	}

	if err := s.vms.UpdateFields(ctx, tenantID, vmID, map[string]interface{}{
		"status":          entity.StatusStopped,
		"last_stopped_at": time.Now(),
		"public_ip":       "",
	}); err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to finalize VM record", err)
	}

	return s.actionResponse(ctx, tenantID, vmID, entity.StatusRunning)
}

// RestartVM 重启实例：先停后起
// 中途失败（停止成功但启动失败）时记录置为 error，事件里带最后观察到的云厂商状态
func (s *VMService) RestartVM(ctx context.Context, tenantID, vmID string) (*entity.VMActionResponse, error) {
	vm, err := s.getModel(ctx, tenantID, vmID)
	if err != nil {
		return nil, err
	}
	if vm.Status != entity.StatusRunning {
		return nil, invalidTransition("restart", vm.Status, entity.StatusRunning)
	}

	if _, err := s.StopVM(ctx, tenantID, vmID); err != nil {
		return nil, err
	}
	if _, err := s.StartVM(ctx, tenantID, vmID); err != nil {
		// 半途失败：记录最后观察到的云厂商状态并置为 error
		cleanupCtx := context.WithoutCancel(ctx)
		observed := "unknown"
		if instance, descErr := s.client.DescribeInstance(cleanupCtx, vm.ProviderID); descErr == nil {
			observed = string(instance.Status)
		}
		s.markError(cleanupCtx, tenantID, vmID, "restart", err)
		s.events.Record(vmID, eventlog.KindError, "restart failed, provider status "+observed)
		return nil, err
	}

	return s.actionResponse(ctx, tenantID, vmID, entity.StatusRunning)
}

// TerminateVM 终止实例，任何非终态都可以发起
// 终止意图幂等：云厂商侧已消失的实例不当作失败；
// 隔离组延迟删除以容忍云厂商的最终一致
func (s *VMService) TerminateVM(ctx context.Context, tenantID, vmID string) (*entity.VMActionResponse, error) {
	logger := zerolog.Ctx(ctx)

	vm, err := s.getModel(ctx, tenantID, vmID)
	if err != nil {
		return nil, err
	}
	if vm.Status == entity.StatusTerminated {
		return nil, invalidTransition("terminate", vm.Status, "any non-terminal")
	}
	previous := vm.Status

	// 先抢到 terminating 占位再结算和碰云厂商，
	// 与其他进行中的操作互斥，落败方零副作用
	if err := s.vms.TransitionStatus(ctx, tenantID, vmID,
		[]string{entity.StatusCreating, entity.StatusRunning, entity.StatusStopped, entity.StatusError},
		entity.StatusTerminating); err != nil {
		return nil, translateTransitionErr(err, "terminate")
	}

	s.events.Record(vmID, eventlog.KindTerminating, "terminate requested")

	// 结算最后一段运行时长
	if previous == entity.StatusRunning && vm.LastStartedAt != nil {
		if err := s.billing.ChargeUsage(ctx, tenantID, vmID, *vm.LastStartedAt, time.Now(), vm.HourlyRate); err != nil {
			logger.Error().Str("vm_id", vmID).Err(err).Msg("Failed to charge final usage")
		}
	}

	if vm.ProviderID != "" {
		if err := s.client.TerminateInstance(ctx, vm.ProviderID); err != nil {
			// 实例已不存在视为终止完成
			if apiErr, ok := provider.AsAPIError(err); !ok || apiErr.Code != provider.CodeInstanceNotFound {
				s.revertClaim(ctx, tenantID, vmID, entity.StatusTerminating, previous)
				return nil, provider.Translate(err)
			}
		}
	}

	// 终止调用被接受即置 terminated，不等实例真正消失
	if err := s.vms.UpdateFields(ctx, tenantID, vmID, map[string]interface{}{
		"status": entity.StatusTerminated,
	}); err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to finalize VM record", err)
	}

	// 终止已落盘，剩余清理在脱离取消的 context 上完成
	cleanupCtx := context.WithoutCancel(ctx)

	// 按比例退款
	if _, err := s.billing.RefundProrated(cleanupCtx, tenantID, vmID, vm.CreatedAt, vm.MonthlyCents); err != nil {
		logger.Error().Str("vm_id", vmID).Err(err).Msg("Prorated refund failed")
	}

	// 延迟删除隔离组：终止后云厂商侧的引用需要时间释放
	if vm.IsolationGroupID != "" {
		s.cleanupGroup(cleanupCtx, vmID, vm.IsolationGroupID)
	}
	// linux 密钥对一并回收
	if vm.CredentialName != "" && !s.catalog.IsWindows(vm.OSFamily) {
		if err := s.credentials.Delete(cleanupCtx, &VMCredentials{Name: vm.CredentialName}, false); err != nil {
			logger.Warn().Str("vm_id", vmID).Err(err).Msg("Failed to delete key pair during terminate")
		}
	}

	logger.Info().Str("vm_id", vmID).Str("previous", previous).Msg("VM terminated")
	return s.actionResponse(ctx, tenantID, vmID, previous)
}

// DeleteVM 删除实例记录，只允许终态
func (s *VMService) DeleteVM(ctx context.Context, tenantID, vmID string) error {
	vm, err := s.getModel(ctx, tenantID, vmID)
	if err != nil {
		return err
	}
	if !entity.IsTerminalStatus(vm.Status) {
		return invalidTransition("delete", vm.Status, "terminated or error")
	}
	if err := s.vms.Delete(ctx, tenantID, vmID); err != nil {
		return apierror.WrapError(apierror.ErrInternalError, "Failed to delete VM record", err)
	}
	return nil
}

// DescribeVMs 查询租户的实例
func (s *VMService) DescribeVMs(ctx context.Context, tenantID string, req *entity.DescribeVMsRequest) (*entity.DescribeVMsResponse, error) {
	rows, err := s.vms.ListByTenant(ctx, tenantID, repository.VMListFilters{
		Status: req.Status,
		Region: req.Region,
		IDs:    req.VMIDs,
	})
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to list VMs", err)
	}

	resp := &entity.DescribeVMsResponse{VMs: make([]entity.VM, 0, len(rows))}
	for _, row := range rows {
		vm, err := vmModelToEntity(row)
		if err != nil {
			return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to convert VM", err)
		}
		resp.VMs = append(resp.VMs, *vm)
	}
	return resp, nil
}

// GetVM 查询单个实例
func (s *VMService) GetVM(ctx context.Context, tenantID, vmID string) (*entity.VM, error) {
	return s.getEntity(ctx, tenantID, vmID)
}

// ConnectionInfo 返回远程连接信息，实例必须在 running 状态
func (s *VMService) ConnectionInfo(ctx context.Context, tenantID, vmID string) (*entity.ConnectionInfo, error) {
	vm, err := s.getModel(ctx, tenantID, vmID)
	if err != nil {
		return nil, err
	}
	if vm.Status != entity.StatusRunning {
		return nil, invalidTransition("connection-info", vm.Status, entity.StatusRunning)
	}

	windows := s.catalog.IsWindows(vm.OSFamily)
	family, _ := s.catalog.Family(vm.OSFamily)
	connType := "ssh"
	if windows {
		connType = "rdp"
	}
	return &entity.ConnectionInfo{
		Type:           connType,
		Endpoint:       fmt.Sprintf("%s:%d", vm.PublicIP, RequiredPort(windows)),
		Username:       family.Username,
		CredentialName: vm.CredentialName,
	}, nil
}

// Events 返回实例的生命周期事件
func (s *VMService) Events(ctx context.Context, tenantID, vmID string) (*entity.VMEventsResponse, error) {
	// 先做租户归属校验，避免跨租户窥探事件
	if _, err := s.getModel(ctx, tenantID, vmID); err != nil {
		return nil, err
	}

	events := s.events.ListByVM(vmID)
	resp := &entity.VMEventsResponse{Events: make([]entity.VMEvent, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, entity.VMEvent{
			Kind:      string(e.Kind),
			Timestamp: e.Timestamp,
			Detail:    e.Detail,
		})
	}
	return resp, nil
}

// AllowIP 为实例的隔离组放行来源 IP
func (s *VMService) AllowIP(ctx context.Context, tenantID string, req *entity.AllowIPRequest) error {
	vm, err := s.getModel(ctx, tenantID, req.VMID)
	if err != nil {
		return err
	}
	if vm.IsolationGroupID == "" {
		return apierror.WrapError(apierror.ErrIsolationGroup, "VM has no isolation group", nil)
	}
	return s.security.AllowIP(ctx, vm.IsolationGroupID, s.catalog.IsWindows(vm.OSFamily), req.IP)
}

// RevokeIP 从实例的隔离组撤销来源 IP
func (s *VMService) RevokeIP(ctx context.Context, tenantID string, req *entity.RevokeIPRequest) error {
	vm, err := s.getModel(ctx, tenantID, req.VMID)
	if err != nil {
		return err
	}
	if vm.IsolationGroupID == "" {
		return apierror.WrapError(apierror.ErrIsolationGroup, "VM has no isolation group", nil)
	}
	return s.security.RevokeIP(ctx, vm.IsolationGroupID, s.catalog.IsWindows(vm.OSFamily), req.IP)
}

// AuditIsolation 审计实例的隔离组
func (s *VMService) AuditIsolation(ctx context.Context, tenantID, vmID string) (*entity.AuditReport, error) {
	vm, err := s.getModel(ctx, tenantID, vmID)
	if err != nil {
		return nil, err
	}
	if vm.IsolationGroupID == "" {
		return nil, apierror.WrapError(apierror.ErrIsolationGroup, "VM has no isolation group", nil)
	}
	return s.security.Audit(ctx, vm.IsolationGroupID, s.catalog.IsWindows(vm.OSFamily))
}

// compensate 逆序执行补偿动作并等待完成
// 补偿失败只记录日志，面向用户的错误保持原始失败
func (s *VMService) compensate(ctx context.Context, vmID string, compensations []compensation) {
	logger := zerolog.Ctx(ctx)
	for i := len(compensations) - 1; i >= 0; i-- {
		c := compensations[i]
		if err := c.undo(ctx); err != nil {
			logger.Error().
				Str("vm_id", vmID).
				Str("compensation", c.name).
				Err(err).
				Msg("Compensating action failed")
		} else {
			logger.Info().
				Str("vm_id", vmID).
				Str("compensation", c.name).
				Msg("Compensating action completed")
		}
	}
}

// revertClaim 云厂商调用失败后把占位状态放回最近一次确认的状态
// 在脱离取消的 context 上执行，请求被放弃也不能把占位锁留在记录上
func (s *VMService) revertClaim(ctx context.Context, tenantID, vmID, claim, restore string) {
	revertCtx := context.WithoutCancel(ctx)
	if err := s.vms.TransitionStatus(revertCtx, tenantID, vmID, []string{claim}, restore); err != nil {
		zerolog.Ctx(ctx).Error().
			Str("vm_id", vmID).
			Str("claim", claim).
			Str("restore", restore).
			Err(err).
			Msg("Failed to revert status claim")
	}
}

// translateWaitErr 把轮询等待的失败翻译为平台错误
// 超时在轮询层已经带上分类；请求取消对外同样呈现为超时
func translateWaitErr(err error) error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, context.Canceled) {
		return apierror.WrapError(apierror.ErrTimeout, apierror.ErrTimeout.Message, err)
	}
	return provider.Translate(err)
}

// markError 把记录置为 error，创建失败的实例不会永远停在 creating
func (s *VMService) markError(ctx context.Context, tenantID, vmID, stage string, cause error) {
	logger := zerolog.Ctx(ctx)
	logger.Error().
		Str("vm_id", vmID).
		Str("stage", stage).
		Err(cause).
		Msg("VM operation failed")
	s.events.Record(vmID, eventlog.KindError, stage+" failed")

	if err := s.vms.UpdateFields(ctx, tenantID, vmID, map[string]interface{}{
		"status": entity.StatusError,
	}); err != nil {
		logger.Error().Str("vm_id", vmID).Err(err).Msg("Failed to mark VM as error")
	}
}

// cleanupGroup 延迟删除隔离组，等待云厂商释放实例对组的引用
func (s *VMService) cleanupGroup(ctx context.Context, vmID, groupID string) {
	logger := zerolog.Ctx(ctx)

	if s.opts.CleanupDelay > 0 {
		select {
		case <-ctx.Done():
			logger.Warn().Str("vm_id", vmID).Str("group_id", groupID).
				Msg("Context canceled before isolation group cleanup")
			return
		case <-time.After(s.opts.CleanupDelay):
		}
	}

	if err := s.security.Delete(ctx, groupID); err != nil {
		logger.Warn().
			Str("vm_id", vmID).
			Str("group_id", groupID).
			Err(err).
			Msg("Failed to delete isolation group during terminate")
		return
	}
	logger.Info().Str("vm_id", vmID).Str("group_id", groupID).Msg("Deleted isolation group")
}

// getModel 按租户读取实例记录
func (s *VMService) getModel(ctx context.Context, tenantID, vmID string) (*model.VM, error) {
	vm, err := s.vms.GetByID(ctx, tenantID, vmID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.WrapError(apierror.ErrResourceNotFound, "VM not found", err)
		}
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to load VM", err)
	}
	return vm, nil
}

// getEntity 按租户读取实例并转换为 entity
func (s *VMService) getEntity(ctx context.Context, tenantID, vmID string) (*entity.VM, error) {
	vm, err := s.getModel(ctx, tenantID, vmID)
	if err != nil {
		return nil, err
	}
	e, err := vmModelToEntity(vm)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrInternalError, "Failed to convert VM", err)
	}
	return e, nil
}

// actionResponse 组装操作响应
func (s *VMService) actionResponse(ctx context.Context, tenantID, vmID, previous string) (*entity.VMActionResponse, error) {
	vm, err := s.getEntity(ctx, tenantID, vmID)
	if err != nil {
		return nil, err
	}
	return &entity.VMActionResponse{VM: vm, PreviousState: previous}, nil
}

// invalidTransition 组装状态冲突错误，提示调用方先刷新状态
func invalidTransition(action, current, required string) *apierror.Error {
	return apierror.WrapError(apierror.ErrInvalidStateTransition,
		fmt.Sprintf("Cannot %s a VM in status %q (requires %s); refresh the VM status and retry", action, current, required),
		nil)
}

// translateTransitionErr 把仓库层的乐观锁结果翻译为平台错误
func translateTransitionErr(err error, action string) error {
	switch {
	case errors.Is(err, repository.ErrStatusConflict):
		return apierror.WrapError(apierror.ErrInvalidStateTransition,
			fmt.Sprintf("VM status changed while processing %s; refresh the VM status and retry", action), err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apierror.WrapError(apierror.ErrResourceNotFound, "VM not found", err)
	default:
		return apierror.WrapError(apierror.ErrInternalError, "Failed to update VM status", err)
	}
}
