package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adiology/cvp/internal/cvp/entity"
	"github.com/adiology/cvp/internal/cvp/service"
	"github.com/adiology/cvp/pkg/ginx"
)

// VMServiceInterface 定义实例服务的接口
type VMServiceInterface interface {
	RunVM(ctx context.Context, tenantID string, req *entity.RunVMRequest) (*entity.RunVMResponse, error)
	DescribeVMs(ctx context.Context, tenantID string, req *entity.DescribeVMsRequest) (*entity.DescribeVMsResponse, error)
	StartVM(ctx context.Context, tenantID, vmID string) (*entity.VMActionResponse, error)
	StopVM(ctx context.Context, tenantID, vmID string) (*entity.VMActionResponse, error)
	RestartVM(ctx context.Context, tenantID, vmID string) (*entity.VMActionResponse, error)
	TerminateVM(ctx context.Context, tenantID, vmID string) (*entity.VMActionResponse, error)
	DeleteVM(ctx context.Context, tenantID, vmID string) error
	ConnectionInfo(ctx context.Context, tenantID, vmID string) (*entity.ConnectionInfo, error)
	Events(ctx context.Context, tenantID, vmID string) (*entity.VMEventsResponse, error)
	AllowIP(ctx context.Context, tenantID string, req *entity.AllowIPRequest) error
	RevokeIP(ctx context.Context, tenantID string, req *entity.RevokeIPRequest) error
	AuditIsolation(ctx context.Context, tenantID, vmID string) (*entity.AuditReport, error)
}

// HealthServiceInterface 定义健康检查服务的接口
type HealthServiceInterface interface {
	CheckVM(ctx context.Context, tenantID, vmID string) (*entity.HealthReport, error)
}

type VM struct {
	vmService     VMServiceInterface
	healthService HealthServiceInterface
}

func NewVM(vmService *service.VMService, healthService *service.HealthService) *VM {
	return &VM{
		vmService:     vmService,
		healthService: healthService,
	}
}

func (v *VM) RegisterRoutes(router *gin.RouterGroup) {
	vmRouter := router.Group("/vms")
	vmRouter.POST("/run", ginx.Adapt(v.RunVM))
	vmRouter.POST("/describe", ginx.Adapt(v.DescribeVMs))
	vmRouter.POST("/start", ginx.Adapt(v.StartVM))
	vmRouter.POST("/stop", ginx.Adapt(v.StopVM))
	vmRouter.POST("/reboot", ginx.Adapt(v.RebootVM))
	vmRouter.POST("/terminate", ginx.Adapt(v.TerminateVM))
	vmRouter.POST("/delete", ginx.AdaptErr(v.DeleteVM))
	vmRouter.POST("/connection-info", ginx.Adapt(v.ConnectionInfo))
	vmRouter.POST("/events", ginx.Adapt(v.Events))
	vmRouter.POST("/health-check", ginx.Adapt(v.HealthCheck))
	vmRouter.POST("/allow-ip", ginx.AdaptErr(v.AllowIP))
	vmRouter.POST("/revoke-ip", ginx.AdaptErr(v.RevokeIP))
	vmRouter.POST("/audit-isolation", ginx.Adapt(v.AuditIsolation))
}

func (v *VM) RunVM(ctx *gin.Context, req *entity.RunVMRequest) (*entity.RunVMResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("name", req.Configuration.Name).
		Str("os_family", req.Configuration.OSFamily).
		Str("region", req.Configuration.Region).
		Msg("RunVM called")

	resp, err := v.vmService.RunVM(ctx, TenantID(ctx), req)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("Failed to run VM")
		return nil, err
	}

	logger.Info().
		Str("vm_id", resp.VM.ID).
		Msg("VM created successfully")

	return resp, nil
}

func (v *VM) DescribeVMs(ctx *gin.Context, req *entity.DescribeVMsRequest) (*entity.DescribeVMsResponse, error) {
	logger := zerolog.Ctx(ctx)

	resp, err := v.vmService.DescribeVMs(ctx, TenantID(ctx), req)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("Failed to describe VMs")
		return nil, err
	}

	logger.Info().
		Int("count", len(resp.VMs)).
		Msg("VMs described successfully")

	return resp, nil
}

func (v *VM) StartVM(ctx *gin.Context, req *entity.VMActionRequest) (*entity.VMActionResponse, error) {
	return v.action(ctx, req, "start", v.vmService.StartVM)
}

func (v *VM) StopVM(ctx *gin.Context, req *entity.VMActionRequest) (*entity.VMActionResponse, error) {
	return v.action(ctx, req, "stop", v.vmService.StopVM)
}

func (v *VM) RebootVM(ctx *gin.Context, req *entity.VMActionRequest) (*entity.VMActionResponse, error) {
	return v.action(ctx, req, "reboot", v.vmService.RestartVM)
}

func (v *VM) TerminateVM(ctx *gin.Context, req *entity.VMActionRequest) (*entity.VMActionResponse, error) {
	return v.action(ctx, req, "terminate", v.vmService.TerminateVM)
}

// action 统一处理单实例生命周期操作的日志和转发
func (v *VM) action(
	ctx *gin.Context,
	req *entity.VMActionRequest,
	name string,
	fn func(ctx context.Context, tenantID, vmID string) (*entity.VMActionResponse, error),
) (*entity.VMActionResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("vm_id", req.VMID).
		Str("action", name).
		Msg("VM action called")

	resp, err := fn(ctx, TenantID(ctx), req.VMID)
	if err != nil {
		logger.Error().
			Err(err).
			Str("vm_id", req.VMID).
			Str("action", name).
			Msg("VM action failed")
		return nil, err
	}

	logger.Info().
		Str("vm_id", req.VMID).
		Str("action", name).
		Str("previous_state", resp.PreviousState).
		Str("status", resp.VM.Status).
		Msg("VM action completed")

	return resp, nil
}

func (v *VM) DeleteVM(ctx *gin.Context, req *entity.VMActionRequest) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("vm_id", req.VMID).
		Msg("DeleteVM called")

	if err := v.vmService.DeleteVM(ctx, TenantID(ctx), req.VMID); err != nil {
		logger.Error().
			Err(err).
			Str("vm_id", req.VMID).
			Msg("Failed to delete VM")
		return err
	}

	logger.Info().
		Str("vm_id", req.VMID).
		Msg("VM deleted successfully")

	return nil
}

func (v *VM) ConnectionInfo(ctx *gin.Context, req *entity.VMActionRequest) (*entity.ConnectionInfoResponse, error) {
	logger := zerolog.Ctx(ctx)

	info, err := v.vmService.ConnectionInfo(ctx, TenantID(ctx), req.VMID)
	if err != nil {
		logger.Error().
			Err(err).
			Str("vm_id", req.VMID).
			Msg("Failed to get connection info")
		return nil, err
	}

	return &entity.ConnectionInfoResponse{ConnectionInfo: info}, nil
}

func (v *VM) Events(ctx *gin.Context, req *entity.VMActionRequest) (*entity.VMEventsResponse, error) {
	logger := zerolog.Ctx(ctx)

	resp, err := v.vmService.Events(ctx, TenantID(ctx), req.VMID)
	if err != nil {
		logger.Error().
			Err(err).
			Str("vm_id", req.VMID).
			Msg("Failed to list VM events")
		return nil, err
	}

	return resp, nil
}

func (v *VM) HealthCheck(ctx *gin.Context, req *entity.HealthCheckRequest) (*entity.HealthCheckResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("vm_id", req.VMID).
		Msg("HealthCheck called")

	report, err := v.healthService.CheckVM(ctx, TenantID(ctx), req.VMID)
	if err != nil {
		logger.Error().
			Err(err).
			Str("vm_id", req.VMID).
			Msg("Failed to check VM health")
		return nil, err
	}

	logger.Info().
		Str("vm_id", req.VMID).
		Str("verdict", report.Verdict).
		Bool("status_corrected", report.StatusCorrected).
		Msg("VM health checked")

	return &entity.HealthCheckResponse{Report: report}, nil
}

func (v *VM) AllowIP(ctx *gin.Context, req *entity.AllowIPRequest) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("vm_id", req.VMID).
		Str("ip", req.IP).
		Msg("AllowIP called")

	if err := v.vmService.AllowIP(ctx, TenantID(ctx), req); err != nil {
		logger.Error().
			Err(err).
			Str("vm_id", req.VMID).
			Msg("Failed to allow IP")
		return err
	}

	return nil
}

func (v *VM) RevokeIP(ctx *gin.Context, req *entity.RevokeIPRequest) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("vm_id", req.VMID).
		Str("ip", req.IP).
		Msg("RevokeIP called")

	if err := v.vmService.RevokeIP(ctx, TenantID(ctx), req); err != nil {
		logger.Error().
			Err(err).
			Str("vm_id", req.VMID).
			Msg("Failed to revoke IP")
		return err
	}

	return nil
}

func (v *VM) AuditIsolation(ctx *gin.Context, req *entity.AuditIsolationRequest) (*entity.AuditIsolationResponse, error) {
	logger := zerolog.Ctx(ctx)

	report, err := v.vmService.AuditIsolation(ctx, TenantID(ctx), req.VMID)
	if err != nil {
		logger.Error().
			Err(err).
			Str("vm_id", req.VMID).
			Msg("Failed to audit isolation group")
		return nil, err
	}

	logger.Info().
		Str("vm_id", req.VMID).
		Int("score", report.Score).
		Msg("Isolation group audited")

	return &entity.AuditIsolationResponse{Report: report}, nil
}
