package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/adiology/cvp/internal/cvp/entity"
	"github.com/adiology/cvp/pkg/apierror"
	"github.com/adiology/cvp/pkg/idgen"
	"github.com/adiology/cvp/pkg/provider"
)

// 隔离组端口策略：windows 家族放行 RDP，其余放行 SSH
const (
	portRDP = 3389
	portSSH = 22
)

// openWorld 默认来源：对全网开放
const openWorld = "0.0.0.0/0"

// 审计扣分项
const (
	penaltyOpenWorld      = 30 // 对全网开放
	penaltyUnexpectedPort = 25 // 每个多余端口
	penaltyMissingPort    = 40 // 缺少操作系统必需的端口
)

// SecurityService 网络隔离组服务
// 每个实例恰好一个隔离组，默认只放行操作系统所需的单个端口
type SecurityService struct {
	client provider.ComputeClient
	idGen  *idgen.Generator
}

// NewSecurityService 创建隔离组服务
func NewSecurityService(client provider.ComputeClient, idGen *idgen.Generator) *SecurityService {
	return &SecurityService{client: client, idGen: idGen}
}

// RequiredPort 返回操作系统家族必需放行的端口
func RequiredPort(windows bool) int {
	if windows {
		return portRDP
	}
	return portSSH
}

// CreateForVM 为实例创建隔离组
// 组名内嵌实例名称和创建时的 discriminator，并发创建也不会碰撞；
// sources 为空时对全网开放，否则每个 IP 表达为 /32（已带掩码的 CIDR 原样保留）
func (s *SecurityService) CreateForVM(
	ctx context.Context,
	vmID string,
	vmName string,
	windows bool,
	sources []string,
) (*entity.IsolationGroup, error) {
	logger := zerolog.Ctx(ctx)

	discriminator, err := s.idGen.GenerateID()
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrIsolationGroup, "Failed to generate isolation group name", err)
	}
	name := fmt.Sprintf("cvp-%s-%d", vmName, discriminator)

	group, err := s.client.CreateSecurityGroup(ctx, name, fmt.Sprintf("isolation group for %s", vmID))
	if err != nil {
		return nil, provider.Translate(err)
	}

	port := RequiredPort(windows)
	rule := provider.IngressRule{
		Protocol:    "tcp",
		Port:        port,
		SourceCIDRs: normalizeSources(sources),
	}
	if err := s.client.AuthorizeIngress(ctx, group.ID, rule); err != nil {
		// 规则写入失败时回收刚创建的组，不留半成品
		if delErr := s.client.DeleteSecurityGroup(ctx, group.ID); delErr != nil {
			logger.Error().Str("group_id", group.ID).Err(delErr).
				Msg("Failed to delete isolation group after rule failure")
		}
		return nil, provider.Translate(err)
	}

	logger.Info().
		Str("vm_id", vmID).
		Str("group_id", group.ID).
		Str("group_name", name).
		Int("port", port).
		Msg("Created isolation group")

	return &entity.IsolationGroup{
		ID:       group.ID,
		Name:     name,
		VMID:     vmID,
		Protocol: "tcp",
		Port:     port,
		Sources:  rule.SourceCIDRs,
	}, nil
}

// AllowIP 为隔离组追加来源 IP，不重建组
func (s *SecurityService) AllowIP(ctx context.Context, groupID string, windows bool, ip string) error {
	rule := provider.IngressRule{
		Protocol:    "tcp",
		Port:        RequiredPort(windows),
		SourceCIDRs: []string{toCIDR(ip)},
	}
	if err := s.client.AuthorizeIngress(ctx, groupID, rule); err != nil {
		return provider.Translate(err)
	}
	return nil
}

// RevokeIP 从隔离组撤销来源 IP
func (s *SecurityService) RevokeIP(ctx context.Context, groupID string, windows bool, ip string) error {
	rule := provider.IngressRule{
		Protocol:    "tcp",
		Port:        RequiredPort(windows),
		SourceCIDRs: []string{toCIDR(ip)},
	}
	if err := s.client.RevokeIngress(ctx, groupID, rule); err != nil {
		return provider.Translate(err)
	}
	return nil
}

// Delete 删除隔离组
func (s *SecurityService) Delete(ctx context.Context, groupID string) error {
	if err := s.client.DeleteSecurityGroup(ctx, groupID); err != nil {
		return provider.Translate(err)
	}
	return nil
}

// Audit 审计隔离组的规则集，仅诊断不阻断
// 满分 100：对全网开放 -30，多余端口每个 -25，缺少必需端口 -40
func (s *SecurityService) Audit(ctx context.Context, groupID string, windows bool) (*entity.AuditReport, error) {
	group, err := s.client.DescribeSecurityGroup(ctx, groupID)
	if err != nil {
		return nil, provider.Translate(err)
	}

	required := RequiredPort(windows)
	report := &entity.AuditReport{
		GroupID: groupID,
		Score:   100,
	}

	hasRequired := false
	for _, rule := range group.Rules {
		if rule.Port == required {
			hasRequired = true
		} else {
			report.Score -= penaltyUnexpectedPort
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("Port %d/%s is open but not required by the OS", rule.Port, rule.Protocol))
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Revoke the %d/%s rule unless it is intentional", rule.Port, rule.Protocol))
		}
		for _, cidr := range rule.SourceCIDRs {
			if cidr == openWorld {
				report.Score -= penaltyOpenWorld
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("Port %d/%s is open to the world", rule.Port, rule.Protocol))
				report.Recommendations = append(report.Recommendations,
					fmt.Sprintf("Restrict port %d to known source IPs", rule.Port))
				break
			}
		}
	}
	if !hasRequired {
		report.Score -= penaltyMissingPort
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Required port %d/tcp is not open, remote access will fail", required))
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Allow inbound tcp/%d", required))
	}
	if report.Score < 0 {
		report.Score = 0
	}

	return report, nil
}

// normalizeSources 来源列表为空时对全网开放，否则逐个转为 CIDR
func normalizeSources(sources []string) []string {
	if len(sources) == 0 {
		return []string{openWorld}
	}
	result := make([]string, 0, len(sources))
	for _, src := range sources {
		result = append(result, toCIDR(src))
	}
	return result
}

// toCIDR 裸 IP 表达为 /32，已带掩码的原样保留
func toCIDR(source string) string {
	if strings.Contains(source, "/") {
		return source
	}
	return source + "/32"
}
