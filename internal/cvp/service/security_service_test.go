package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/adiology/cvp/pkg/provider"
)

func newSecurityFixture(t *testing.T) (*SecurityService, *provider.MockComputeClient) {
	client := new(provider.MockComputeClient)
	return NewSecurityService(client, mustIDGen(t)), client
}

// windows 家族只放行 tcp/3389，其余只放行 tcp/22
func TestSecurityPortPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		windows  bool
		wantPort int
	}{
		{"linux gets ssh", false, 22},
		{"windows gets rdp", true, 3389},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, client := newSecurityFixture(t)
			client.On("CreateSecurityGroup", mock.Anything, mock.Anything, mock.Anything).
				Return(&provider.SecurityGroup{ID: "sg-raw-1"}, nil)
			client.On("AuthorizeIngress", mock.Anything, "sg-raw-1", mock.MatchedBy(func(r provider.IngressRule) bool {
				return r.Protocol == "tcp" && r.Port == tt.wantPort
			})).Return(nil)

			group, err := svc.CreateForVM(context.Background(), "vm-1", "web-01", tt.windows, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPort, group.Port)
			assert.Equal(t, []string{"0.0.0.0/0"}, group.Sources)
			client.AssertNumberOfCalls(t, "AuthorizeIngress", 1)
		})
	}
}

func TestSecuritySourceNormalization(t *testing.T) {
	t.Parallel()

	svc, client := newSecurityFixture(t)
	client.On("CreateSecurityGroup", mock.Anything, mock.Anything, mock.Anything).
		Return(&provider.SecurityGroup{ID: "sg-raw-1"}, nil)
	client.On("AuthorizeIngress", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	group, err := svc.CreateForVM(context.Background(), "vm-1", "web-01", false,
		[]string{"203.0.113.7", "198.51.100.0/24"})
	require.NoError(t, err)
	// 裸 IP 转为 /32，带掩码的原样保留
	assert.Equal(t, []string{"203.0.113.7/32", "198.51.100.0/24"}, group.Sources)
}

// 相同名称的实例并发建组也不会得到相同的组名
func TestSecurityGroupNameUniqueness(t *testing.T) {
	t.Parallel()

	svc, client := newSecurityFixture(t)
	client.On("CreateSecurityGroup", mock.Anything, mock.Anything, mock.Anything).
		Return(&provider.SecurityGroup{ID: "sg-raw-1"}, nil)
	client.On("AuthorizeIngress", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	const n = 20
	names := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			group, err := svc.CreateForVM(context.Background(), fmt.Sprintf("vm-%d", i), "web", false, nil)
			if assert.NoError(t, err) {
				names[i] = group.Name
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, name := range names {
		require.NotEmpty(t, name)
		assert.False(t, seen[name], "duplicate group name %s", name)
		seen[name] = true
		assert.Contains(t, name, "cvp-web-")
	}
}

// 规则写入失败时回收已创建的组
func TestSecurityCreateCleansUpOnRuleFailure(t *testing.T) {
	t.Parallel()

	svc, client := newSecurityFixture(t)
	client.On("CreateSecurityGroup", mock.Anything, mock.Anything, mock.Anything).
		Return(&provider.SecurityGroup{ID: "sg-raw-1"}, nil)
	client.On("AuthorizeIngress", mock.Anything, "sg-raw-1", mock.Anything).
		Return(&provider.APIError{Code: provider.CodeInvalidParameter, Message: "bad cidr"})
	client.On("DeleteSecurityGroup", mock.Anything, "sg-raw-1").Return(nil)

	_, err := svc.CreateForVM(context.Background(), "vm-1", "web-01", false, []string{"not-an-ip"})
	require.Error(t, err)
	client.AssertCalled(t, "DeleteSecurityGroup", mock.Anything, "sg-raw-1")
}

func TestSecurityAudit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		windows   bool
		rules     []provider.IngressRule
		wantScore int
	}{
		{
			name:    "clean restricted group",
			windows: false,
			rules: []provider.IngressRule{
				{Protocol: "tcp", Port: 22, SourceCIDRs: []string{"203.0.113.7/32"}},
			},
			wantScore: 100,
		},
		{
			name:    "open to world",
			windows: false,
			rules: []provider.IngressRule{
				{Protocol: "tcp", Port: 22, SourceCIDRs: []string{"0.0.0.0/0"}},
			},
			wantScore: 70,
		},
		{
			name:    "unexpected extra port",
			windows: false,
			rules: []provider.IngressRule{
				{Protocol: "tcp", Port: 22, SourceCIDRs: []string{"203.0.113.7/32"}},
				{Protocol: "tcp", Port: 8080, SourceCIDRs: []string{"203.0.113.7/32"}},
			},
			wantScore: 75,
		},
		{
			name:      "missing required port",
			windows:   true,
			rules:     []provider.IngressRule{},
			wantScore: 60,
		},
		{
			name:    "open world with wrong port only",
			windows: true,
			rules: []provider.IngressRule{
				{Protocol: "tcp", Port: 22, SourceCIDRs: []string{"0.0.0.0/0"}},
			},
			// -25 多余端口 -30 对全网开放 -40 缺少 3389
			wantScore: 5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, client := newSecurityFixture(t)
			client.On("DescribeSecurityGroup", mock.Anything, "sg-raw-1").
				Return(&provider.SecurityGroup{ID: "sg-raw-1", Rules: tt.rules}, nil)

			report, err := svc.Audit(context.Background(), "sg-raw-1", tt.windows)
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, report.Score)
			if tt.wantScore < 100 {
				assert.NotEmpty(t, report.Warnings)
				assert.NotEmpty(t, report.Recommendations)
			}
		})
	}
}

func TestSecurityAllowRevokeIP(t *testing.T) {
	t.Parallel()

	svc, client := newSecurityFixture(t)
	client.On("AuthorizeIngress", mock.Anything, "sg-raw-1", mock.MatchedBy(func(r provider.IngressRule) bool {
		return r.Port == 22 && len(r.SourceCIDRs) == 1 && r.SourceCIDRs[0] == "203.0.113.7/32"
	})).Return(nil)
	client.On("RevokeIngress", mock.Anything, "sg-raw-1", mock.MatchedBy(func(r provider.IngressRule) bool {
		return r.Port == 22 && r.SourceCIDRs[0] == "203.0.113.7/32"
	})).Return(nil)

	require.NoError(t, svc.AllowIP(context.Background(), "sg-raw-1", false, "203.0.113.7"))
	require.NoError(t, svc.RevokeIP(context.Background(), "sg-raw-1", false, "203.0.113.7"))
}
