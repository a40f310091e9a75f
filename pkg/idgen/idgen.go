// Package idgen 提供递增资源 ID 生成器
//
// 使用 Sonyflake 算法生成全局唯一且递增的 ID，格式为 {前缀}-{递增数字}：
//   - VM ID: vm-{递增数字}
//   - 隔离组 ID: sg-{递增数字}
//   - 凭据 ID: cred-{递增数字}
//   - 账单记录 ID: bill-{递增数字}
package idgen

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/sonyflake"
)

// Generator 递增 ID 生成器
// 使用 Sonyflake 算法生成全局唯一且递增的 ID
type Generator struct {
	sf *sonyflake.Sonyflake
}

// New 创建新的 ID 生成器
// Sonyflake 的默认机器 ID 取自宿主机私有 IPv4，取不到时创建失败，
// 返回错误而不是之后在生成时崩溃
func New() (*Generator, error) {
	sf := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if sf == nil {
		return nil, errors.New("sonyflake init failed: no machine ID available")
	}
	return &Generator{sf: sf}, nil
}

// generateIDWithPrefix 生成带前缀的 ID
func (g *Generator) generateIDWithPrefix(prefix, errorMsg string) (string, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return "", fmt.Errorf("%s: %w", errorMsg, err)
	}
	return fmt.Sprintf("%s-%d", prefix, id), nil
}

// GenerateVMID 生成 VM ID（格式：vm-{递增 ID}）
func (g *Generator) GenerateVMID() (string, error) {
	return g.generateIDWithPrefix("vm", "generate vm ID")
}

// GenerateGroupID 生成隔离组 ID（格式：sg-{递增 ID}）
func (g *Generator) GenerateGroupID() (string, error) {
	return g.generateIDWithPrefix("sg", "generate isolation group ID")
}

// GenerateCredentialID 生成凭据 ID（格式：cred-{递增 ID}）
func (g *Generator) GenerateCredentialID() (string, error) {
	return g.generateIDWithPrefix("cred", "generate credential ID")
}

// GenerateBillingID 生成账单记录 ID（格式：bill-{递增 ID}）
func (g *Generator) GenerateBillingID() (string, error) {
	return g.generateIDWithPrefix("bill", "generate billing record ID")
}

// GenerateID 生成通用递增 ID
// 隔离组命名使用它作为防冲突的单调递增后缀
func (g *Generator) GenerateID() (uint64, error) {
	return g.sf.NextID()
}
