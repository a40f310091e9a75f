// Package config 加载服务配置
// 配置来源优先级：环境变量 > 配置文件 > 默认值
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Address 是 HTTP 服务绑定地址
	// 可以通过环境变量 CVP_ADDRESS 配置
	Address string `yaml:"address"`

	// DataDir 是 CVP 数据目录，存放 SQLite 数据库
	// 可以通过环境变量 CVP_DATA_DIR 配置
	// 默认：~/.local/share/cvp
	DataDir string `yaml:"data_dir"`

	// JWTSecret 是租户令牌的签名密钥
	// 可以通过环境变量 CVP_JWT_SECRET 配置
	JWTSecret string `yaml:"jwt_secret"`

	// TenantQuota 是每个租户最多持有的未终结实例数
	// 可以通过环境变量 CVP_TENANT_QUOTA 配置
	TenantQuota int64 `yaml:"tenant_quota"`

	Provider  ProviderConfig  `yaml:"provider"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// LedgerConfig 外部预付费账本接入配置
type LedgerConfig struct {
	// BaseURL 是账本服务端点
	// 可以通过环境变量 CVP_LEDGER_BASE_URL 配置
	BaseURL string `yaml:"base_url"`

	// Token 是账本服务的 Bearer token
	// 可以通过环境变量 CVP_LEDGER_TOKEN 配置
	Token string `yaml:"token"`
}

// ProviderConfig 云厂商接入配置
type ProviderConfig struct {
	// BaseURL 是云厂商 API 端点
	// 可以通过环境变量 CVP_PROVIDER_BASE_URL 配置
	BaseURL string `yaml:"base_url"`

	// KeyID / SecretKey 是请求签名用的凭据
	// 可以通过环境变量 CVP_PROVIDER_KEY_ID / CVP_PROVIDER_SECRET_KEY 配置
	KeyID     string `yaml:"key_id"`
	SecretKey string `yaml:"secret_key"`

	// Timeout 是单次云厂商调用的超时时间
	Timeout time.Duration `yaml:"timeout"`
}

// SchedulerConfig 后台对账巡检配置
type SchedulerConfig struct {
	// Enabled 是否启用后台巡检，默认关闭
	// 可以通过环境变量 CVP_SCHEDULER_ENABLED 配置
	Enabled bool `yaml:"enabled"`

	// Spec 是巡检周期的 cron 表达式
	// 可以通过环境变量 CVP_SCHEDULER_SPEC 配置
	Spec string `yaml:"spec"`
}

// New 加载配置
// 如果设置了 CVP_CONFIG_FILE，先读取该 YAML 文件，环境变量可以覆盖其中的值
func New() (*Config, error) {
	cfg := &Config{
		Address:     "0.0.0.0:8080",
		DataDir:     defaultDataDir(),
		TenantQuota: 10,
		Provider: ProviderConfig{
			Timeout: 30 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled: false,
			Spec:    "@every 10m",
		},
	}

	if path := os.Getenv("CVP_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required, set CVP_JWT_SECRET")
	}
	if cfg.Provider.BaseURL == "" {
		return nil, fmt.Errorf("provider base url is required, set CVP_PROVIDER_BASE_URL")
	}
	if cfg.Ledger.BaseURL == "" {
		return nil, fmt.Errorf("ledger base url is required, set CVP_LEDGER_BASE_URL")
	}
	if cfg.TenantQuota <= 0 {
		return nil, fmt.Errorf("tenant quota must be positive, got %d", cfg.TenantQuota)
	}
	return cfg, nil
}

// applyEnv 用环境变量覆盖配置
func applyEnv(cfg *Config) {
	if addr := os.Getenv("CVP_ADDRESS"); addr != "" {
		cfg.Address = addr
	}
	if dir := os.Getenv("CVP_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if secret := os.Getenv("CVP_JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}
	if quota := os.Getenv("CVP_TENANT_QUOTA"); quota != "" {
		if n, err := strconv.ParseInt(quota, 10, 64); err == nil {
			cfg.TenantQuota = n
		}
	}
	if url := os.Getenv("CVP_PROVIDER_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if keyID := os.Getenv("CVP_PROVIDER_KEY_ID"); keyID != "" {
		cfg.Provider.KeyID = keyID
	}
	if secretKey := os.Getenv("CVP_PROVIDER_SECRET_KEY"); secretKey != "" {
		cfg.Provider.SecretKey = secretKey
	}
	if url := os.Getenv("CVP_LEDGER_BASE_URL"); url != "" {
		cfg.Ledger.BaseURL = url
	}
	if token := os.Getenv("CVP_LEDGER_TOKEN"); token != "" {
		cfg.Ledger.Token = token
	}
	if enabled := os.Getenv("CVP_SCHEDULER_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			cfg.Scheduler.Enabled = b
		}
	}
	if spec := os.Getenv("CVP_SCHEDULER_SPEC"); spec != "" {
		cfg.Scheduler.Spec = spec
	}
}

// defaultDataDir 返回默认数据目录
func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "cvp")
	}
	return filepath.Join(".", "data")
}

// DBPath 返回 SQLite 数据库文件路径
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "cvp.db")
}
