// Package service 提供业务逻辑层的服务实现
// 包括 Pricing、Security、Billing、VM、Health 等服务
package service

import (
	"fmt"

	"github.com/adiology/cvp/internal/cvp/entity"
	"github.com/adiology/cvp/pkg/apierror"
)

// SizeClass 规格定义
type SizeClass struct {
	Name             string  // 例如 "2 vCPU/4GB/30GB"
	VCPUs            int     // 虚拟 CPU 数量
	RAMGB            int     // 内存大小（GB）
	DefaultStorageGB int     // 默认根磁盘大小（GB）
	InstanceType     string  // 对应的云厂商实例类型
	BaseHourlyRate   float64 // 云厂商基础小时费率（美元，us-east-1 基准）
}

// Region 区域定义
type Region struct {
	Name       string  // 例如 us-east-1
	Multiplier float64 // 区域价格系数（us-east-1 为 1.0）
}

// OSFamily 操作系统家族定义
type OSFamily struct {
	Name            string             // 例如 linux-ubuntu / windows
	Windows         bool               // 是否 Windows 家族（决定放行端口与凭据方式）
	HourlySurcharge float64            // license 等摊到小时的附加费（美元）
	Username        string             // 默认远程登录用户名
	Versions        []string           // 支持的版本
	Images          map[string]string  // 版本 -> {region -> imageID} 扁平键："版本/区域"
}

// Catalog 规格、区域、操作系统目录
// 配置校验在任何云厂商调用之前完成，非法输入直接拒绝
type Catalog struct {
	sizes    map[string]SizeClass
	regions  map[string]Region
	families map[string]OSFamily
}

// NewCatalog 创建内置目录
func NewCatalog() *Catalog {
	c := &Catalog{
		sizes:    make(map[string]SizeClass),
		regions:  make(map[string]Region),
		families: make(map[string]OSFamily),
	}

	for _, s := range []SizeClass{
		{Name: "1 vCPU/2GB/20GB", VCPUs: 1, RAMGB: 2, DefaultStorageGB: 20, InstanceType: "t3.small", BaseHourlyRate: 0.0208},
		{Name: "2 vCPU/4GB/30GB", VCPUs: 2, RAMGB: 4, DefaultStorageGB: 30, InstanceType: "t3.medium", BaseHourlyRate: 0.0416},
		{Name: "2 vCPU/8GB/50GB", VCPUs: 2, RAMGB: 8, DefaultStorageGB: 50, InstanceType: "t3.large", BaseHourlyRate: 0.0832},
		{Name: "4 vCPU/16GB/80GB", VCPUs: 4, RAMGB: 16, DefaultStorageGB: 80, InstanceType: "t3.xlarge", BaseHourlyRate: 0.1664},
		{Name: "8 vCPU/32GB/160GB", VCPUs: 8, RAMGB: 32, DefaultStorageGB: 160, InstanceType: "t3.2xlarge", BaseHourlyRate: 0.3328},
	} {
		c.sizes[s.Name] = s
	}

	for _, r := range []Region{
		{Name: "us-east-1", Multiplier: 1.0},
		{Name: "us-west-2", Multiplier: 1.05},
		{Name: "eu-west-1", Multiplier: 1.1},
		{Name: "ap-northeast-1", Multiplier: 1.15},
		{Name: "ap-southeast-1", Multiplier: 1.12},
	} {
		c.regions[r.Name] = r
	}

	c.families["linux-ubuntu"] = OSFamily{
		Name:     "linux-ubuntu",
		Username: "ubuntu",
		Versions: []string{"20.04", "22.04", "24.04"},
		Images: map[string]string{
			"20.04/us-east-1": "ami-ubuntu-2004-use1", "20.04/us-west-2": "ami-ubuntu-2004-usw2",
			"20.04/eu-west-1": "ami-ubuntu-2004-euw1", "20.04/ap-northeast-1": "ami-ubuntu-2004-apne1",
			"20.04/ap-southeast-1": "ami-ubuntu-2004-apse1",
			"22.04/us-east-1":      "ami-ubuntu-2204-use1", "22.04/us-west-2": "ami-ubuntu-2204-usw2",
			"22.04/eu-west-1": "ami-ubuntu-2204-euw1", "22.04/ap-northeast-1": "ami-ubuntu-2204-apne1",
			"22.04/ap-southeast-1": "ami-ubuntu-2204-apse1",
			"24.04/us-east-1":      "ami-ubuntu-2404-use1", "24.04/us-west-2": "ami-ubuntu-2404-usw2",
			"24.04/eu-west-1": "ami-ubuntu-2404-euw1", "24.04/ap-northeast-1": "ami-ubuntu-2404-apne1",
			"24.04/ap-southeast-1": "ami-ubuntu-2404-apse1",
		},
	}
	c.families["linux-debian"] = OSFamily{
		Name:     "linux-debian",
		Username: "admin",
		Versions: []string{"11", "12"},
		Images: map[string]string{
			"11/us-east-1": "ami-debian-11-use1", "11/us-west-2": "ami-debian-11-usw2",
			"11/eu-west-1": "ami-debian-11-euw1", "11/ap-northeast-1": "ami-debian-11-apne1",
			"11/ap-southeast-1": "ami-debian-11-apse1",
			"12/us-east-1":      "ami-debian-12-use1", "12/us-west-2": "ami-debian-12-usw2",
			"12/eu-west-1": "ami-debian-12-euw1", "12/ap-northeast-1": "ami-debian-12-apne1",
			"12/ap-southeast-1": "ami-debian-12-apse1",
		},
	}
	c.families["windows"] = OSFamily{
		Name:            "windows",
		Windows:         true,
		HourlySurcharge: 0.046, // Windows license 摊到小时
		Username:        "Administrator",
		Versions:        []string{"2019", "2022"},
		Images: map[string]string{
			"2019/us-east-1": "ami-win-2019-use1", "2019/us-west-2": "ami-win-2019-usw2",
			"2019/eu-west-1": "ami-win-2019-euw1", "2019/ap-northeast-1": "ami-win-2019-apne1",
			"2019/ap-southeast-1": "ami-win-2019-apse1",
			"2022/us-east-1":      "ami-win-2022-use1", "2022/us-west-2": "ami-win-2022-usw2",
			"2022/eu-west-1": "ami-win-2022-euw1", "2022/ap-northeast-1": "ami-win-2022-apne1",
			"2022/ap-southeast-1": "ami-win-2022-apse1",
		},
	}

	return c
}

// Size 查询规格
func (c *Catalog) Size(name string) (SizeClass, bool) {
	s, ok := c.sizes[name]
	return s, ok
}

// Region 查询区域
func (c *Catalog) Region(name string) (Region, bool) {
	r, ok := c.regions[name]
	return r, ok
}

// Family 查询操作系统家族
func (c *Catalog) Family(name string) (OSFamily, bool) {
	f, ok := c.families[name]
	return f, ok
}

// ImageID 查询（家族，版本，区域）对应的镜像
func (c *Catalog) ImageID(family, version, region string) (string, bool) {
	f, ok := c.families[family]
	if !ok {
		return "", false
	}
	image, ok := f.Images[version+"/"+region]
	return image, ok
}

// IsWindows 判断操作系统家族是否为 Windows
func (c *Catalog) IsWindows(family string) bool {
	f, ok := c.families[family]
	return ok && f.Windows
}

// Validate 校验配置的规格、区域、操作系统及镜像映射
// 任何一项无效都返回 ValidationError，此时不会发生云厂商调用
func (c *Catalog) Validate(config *entity.VMConfiguration) error {
	if config.Name == "" {
		return apierror.WrapError(apierror.ErrValidation, "VM name is required", nil)
	}
	if _, ok := c.sizes[config.SizeClass]; !ok {
		return apierror.WrapError(apierror.ErrValidation,
			fmt.Sprintf("Unknown size class %q", config.SizeClass), nil)
	}
	if _, ok := c.regions[config.Region]; !ok {
		return apierror.WrapError(apierror.ErrValidation,
			fmt.Sprintf("Unknown region %q", config.Region), nil)
	}
	family, ok := c.families[config.OSFamily]
	if !ok {
		return apierror.WrapError(apierror.ErrValidation,
			fmt.Sprintf("Unknown OS family %q", config.OSFamily), nil)
	}
	if _, ok := family.Images[config.OSVersion+"/"+config.Region]; !ok {
		return apierror.WrapError(apierror.ErrValidation,
			fmt.Sprintf("No image mapping for %s %s in region %s", config.OSFamily, config.OSVersion, config.Region), nil)
	}
	if config.StorageGB < 0 {
		return apierror.WrapError(apierror.ErrValidation, "Storage size must not be negative", nil)
	}
	return nil
}

// ResolveStorageGB 返回配置的磁盘大小，0 取规格默认值
func (c *Catalog) ResolveStorageGB(config *entity.VMConfiguration) int {
	if config.StorageGB > 0 {
		return config.StorageGB
	}
	if s, ok := c.sizes[config.SizeClass]; ok {
		return s.DefaultStorageGB
	}
	return 0
}
