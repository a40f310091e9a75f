package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/ssh"

	"github.com/adiology/cvp/pkg/apierror"
	"github.com/adiology/cvp/pkg/idgen"
	"github.com/adiology/cvp/pkg/provider"
)

// Windows 密码生成参数
const (
	passwordLength  = 20
	passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*-_=+"
)

// VMCredentials 为实例创建的访问凭据
// 私钥和明文密码只在创建时返回一次，平台只保存名称和哈希
type VMCredentials struct {
	Name         string // 密钥对名称（linux）或凭据 ID（windows）
	PrivateKey   string // linux：SSH 私钥，仅创建时返回
	Password     string // windows：明文密码，仅创建时返回
	PasswordHash string // windows：bcrypt 哈希，入库保存
	Fingerprint  string // linux：公钥指纹
}

// CredentialService 访问凭据服务
// linux 家族通过云厂商创建密钥对；windows 家族本地生成强密码，
// 明文只返回一次，落库只存 bcrypt 哈希，任何日志都不得出现明文
type CredentialService struct {
	client provider.ComputeClient
	idGen  *idgen.Generator
}

// NewCredentialService 创建凭据服务
func NewCredentialService(client provider.ComputeClient, idGen *idgen.Generator) *CredentialService {
	return &CredentialService{client: client, idGen: idGen}
}

// CreateForVM 按操作系统家族创建凭据
func (s *CredentialService) CreateForVM(ctx context.Context, vmID string, windows bool) (*VMCredentials, error) {
	if windows {
		return s.createPassword(ctx, vmID)
	}
	return s.createKeyPair(ctx, vmID)
}

// createKeyPair 通过云厂商创建 SSH 密钥对并本地校验私钥
func (s *CredentialService) createKeyPair(ctx context.Context, vmID string) (*VMCredentials, error) {
	name := fmt.Sprintf("cvp-key-%s", vmID)
	keyPair, err := s.client.CreateKeyPair(ctx, name)
	if err != nil {
		return nil, provider.Translate(err)
	}

	// 校验返回的私钥可被解析，避免把坏私钥发给用户
	signer, err := ssh.ParsePrivateKey([]byte(keyPair.PrivateKey))
	if err != nil {
		if delErr := s.client.DeleteKeyPair(ctx, name); delErr != nil {
			zerolog.Ctx(ctx).Error().Str("key_name", name).Err(delErr).
				Msg("Failed to delete key pair after parse failure")
		}
		return nil, apierror.WrapError(apierror.ErrCredential, "Provider returned an unusable private key", err)
	}

	fingerprint := keyPair.Fingerprint
	if fingerprint == "" {
		fingerprint = ssh.FingerprintSHA256(signer.PublicKey())
	}

	zerolog.Ctx(ctx).Info().
		Str("vm_id", vmID).
		Str("key_name", name).
		Str("fingerprint", fingerprint).
		Msg("Created key pair")

	return &VMCredentials{
		Name:        name,
		PrivateKey:  keyPair.PrivateKey,
		Fingerprint: fingerprint,
	}, nil
}

// createPassword 本地生成 Windows 密码
func (s *CredentialService) createPassword(ctx context.Context, vmID string) (*VMCredentials, error) {
	credID, err := s.idGen.GenerateCredentialID()
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrCredential, "Failed to generate credential ID", err)
	}

	password, err := generatePassword(passwordLength)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrCredential, "Failed to generate password", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierror.WrapError(apierror.ErrCredential, "Failed to hash password", err)
	}

	// 日志只记录凭据 ID，明文密码不落日志
	zerolog.Ctx(ctx).Info().
		Str("vm_id", vmID).
		Str("credential_id", credID).
		Msg("Generated administrator password")

	return &VMCredentials{
		Name:         credID,
		Password:     password,
		PasswordHash: string(hash),
	}, nil
}

// Delete 删除凭据，windows 的本地凭据无云厂商侧资源
func (s *CredentialService) Delete(ctx context.Context, creds *VMCredentials, windows bool) error {
	if windows {
		return nil
	}
	if err := s.client.DeleteKeyPair(ctx, creds.Name); err != nil {
		return provider.Translate(err)
	}
	return nil
}

// generatePassword 用 crypto/rand 生成指定长度的强密码
func generatePassword(length int) (string, error) {
	result := make([]byte, length)
	max := big.NewInt(int64(len(passwordCharset)))
	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = passwordCharset[n.Int64()]
	}
	return string(result), nil
}
