package gateway

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/mav-gateway/internal/protocol/mavlink"
)

// ErrUnknownLink 签名帧的 link_id 不在密钥环中
var ErrUnknownLink = errors.New("unknown signing link")

// keyringFile YAML 密钥环文件结构
type keyringFile struct {
	Links []keyringEntry `yaml:"links"`
}

type keyringEntry struct {
	LinkID uint8  `yaml:"linkId"`
	Secret string `yaml:"secret"` // 64 位十六进制（32 字节）
}

// Keyring 按 link_id 维护签名验证器。
// 每个 link_id 独立的密钥与时间戳水位，互不影响。
type Keyring struct {
	verifiers map[uint8]*mavlink.Verifier
}

// LoadKeyring 从 YAML 文件加载密钥环
func LoadKeyring(path string) (*Keyring, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyring: %w", err)
	}

	var file keyringFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse keyring: %w", err)
	}
	if len(file.Links) == 0 {
		return nil, errors.New("keyring has no links")
	}

	k := &Keyring{verifiers: make(map[uint8]*mavlink.Verifier, len(file.Links))}
	for _, e := range file.Links {
		if _, dup := k.verifiers[e.LinkID]; dup {
			return nil, fmt.Errorf("duplicate link id %d in keyring", e.LinkID)
		}
		secret, err := decodeSecret(e.Secret)
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", e.LinkID, err)
		}
		k.verifiers[e.LinkID] = mavlink.NewVerifier(secret)
	}
	return k, nil
}

// decodeSecret 解析 64 位十六进制密钥
func decodeSecret(s string) (mavlink.SecretKey, error) {
	var key mavlink.SecretKey
	raw, err := hex.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("secret is not valid hex: %w", err)
	}
	if len(raw) != len(key) {
		return key, fmt.Errorf("secret must be %d bytes, got %d", len(key), len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// Links 返回密钥环中的 link_id 数量
func (k *Keyring) Links() int { return len(k.verifiers) }

// Verify 按帧签名的 link_id 选取验证器并校验。
// 无签名返回 mavlink.ErrSignatureMissing；link_id 未配置返回 ErrUnknownLink。
func (k *Keyring) Verify(f *mavlink.Frame) error {
	sig := f.Signature()
	if sig == nil {
		return mavlink.ErrSignatureMissing
	}
	v, ok := k.verifiers[sig.LinkID]
	if !ok {
		return fmt.Errorf("%w: link_id=%d", ErrUnknownLink, sig.LinkID)
	}
	return v.Verify(f)
}
