package vpn

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/curve25519"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/yllada/wg-manager/common"
)

// ExecKeyGenerator derives keys with "wg genkey" and "wg pubkey".
type ExecKeyGenerator struct {
	wgTool string
	run    commandRunner
}

// NewExecKeyGenerator creates a generator using the wg tool that belongs to
// the configured WireGuard binary.
func NewExecKeyGenerator(wgPath string) *ExecKeyGenerator {
	return &ExecKeyGenerator{wgTool: ResolveWGTool(wgPath), run: runCommand}
}

// GenerateKeyPair returns a fresh private key and its public key.
func (g *ExecKeyGenerator) GenerateKeyPair(ctx context.Context) (string, string, error) {
	out, err := g.run(ctx, "", g.wgTool, "genkey")
	if err != nil {
		return "", "", err
	}
	priv, err := checkKey("wg genkey", out)
	if err != nil {
		return "", "", err
	}

	pub, err := g.DerivePublicKey(ctx, priv)
	if err != nil {
		return "", "", err
	}
	return priv, pub, nil
}

// DerivePublicKey pipes privateKey into "wg pubkey".
func (g *ExecKeyGenerator) DerivePublicKey(ctx context.Context, privateKey string) (string, error) {
	out, err := g.run(ctx, strings.TrimSpace(privateKey)+"\n", g.wgTool, "pubkey")
	if err != nil {
		return "", err
	}
	return checkKey("wg pubkey", out)
}

// checkKey trims tool output and verifies it is a base64 WireGuard key.
func checkKey(step string, out []byte) (string, error) {
	key := strings.TrimSpace(string(out))
	if _, err := wgtypes.ParseKey(key); err != nil {
		return "", fmt.Errorf("%w: %s returned an invalid key: %w", common.ErrExternalTool, step, err)
	}
	return key, nil
}

// NativeKeyGenerator computes keys in process without the wg tool.
type NativeKeyGenerator struct{}

// GenerateKeyPair returns a fresh clamped Curve25519 private key and its
// public key.
func (NativeKeyGenerator) GenerateKeyPair(ctx context.Context) (string, string, error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return "", "", fmt.Errorf("failed to generate private key: %w", err)
	}
	priv[0] &= 248
	priv[31] = (priv[31] & 127) | 64

	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return "", "", fmt.Errorf("failed to derive public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(priv[:]), base64.StdEncoding.EncodeToString(pub), nil
}

// DerivePublicKey computes the public key of privateKey.
func (NativeKeyGenerator) DerivePublicKey(ctx context.Context, privateKey string) (string, error) {
	key, err := wgtypes.ParseKey(strings.TrimSpace(privateKey))
	if err != nil {
		return "", fmt.Errorf("invalid private key: %w", err)
	}

	pub, err := curve25519.X25519(key[:], curve25519.Basepoint)
	if err != nil {
		return "", fmt.Errorf("failed to derive public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(pub), nil
}
