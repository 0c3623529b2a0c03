package vpn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/yllada/wg-manager/common"
)

func TestResolveWGTool(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`C:\Program Files\WireGuard\wireguard.exe`, `C:\Program Files\WireGuard\wg.exe`},
		{`C:\Program Files\WireGuard\WireGuard.EXE`, `C:\Program Files\WireGuard\wg.exe`},
		{"/opt/wireguard/bin/wireguard", "/opt/wireguard/bin/wg"},
		{"/usr/bin/wg", "/usr/bin/wg"},
		{"wireguard.exe", "wg.exe"},
		{"", "wg"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveWGTool(tt.in))
		})
	}
}

func TestExecKeyGenerator(t *testing.T) {
	priv, err := wgtypes.GeneratePrivateKey()
	require.NoError(t, err)

	runner := newFakeRunner().
		on("wg genkey", priv.String()+"\n").
		on("wg pubkey", priv.PublicKey().String()+"\n")
	g := &ExecKeyGenerator{wgTool: "wg", run: runner.run}

	gotPriv, gotPub, err := g.GenerateKeyPair(context.Background())
	require.NoError(t, err)
	assert.Equal(t, priv.String(), gotPriv)
	assert.Equal(t, priv.PublicKey().String(), gotPub)

	require.Len(t, runner.stdin, 2)
	assert.Equal(t, priv.String()+"\n", runner.stdin[1], "private key is piped to wg pubkey")
}

func TestExecKeyGenerator_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("tool missing", func(t *testing.T) {
		runner := newFakeRunner().fail("wg genkey", common.WrapError(common.ErrExternalTool, "exec: not found"))
		g := &ExecKeyGenerator{wgTool: "wg", run: runner.run}

		_, _, err := g.GenerateKeyPair(ctx)
		assert.True(t, errors.Is(err, common.ErrExternalTool))
	})

	t.Run("garbage output", func(t *testing.T) {
		runner := newFakeRunner().on("wg genkey", "Warning: writing to world accessible file\n")
		g := &ExecKeyGenerator{wgTool: "wg", run: runner.run}

		_, _, err := g.GenerateKeyPair(ctx)
		assert.True(t, errors.Is(err, common.ErrExternalTool))
		assert.Equal(t, 0, runner.count("wg pubkey"))
	})
}

func TestNativeKeyGenerator(t *testing.T) {
	ctx := context.Background()
	var g NativeKeyGenerator

	priv, pub, err := g.GenerateKeyPair(ctx)
	require.NoError(t, err)

	key, err := wgtypes.ParseKey(priv)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey().String(), pub)

	derived, err := g.DerivePublicKey(ctx, priv)
	require.NoError(t, err)
	assert.Equal(t, pub, derived)

	_, err = g.DerivePublicKey(ctx, "not-a-key")
	assert.Error(t, err)
}

func TestNativeKeyGenerator_MatchesWgtypes(t *testing.T) {
	for i := 0; i < 5; i++ {
		priv, err := wgtypes.GeneratePrivateKey()
		require.NoError(t, err)

		pub, err := NativeKeyGenerator{}.DerivePublicKey(context.Background(), priv.String())
		require.NoError(t, err)
		assert.Equal(t, priv.PublicKey().String(), pub)
	}
}
