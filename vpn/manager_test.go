package vpn

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yllada/wg-manager/common"
	"github.com/yllada/wg-manager/config"
	"github.com/yllada/wg-manager/history"
	"github.com/yllada/wg-manager/wgconf"
)

const serverConf = `[Interface]
PrivateKey = SERVERPRIV
Address = 10.0.0.1/24
ListenPort = 51820

[Peer]
# Name: laptop
PublicKey = EXISTING
AllowedIPs = 10.0.0.2/32
`

type managerFixture struct {
	m       *Manager
	path    string
	keygen  *fakeKeyGen
	service *fakeService
	stats   *fakeStats
	keys    memKeyStore
	history *memHistory
}

func newManagerFixture(t *testing.T, conf string) *managerFixture {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "wg0.conf")
	if conf != "" {
		require.NoError(t, os.WriteFile(path, []byte(conf), 0600))
	}

	settings := config.DefaultSettings()
	settings.ConfPath = path
	settings.Endpoint = "vpn.example.com:51820"
	settings.StoreClientKeys = true

	f := &managerFixture{
		path:    path,
		keygen:  &fakeKeyGen{},
		service: &fakeService{status: common.ServiceRunning},
		stats:   &fakeStats{},
		keys:    memKeyStore{},
		history: &memHistory{},
	}
	f.m = NewManager(settings,
		WithKeyGenerator(f.keygen),
		WithServiceController(f.service),
		WithStatsProvider(f.stats),
		WithKeyStore(f.keys),
		WithHistory(f.history),
	)
	return f
}

func (f *managerFixture) read(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	return string(data)
}

func TestManager_AddPeer(t *testing.T) {
	f := newManagerFixture(t, serverConf)
	ctx := context.Background()

	peer, err := f.m.AddPeer(ctx, "phone", "")
	require.NoError(t, err)

	assert.Equal(t, &NewPeer{Name: "phone", PublicKey: "PUB1", PrivateKey: "PRIV1", AllowedIPs: "10.0.0.3/32"}, peer)

	text := f.read(t)
	assert.Contains(t, text, "# Name: phone\nPublicKey = PUB1\nAllowedIPs = 10.0.0.3/32\n")
	assert.NotContains(t, text, "PRIV1", "client private keys are never written to the configuration")

	backup, err := os.ReadFile(f.path + common.BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, serverConf, string(backup))

	assert.Equal(t, "PRIV1", f.keys["PUB1"])
	require.Len(t, f.history.events, 1)
	assert.Equal(t, history.ActionAddPeer, f.history.events[0].Action)
	assert.Equal(t, "PUB1", f.history.events[0].PublicKey)
}

func TestManager_AddPeerExplicitAddress(t *testing.T) {
	f := newManagerFixture(t, "")

	peer, err := f.m.AddPeer(context.Background(), "first", "10.9.0.7/32, fd00::7/128")
	require.NoError(t, err)
	assert.Equal(t, "10.9.0.7/32, fd00::7/128", peer.AllowedIPs)

	cfg, err := f.m.LoadConfig()
	require.NoError(t, err)
	require.Len(t, cfg.Peers, 1)
	assert.False(t, common.FileExists(f.path+common.BackupSuffix), "no backup for a new file")
}

func TestManager_AddPeerKeygenFailure(t *testing.T) {
	f := newManagerFixture(t, serverConf)
	f.keygen.err = common.ErrExternalTool

	_, err := f.m.AddPeer(context.Background(), "x", "")
	assert.True(t, errors.Is(err, common.ErrExternalTool))
	assert.Equal(t, serverConf, f.read(t))
	assert.Empty(t, f.history.events)
}

func TestManager_AddThenRemove(t *testing.T) {
	f := newManagerFixture(t, serverConf)
	ctx := context.Background()

	before, err := f.m.LoadConfig()
	require.NoError(t, err)

	peer, err := f.m.AddPeer(ctx, "tmp", "")
	require.NoError(t, err)
	n, err := f.m.RemovePeer(ctx, peer.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	after, err := f.m.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, before.Peers, after.Peers)
	assert.NotContains(t, f.keys, peer.PublicKey)
	assert.Len(t, f.history.events, 2)
}

func TestManager_RemoveMissingIsNoop(t *testing.T) {
	f := newManagerFixture(t, serverConf)

	n, err := f.m.RemovePeer(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, common.FileExists(f.path+common.BackupSuffix), "nothing was written")
	assert.Empty(t, f.history.events)
}

func TestManager_RenamePeer(t *testing.T) {
	f := newManagerFixture(t, serverConf)
	ctx := context.Background()

	n, err := f.m.RenamePeer(ctx, "EXISTING", "work laptop")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, f.read(t), "# Name: work laptop\n")
	require.Len(t, f.history.events, 1)
	assert.Equal(t, "work laptop", f.history.events[0].Name)

	n, err = f.m.RenamePeer(ctx, "NOPE", "x")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.history.events, 1)
}

func TestManager_PersistFailure(t *testing.T) {
	f := newManagerFixture(t, serverConf)
	require.NoError(t, os.Mkdir(f.path+common.BackupSuffix, 0700))

	_, err := f.m.RenamePeer(context.Background(), "EXISTING", "x")
	assert.True(t, errors.Is(err, common.ErrConfigSave))
	assert.Equal(t, serverConf, f.read(t))
}

func TestManager_HistoryDisabled(t *testing.T) {
	f := newManagerFixture(t, serverConf)
	s := *f.m.Settings()
	s.HistoryEnabled = false
	f.m.Reload(&s)

	_, err := f.m.RenamePeer(context.Background(), "EXISTING", "x")
	require.NoError(t, err)
	assert.Empty(t, f.history.events)
}

func TestManager_ClientConfig(t *testing.T) {
	f := newManagerFixture(t, serverConf)
	ctx := context.Background()

	peer, err := f.m.AddPeer(ctx, "phone", "")
	require.NoError(t, err)

	text, err := f.m.ClientConfig(ctx, peer)
	require.NoError(t, err)

	want := `[Interface]
PrivateKey = PRIV1
Address = 10.0.0.3/32
DNS = 1.1.1.1

[Peer]
PublicKey = derived(SERVERPRIV)
Endpoint = vpn.example.com:51820
AllowedIPs = 0.0.0.0/0
`
	assert.Equal(t, want, text)

	exported, err := f.m.ExportClientConfig(ctx, peer.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, want, exported)

	_, err = f.m.ExportClientConfig(ctx, "EXISTING")
	assert.True(t, errors.Is(err, common.ErrKeyNotFound))

	_, err = f.m.ExportClientConfig(ctx, "NOPE")
	assert.True(t, errors.Is(err, common.ErrPeerNotFound))
}

func TestManager_ServerPublicKey(t *testing.T) {
	f := newManagerFixture(t, "")
	ctx := context.Background()

	cfg := &wgconf.Config{}
	cfg.Interface.Set(wgconf.KeyPublicKey, "STORED")
	pub, err := f.m.ServerPublicKey(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "STORED", pub)

	_, err = f.m.ServerPublicKey(ctx, &wgconf.Config{})
	assert.Error(t, err)
}

func TestManager_Service(t *testing.T) {
	f := newManagerFixture(t, "")
	ctx := context.Background()

	assert.Equal(t, common.ServiceRunning, f.m.ServiceStatus(ctx))
	require.NoError(t, f.m.ControlService(ctx, common.ServiceRestart))
	assert.Equal(t, []common.ServiceAction{common.ServiceRestart}, f.service.actions)

	f.service.err = common.ErrExternalTool
	err := f.m.ControlService(ctx, common.ServiceStop)
	assert.True(t, errors.Is(err, common.ErrExternalTool))
}

func TestManager_LiveStats(t *testing.T) {
	f := newManagerFixture(t, "")
	f.stats.stats = [][]common.PeerStats{{{PublicKey: "A", RxBytes: 5}}}

	stats, err := f.m.LiveStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.PeerStats{{PublicKey: "A", RxBytes: 5}}, stats)
}

func TestManager_ReloadRebuildsDefaults(t *testing.T) {
	s := config.DefaultSettings()
	s.KeygenBackend = common.KeygenBackendNative
	s.StatsBackend = common.StatsBackendWgctrl
	s.ServiceBackend = common.ServiceBackendSC

	m := NewManager(s)
	assert.IsType(t, NativeKeyGenerator{}, m.keygen)
	assert.IsType(t, WgctrlStats{}, m.stats)
	assert.IsType(t, &SCController{}, m.service)

	s2 := *s
	s2.KeygenBackend = common.KeygenBackendWG
	s2.StatsBackend = common.StatsBackendDump
	s2.ServiceBackend = common.ServiceBackendWGQuick
	m.Reload(&s2)
	assert.IsType(t, &ExecKeyGenerator{}, m.keygen)
	assert.IsType(t, &DumpStats{}, m.stats)
	assert.IsType(t, &WGQuickController{}, m.service)
	assert.Same(t, &s2, m.Settings())
}
