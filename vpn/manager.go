// Package vpn provides tunnel management for the WireGuard Manager.
// This file contains the Manager type which runs read-modify-write cycles
// on the tunnel configuration and fronts the external collaborators.
package vpn

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/yllada/wg-manager/common"
	"github.com/yllada/wg-manager/config"
	"github.com/yllada/wg-manager/history"
	"github.com/yllada/wg-manager/wgconf"
)

// Recorder receives one event per persisted configuration change.
type Recorder interface {
	Record(ctx context.Context, ev history.Event) error
}

// NewPeer is the result of adding a peer. PrivateKey is only available here
// (and in the key store, if enabled); it is never written to the
// configuration file.
type NewPeer struct {
	Name       string
	PublicKey  string
	PrivateKey string
	AllowedIPs string
}

// Manager orchestrates configuration changes and service control for one
// tunnel. Every operation re-reads the configuration file; nothing is cached.
type Manager struct {
	mu       sync.RWMutex
	settings *config.Settings

	keygen  common.KeyGenerator
	service common.ServiceController
	stats   common.StatsProvider
	keys    common.KeyStore
	history Recorder

	// collaborators set through options survive Reload
	custom struct{ keygen, service, stats bool }
}

// Option configures a Manager.
type Option func(*Manager)

// WithKeyGenerator overrides the key generator chosen from settings.
func WithKeyGenerator(g common.KeyGenerator) Option {
	return func(m *Manager) {
		m.keygen = g
		m.custom.keygen = true
	}
}

// WithServiceController overrides the service controller chosen from settings.
func WithServiceController(c common.ServiceController) Option {
	return func(m *Manager) {
		m.service = c
		m.custom.service = true
	}
}

// WithStatsProvider overrides the statistics provider chosen from settings.
func WithStatsProvider(p common.StatsProvider) Option {
	return func(m *Manager) {
		m.stats = p
		m.custom.stats = true
	}
}

// WithKeyStore keeps client private keys in s when settings allow it.
func WithKeyStore(s common.KeyStore) Option {
	return func(m *Manager) { m.keys = s }
}

// WithHistory records configuration changes in r.
func WithHistory(r Recorder) Option {
	return func(m *Manager) { m.history = r }
}

// NewManager creates a manager for the tunnel described by settings.
func NewManager(settings *config.Settings, opts ...Option) *Manager {
	m := &Manager{settings: settings}
	for _, opt := range opts {
		opt(m)
	}
	m.buildCollaborators()
	return m
}

func (m *Manager) buildCollaborators() {
	s := m.settings
	if !m.custom.keygen {
		m.keygen = NewKeyGenerator(s)
	}
	if !m.custom.service {
		m.service = NewServiceController(s)
	}
	if !m.custom.stats {
		m.stats = NewStatsProvider(s)
	}
}

// NewKeyGenerator returns the key generator selected by settings.
func NewKeyGenerator(s *config.Settings) common.KeyGenerator {
	if s.KeygenBackend == common.KeygenBackendNative {
		return NativeKeyGenerator{}
	}
	return NewExecKeyGenerator(s.WGPath)
}

// NewServiceController returns the service controller selected by settings.
func NewServiceController(s *config.Settings) common.ServiceController {
	switch s.EffectiveServiceBackend() {
	case common.ServiceBackendSC:
		return NewSCController()
	case common.ServiceBackendWGQuick:
		return NewWGQuickController(s.WGPath)
	default:
		return NewSystemdController()
	}
}

// NewStatsProvider returns the statistics provider selected by settings.
func NewStatsProvider(s *config.Settings) common.StatsProvider {
	if s.StatsBackend == common.StatsBackendWgctrl {
		return WgctrlStats{}
	}
	return NewDumpStats(s.WGPath)
}

// Settings returns the active settings.
func (m *Manager) Settings() *config.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Reload replaces the settings. Collaborators not set through options are
// rebuilt for the new settings.
func (m *Manager) Reload(settings *config.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = settings
	m.buildCollaborators()
	common.LogDebug("Settings reloaded (conf_path=%s, interface=%s)", settings.ConfPath, settings.InterfaceName)
}

func (m *Manager) snapshot() (*config.Settings, common.KeyGenerator, common.ServiceController, common.StatsProvider) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, m.keygen, m.service, m.stats
}

// LoadConfig parses the tunnel configuration file.
func (m *Manager) LoadConfig() (*wgconf.Config, error) {
	s, _, _, _ := m.snapshot()
	return wgconf.Load(s.ConfPath)
}

// SaveConfig persists cfg with a backup of the previous file.
func (m *Manager) SaveConfig(ctx context.Context, cfg *wgconf.Config) error {
	s, _, _, _ := m.snapshot()
	if err := wgconf.Persist(cfg, s.ConfPath); err != nil {
		return err
	}
	m.record(ctx, history.Event{Action: history.ActionSave, Count: len(cfg.Peers), ConfPath: s.ConfPath})
	return nil
}

// NextAddress suggests the address of the next client.
func (m *Manager) NextAddress() (string, error) {
	cfg, err := m.LoadConfig()
	if err != nil {
		return "", err
	}
	return wgconf.NextAddress(cfg), nil
}

// AddPeer generates a key pair, appends a peer and persists the
// configuration. An empty allowedIPs uses the next free address.
func (m *Manager) AddPeer(ctx context.Context, name, allowedIPs string) (*NewPeer, error) {
	s, keygen, _, _ := m.snapshot()

	cfg, err := wgconf.Load(s.ConfPath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(allowedIPs) == "" {
		allowedIPs = wgconf.NextAddress(cfg)
	}

	priv, pub, err := keygen.GenerateKeyPair(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keys: %w", err)
	}

	updated, err := wgconf.AddPeer(cfg, name, allowedIPs, pub)
	if err != nil {
		return nil, err
	}
	if err := wgconf.Persist(updated, s.ConfPath); err != nil {
		return nil, err
	}

	added := updated.Peers[len(updated.Peers)-1]
	peer := &NewPeer{
		Name:       added.Name,
		PublicKey:  pub,
		PrivateKey: priv,
		AllowedIPs: added.AllowedIPs(),
	}
	common.LogInfo("Added peer %q (%s) with %s", peer.Name, peer.PublicKey, peer.AllowedIPs)
	m.record(ctx, history.Event{Action: history.ActionAddPeer, PublicKey: pub, Name: peer.Name, Count: 1, ConfPath: s.ConfPath})

	if s.StoreClientKeys && m.keys != nil {
		if err := m.keys.Store(pub, priv); err != nil {
			common.LogWarn("Could not keep the private key of %s: %v", pub, err)
		}
	}
	return peer, nil
}

// RemovePeer deletes every peer with the given public key and returns how
// many were removed. Zero matches leaves the file untouched.
func (m *Manager) RemovePeer(ctx context.Context, publicKey string) (int, error) {
	s, _, _, _ := m.snapshot()

	cfg, err := wgconf.Load(s.ConfPath)
	if err != nil {
		return 0, err
	}
	updated, n := wgconf.DeletePeer(cfg, publicKey)
	if n == 0 {
		common.LogDebug("No peer with public key %s, nothing removed", publicKey)
		return 0, nil
	}
	if err := wgconf.Persist(updated, s.ConfPath); err != nil {
		return 0, err
	}

	common.LogInfo("Removed %d peer(s) with public key %s", n, publicKey)
	m.record(ctx, history.Event{Action: history.ActionRemovePeer, PublicKey: publicKey, Count: n, ConfPath: s.ConfPath})

	if m.keys != nil {
		if err := m.keys.Delete(publicKey); err != nil {
			common.LogWarn("Could not forget the private key of %s: %v", publicKey, err)
		}
	}
	return n, nil
}

// RenamePeer renames every peer with the given public key and returns how
// many were renamed. Zero matches leaves the file untouched.
func (m *Manager) RenamePeer(ctx context.Context, publicKey, name string) (int, error) {
	s, _, _, _ := m.snapshot()

	cfg, err := wgconf.Load(s.ConfPath)
	if err != nil {
		return 0, err
	}
	updated, n := wgconf.RenamePeer(cfg, publicKey, name)
	if n == 0 {
		common.LogDebug("No peer with public key %s, nothing renamed", publicKey)
		return 0, nil
	}
	if err := wgconf.Persist(updated, s.ConfPath); err != nil {
		return 0, err
	}

	newName := updated.Peers[updated.FindPeer(publicKey)].Name
	common.LogInfo("Renamed %d peer(s) with public key %s to %q", n, publicKey, newName)
	m.record(ctx, history.Event{Action: history.ActionRenamePeer, PublicKey: publicKey, Name: newName, Count: n, ConfPath: s.ConfPath})
	return n, nil
}

func (m *Manager) record(ctx context.Context, ev history.Event) {
	s, _, _, _ := m.snapshot()
	if m.history == nil || !s.HistoryEnabled {
		return
	}
	if err := m.history.Record(ctx, ev); err != nil {
		common.LogWarn("Could not record history: %v", err)
	}
}

// ServerPublicKey returns the interface public key, derived from its
// private key unless a PublicKey field is present.
func (m *Manager) ServerPublicKey(ctx context.Context, cfg *wgconf.Config) (string, error) {
	if pub := cfg.Interface.PublicKey(); pub != "" {
		return pub, nil
	}
	priv := cfg.Interface.PrivateKey()
	if priv == "" {
		return "", fmt.Errorf("%w: interface has no private key", common.ErrConfigLoad)
	}
	_, keygen, _, _ := m.snapshot()
	return keygen.DerivePublicKey(ctx, priv)
}

// ClientConfig renders the configuration for a freshly added peer.
func (m *Manager) ClientConfig(ctx context.Context, peer *NewPeer) (string, error) {
	cfg, err := m.LoadConfig()
	if err != nil {
		return "", err
	}
	return m.renderClient(ctx, cfg, peer.PrivateKey, peer.AllowedIPs)
}

// ExportClientConfig renders the configuration of an existing peer using
// the private key kept in the key store.
func (m *Manager) ExportClientConfig(ctx context.Context, publicKey string) (string, error) {
	cfg, err := m.LoadConfig()
	if err != nil {
		return "", err
	}
	i := cfg.FindPeer(publicKey)
	if i < 0 {
		return "", common.WrapError(common.ErrPeerNotFound, publicKey)
	}
	if m.keys == nil {
		return "", common.WrapError(common.ErrKeyNotFound, "client key storage is disabled")
	}
	priv, err := m.keys.Get(publicKey)
	if err != nil {
		return "", err
	}
	return m.renderClient(ctx, cfg, priv, cfg.Peers[i].AllowedIPs())
}

func (m *Manager) renderClient(ctx context.Context, cfg *wgconf.Config, privateKey, address string) (string, error) {
	serverPub, err := m.ServerPublicKey(ctx, cfg)
	if err != nil {
		return "", err
	}
	s, _, _, _ := m.snapshot()
	return RenderClientConfig(ClientConfigParams{
		PrivateKey:      privateKey,
		Address:         address,
		DNS:             s.ClientDNS,
		ServerPublicKey: serverPub,
		Endpoint:        s.Endpoint,
	}), nil
}

// ServiceStatus reports the state of the tunnel service.
func (m *Manager) ServiceStatus(ctx context.Context) common.ServiceStatus {
	s, _, service, _ := m.snapshot()
	return service.Status(ctx, s.InterfaceName)
}

// ControlService starts, stops or restarts the tunnel service.
func (m *Manager) ControlService(ctx context.Context, action common.ServiceAction) error {
	s, _, service, _ := m.snapshot()
	common.LogInfo("Service %s requested for %s", action, s.InterfaceName)
	if err := service.Control(ctx, s.InterfaceName, action); err != nil {
		return fmt.Errorf("failed to %s %s: %w", action, s.InterfaceName, err)
	}
	return nil
}

// LiveStats returns live traffic statistics of the tunnel.
func (m *Manager) LiveStats(ctx context.Context) ([]common.PeerStats, error) {
	s, _, _, stats := m.snapshot()
	return stats.LiveStats(ctx, s.InterfaceName)
}

// StatsProvider returns the active statistics provider.
func (m *Manager) StatsProvider() common.StatsProvider {
	_, _, _, stats := m.snapshot()
	return stats
}
