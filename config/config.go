// Package config provides the settings record of the WireGuard Manager.
// It handles loading, saving and migrating the settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/yllada/wg-manager/common"
)

// Settings is the persisted settings record. It is passed explicitly to the
// components that need it; nothing reads it from global state.
type Settings struct {
	// WGPath is the path to the WireGuard binary.
	WGPath string `yaml:"wg_path"`
	// ConfPath is the path to the tunnel configuration file.
	ConfPath string `yaml:"conf_path"`
	// InterfaceName identifies the tunnel and derives the service name.
	InterfaceName string `yaml:"interface_name"`
	// Endpoint is the host:port advertised to new clients.
	Endpoint string `yaml:"endpoint"`
	// ClientDNS is written into generated client configurations.
	ClientDNS string `yaml:"client_dns,omitempty"`
	// ServiceBackend selects service control: "sc", "systemd" or "wg-quick".
	// Empty means the platform default.
	ServiceBackend string `yaml:"service_backend,omitempty"`
	// KeygenBackend selects key generation: "wg" or "native".
	KeygenBackend string `yaml:"keygen_backend,omitempty"`
	// StatsBackend selects live statistics: "dump" or "wgctrl".
	StatsBackend string `yaml:"stats_backend,omitempty"`
	// HistoryEnabled records every configuration change in the history database.
	HistoryEnabled bool `yaml:"history_enabled"`
	// StoreClientKeys keeps client private keys in the system keyring so
	// their configuration can be exported again.
	StoreClientKeys bool `yaml:"store_client_keys"`

	// Extra holds keys this version does not know. They are written back
	// unchanged.
	Extra map[string]any `yaml:",inline"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() *Settings {
	s := &Settings{
		InterfaceName:  common.DefaultInterfaceName,
		Endpoint:       common.DefaultEndpoint,
		ClientDNS:      common.DefaultClientDNS,
		KeygenBackend:  common.KeygenBackendWG,
		StatsBackend:   common.StatsBackendDump,
		HistoryEnabled: true,
	}
	s.WGPath, s.ConfPath = platformPaths(s.InterfaceName)
	return s
}

func platformPaths(iface string) (wgPath, confPath string) {
	if runtime.GOOS == "windows" {
		return `C:\Program Files\WireGuard\wireguard.exe`,
			`C:\Program Files\WireGuard\Data\Configurations\` + iface + ".conf"
	}
	return "/usr/bin/wg", "/etc/wireguard/" + iface + ".conf"
}

// DefaultServiceBackend returns the service backend of the running platform.
func DefaultServiceBackend() string {
	if runtime.GOOS == "windows" {
		return common.ServiceBackendSC
	}
	return common.ServiceBackendSystemd
}

// DefaultPath returns the settings file location in the user's config directory.
func DefaultPath() (string, error) {
	dir, err := common.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, common.SettingsFileName), nil
}

// LegacyPath returns the location of the JSON settings file used by older
// versions.
func LegacyPath(settingsPath string) string {
	return filepath.Join(filepath.Dir(settingsPath), common.LegacySettingsFileName)
}

// Load loads the settings from path. If the file doesn't exist, a legacy
// JSON file next to it is migrated once; otherwise defaults are returned
// without writing anything.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		legacy := LegacyPath(path)
		if common.FileExists(legacy) {
			return MigrateLegacy(legacy, path)
		}
		common.LogDebug("Settings file %s not found, using defaults", path)
		return DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrSettingsLoad, err)
	}

	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrSettingsLoad, path, err)
	}
	return s, nil
}

// decode reads YAML (or JSON, which YAML accepts) over the defaults. The
// tool and configuration paths are left empty so validate derives them from
// the decoded interface name.
func decode(data []byte) (*Settings, error) {
	s := DefaultSettings()
	s.WGPath, s.ConfPath = "", ""

	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	s.validate()
	return s, nil
}

// validate replaces empty or unknown values with defaults.
func (s *Settings) validate() {
	def := DefaultSettings()
	if s.InterfaceName == "" {
		s.InterfaceName = def.InterfaceName
	}
	wgPath, confPath := platformPaths(s.InterfaceName)
	if s.WGPath == "" {
		s.WGPath = wgPath
	}
	if s.ConfPath == "" {
		s.ConfPath = confPath
	}
	if s.Endpoint == "" {
		s.Endpoint = def.Endpoint
	}
	if s.ClientDNS == "" {
		s.ClientDNS = def.ClientDNS
	}
	if len(s.Extra) == 0 {
		s.Extra = nil
	}

	switch s.ServiceBackend {
	case "", common.ServiceBackendSC, common.ServiceBackendSystemd, common.ServiceBackendWGQuick:
	default:
		common.LogWarn("Unknown service_backend %q, using platform default", s.ServiceBackend)
		s.ServiceBackend = ""
	}
	switch s.KeygenBackend {
	case common.KeygenBackendWG, common.KeygenBackendNative:
	default:
		if s.KeygenBackend != "" {
			common.LogWarn("Unknown keygen_backend %q, using %q", s.KeygenBackend, def.KeygenBackend)
		}
		s.KeygenBackend = def.KeygenBackend
	}
	switch s.StatsBackend {
	case common.StatsBackendDump, common.StatsBackendWgctrl:
	default:
		if s.StatsBackend != "" {
			common.LogWarn("Unknown stats_backend %q, using %q", s.StatsBackend, def.StatsBackend)
		}
		s.StatsBackend = def.StatsBackend
	}
}

// EffectiveServiceBackend returns ServiceBackend or the platform default.
func (s *Settings) EffectiveServiceBackend() string {
	if s.ServiceBackend == "" {
		return DefaultServiceBackend()
	}
	return s.ServiceBackend
}

// Save saves the settings to path.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("%w: creating directory: %w", common.ErrSettingsSave, err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: serializing: %w", common.ErrSettingsSave, err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("%w: %w", common.ErrSettingsSave, err)
	}
	return nil
}

// MigrateLegacy reads the JSON settings file at legacyPath and saves it as
// YAML at path. The legacy file is left in place.
func MigrateLegacy(legacyPath, path string) (*Settings, error) {
	data, err := os.ReadFile(legacyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrSettingsLoad, err)
	}

	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: legacy settings %s: %w", common.ErrSettingsLoad, legacyPath, err)
	}

	if err := s.Save(path); err != nil {
		return nil, err
	}
	common.LogInfo("Migrated settings from %s to %s", legacyPath, path)
	return s, nil
}

// Set updates one setting by its file key. Unknown keys are stored in Extra.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "wg_path":
		s.WGPath = value
	case "conf_path":
		s.ConfPath = value
	case "interface_name":
		s.InterfaceName = value
	case "endpoint":
		s.Endpoint = value
	case "client_dns":
		s.ClientDNS = value
	case "service_backend":
		s.ServiceBackend = value
	case "keygen_backend":
		s.KeygenBackend = value
	case "stats_backend":
		s.StatsBackend = value
	case "history_enabled", "store_client_keys":
		var b bool
		if err := yaml.Unmarshal([]byte(value), &b); err != nil {
			return fmt.Errorf("%s: expected a boolean, got %q", key, value)
		}
		if key == "history_enabled" {
			s.HistoryEnabled = b
		} else {
			s.StoreClientKeys = b
		}
	default:
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[key] = value
	}
	s.validate()
	return nil
}
