// Package common provides shared constants, types, and utilities
// used across the WireGuard Manager.
package common

import "time"

// Application metadata.
const (
	// AppName is the display name of the application.
	AppName = "WireGuard Manager"
	// CommandName is the name of the executable.
	CommandName = "wg-manager"
	// ConfigDirName is the name of the configuration directory.
	ConfigDirName = "wg-manager"
)

// File names used by the application.
const (
	SettingsFileName       = "settings.yaml"
	LegacySettingsFileName = "settings.json"
	KeyStoreFileName       = ".client-keys"
	HistoryFileName        = "history.db"
	LogFileName            = "wg-manager.log"
	// BackupSuffix is appended to the tunnel configuration path to form
	// the sidecar backup written before every overwrite.
	BackupSuffix = ".bak"
)

// Tunnel defaults.
const (
	DefaultInterfaceName = "wg0"
	DefaultEndpoint      = "YOUR_SERVER_IP:51820"
	DefaultClientDNS     = "1.1.1.1"
	// DefaultClientAddress is suggested when no address is in use yet.
	DefaultClientAddress = "10.0.0.2/32"
	// ClientAllowedIPs routes all client traffic through the tunnel.
	ClientAllowedIPs = "0.0.0.0/0"
)

// Timeouts and intervals.
const (
	// ServiceStopTimeout bounds how long a restart waits for the service
	// to report Stopped before starting it again.
	ServiceStopTimeout = 10 * time.Second
	// ServicePollInterval is how often the service status is polled while
	// waiting for a stop.
	ServicePollInterval = 1 * time.Second
	// WatchInterval is the default refresh interval of the watch command.
	WatchInterval = 5 * time.Second
	// HandshakeFresh is the handshake age under which a peer is healthy.
	HandshakeFresh = 3 * time.Minute
	// HandshakeStale is the handshake age after which a peer is unhealthy.
	HandshakeStale = 10 * time.Minute
)

// Backend names accepted in the settings file.
const (
	ServiceBackendSC      = "sc"
	ServiceBackendSystemd = "systemd"
	ServiceBackendWGQuick = "wg-quick"

	KeygenBackendWG     = "wg"
	KeygenBackendNative = "native"

	StatsBackendDump   = "dump"
	StatsBackendWgctrl = "wgctrl"
)
