// Package common provides shared constants, types, and utilities
// used across the WireGuard Manager.
package common

import (
	"context"
	"fmt"
	"strings"
)

// KeyGenerator produces WireGuard key pairs.
// The default implementation shells out to the wg tool; callers must not
// assume bounded latency.
type KeyGenerator interface {
	// GenerateKeyPair returns a fresh private key and its public key.
	GenerateKeyPair(ctx context.Context) (privateKey, publicKey string, err error)
	// DerivePublicKey computes the public key of a private key.
	DerivePublicKey(ctx context.Context, privateKey string) (string, error)
}

// ServiceStatus represents the state of the host tunnel service.
type ServiceStatus int

const (
	ServiceUnknown ServiceStatus = iota
	ServiceRunning
	ServiceStopped
	ServiceNotInstalled
)

// String returns a human-readable status string.
func (s ServiceStatus) String() string {
	switch s {
	case ServiceRunning:
		return "Running"
	case ServiceStopped:
		return "Stopped"
	case ServiceNotInstalled:
		return "Not Installed"
	default:
		return "Unknown"
	}
}

// ServiceAction is a control request sent to the host service.
type ServiceAction int

const (
	ServiceStart ServiceAction = iota
	ServiceStop
	ServiceRestart
)

// String returns the lower-case verb of the action.
func (a ServiceAction) String() string {
	switch a {
	case ServiceStart:
		return "start"
	case ServiceStop:
		return "stop"
	case ServiceRestart:
		return "restart"
	default:
		return "unknown"
	}
}

// ParseServiceAction converts a verb such as "restart" into a ServiceAction.
func ParseServiceAction(s string) (ServiceAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "start":
		return ServiceStart, nil
	case "stop":
		return ServiceStop, nil
	case "restart":
		return ServiceRestart, nil
	}
	return 0, fmt.Errorf("unknown service action %q", s)
}

// ServiceController starts, stops and queries the host tunnel service.
type ServiceController interface {
	// Status reports the service state. Failures map to ServiceUnknown or
	// ServiceNotInstalled rather than an error.
	Status(ctx context.Context, interfaceName string) ServiceStatus
	// Control applies an action to the service.
	Control(ctx context.Context, interfaceName string, action ServiceAction) error
}

// PeerStats is one peer row of the live statistics dump.
type PeerStats struct {
	PublicKey string
	Endpoint  string
	// LastHandshake is in seconds since the Unix epoch, 0 if never.
	LastHandshake int64
	RxBytes       uint64
	TxBytes       uint64
}

// StatsProvider retrieves live traffic statistics for an interface.
type StatsProvider interface {
	LiveStats(ctx context.Context, interfaceName string) ([]PeerStats, error)
}

// KeyStore keeps client private keys so a client configuration can be
// exported again after creation. Keys are indexed by public key.
type KeyStore interface {
	// Store saves the private key of a client.
	Store(publicKey, privateKey string) error
	// Get retrieves the private key of a client.
	Get(publicKey string) (string, error)
	// Delete removes the private key of a client.
	Delete(publicKey string) error
}

// Logger defines the interface for levelled logging.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}
