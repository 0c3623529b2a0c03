// Package common provides shared constants, types, and utilities
// used across the WireGuard Manager.
package common

import "errors"

// Sentinel errors for tunnel management.
// These can be checked with errors.Is() for proper error handling.
var (
	// Configuration file errors.
	ErrConfigLoad = errors.New("failed to load configuration")
	ErrConfigSave = errors.New("failed to save configuration")

	// Settings errors.
	ErrSettingsLoad = errors.New("failed to load settings")
	ErrSettingsSave = errors.New("failed to save settings")

	// Peer errors.
	ErrPeerNotFound  = errors.New("peer not found")
	ErrDuplicatePeer = errors.New("peer public key already exists")
	ErrInvalidPeer   = errors.New("invalid peer data")

	// External collaborator errors.
	ErrExternalTool = errors.New("external tool failed")
	ErrUnsupported  = errors.New("operation not supported on this platform")

	// Key storage errors.
	ErrKeyNotFound = errors.New("client key not found")
	ErrKeyStorage  = errors.New("failed to store client key")
)

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
