// Package main provides the entry point for the WireGuard Manager.
// WireGuard Manager edits a WireGuard server configuration file in place
// (adding, removing and renaming peers) and controls the tunnel service of
// the host.
//
// Usage:
//
//	wg-manager [command] [flags]
//
// Environment:
//
//	Key generation and live statistics use the wg tool unless the native
//	backends are selected in the settings file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yllada/wg-manager/cli"
	"github.com/yllada/wg-manager/common"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
// Default values are used for local development builds
var (
	appVersion = "dev"
	buildTime  = "unknown"
	commitSHA  = "unknown"
)

func main() {
	// Warnings and errors only; --verbose lowers the level.
	if err := common.InitLogger(common.LogConfig{Level: common.LevelWarn}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize logging: %v\n", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	setupSignalHandler(cancel)

	err := cli.Execute(ctx, cli.VersionInfo{Version: appVersion, Build: buildTime, Commit: commitSHA})
	cancel()
	common.CloseLogger()
	if err != nil {
		os.Exit(1)
	}
}

// setupSignalHandler configures graceful shutdown on SIGINT/SIGTERM.
// When a signal is received, it cancels the context so that long-running
// commands such as watch return.
func setupSignalHandler(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		common.LogInfo("Received signal %v, shutting down", sig)
		cancel()
	}()
}
