// Package vpn provides tunnel management functionality for WireGuard Manager.
//
// This package implements everything around the configuration file:
//
//   - Peer management: adding, removing and renaming peers through wgconf
//   - Service control: starting, stopping and querying the tunnel service
//   - Key generation: through the wg tool or in process
//   - Live statistics and a handshake based health checker
//
// # Architecture
//
// The Manager owns the settings and talks to three collaborators defined in
// the common package:
//
//   - common.KeyGenerator: ExecKeyGenerator, NativeKeyGenerator
//   - common.ServiceController: SCController (Windows), SystemdController
//     (Linux, over D-Bus), WGQuickController
//   - common.StatsProvider: DumpStats, WgctrlStats
//
// Collaborators are picked from settings and can be replaced with options,
// which is how tests inject fakes.
//
// # Change Flow
//
// Every change is one read-modify-write cycle:
//
//  1. The Manager parses the configuration file
//  2. A pure wgconf operation returns the updated configuration
//  3. wgconf.Persist backs the old file up to <path>.bak and writes the new one
//  4. The change is recorded in the history database, if enabled
//
// Nothing is cached between calls; concurrent edits by other programs are
// not detected and the last write wins.
//
// # Blocking
//
// Collaborator calls block until the external tool returns. They accept a
// context.Context and have no timeout of their own.
package vpn
