// Package common provides shared constants, types, utilities, and interfaces
// used throughout the WireGuard Manager.
//
// This package holds the cross-cutting pieces every other package leans on:
//
//   - Constants: file names, default paths and polling intervals
//   - Errors: sentinel errors checked with errors.Is
//   - Interfaces: the external collaborators (key generation, host service
//     control, live statistics, client key storage)
//   - Logger: levelled logging to stderr and an optional rotating file
//   - Utils: file helpers used for settings and backups
//
// # Usage
//
//	import "github.com/yllada/wg-manager/common"
//
//	common.LogInfo("Persisting %d peers to %s", len(cfg.Peers), path)
//
//	if errors.Is(err, common.ErrExternalTool) {
//	    // the wg binary failed or is missing
//	}
//
//	switch ctrl.Status(ctx, "wg0") {
//	case common.ServiceRunning:
//	    // ...
//	}
package common
