//go:build !linux

package vpn

import (
	"context"

	"github.com/yllada/wg-manager/common"
)

// SystemdController is only available on Linux.
type SystemdController struct{}

// NewSystemdController creates a controller that reports ErrUnsupported.
func NewSystemdController() *SystemdController {
	return &SystemdController{}
}

// SystemdUnitName returns the wg-quick unit of a tunnel.
func SystemdUnitName(interfaceName string) string {
	return "wg-quick@" + interfaceName + ".service"
}

// Status always reports ServiceUnknown.
func (c *SystemdController) Status(ctx context.Context, interfaceName string) common.ServiceStatus {
	return common.ServiceUnknown
}

// Control always fails with ErrUnsupported.
func (c *SystemdController) Control(ctx context.Context, interfaceName string, action common.ServiceAction) error {
	return common.WrapError(common.ErrUnsupported, "systemd")
}
