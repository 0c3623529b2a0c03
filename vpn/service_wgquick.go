package vpn

import (
	"context"
	"os/exec"

	"github.com/yllada/wg-manager/common"
)

// WGQuickController brings the tunnel up and down with wg-quick directly,
// for hosts without a service manager.
type WGQuickController struct {
	wgTool   string
	run      commandRunner
	lookPath func(string) (string, error)
}

// NewWGQuickController creates a controller. wgPath locates the wg tool used
// for status queries.
func NewWGQuickController(wgPath string) *WGQuickController {
	return &WGQuickController{
		wgTool:   ResolveWGTool(wgPath),
		run:      runCommand,
		lookPath: exec.LookPath,
	}
}

// Status reports Running when the kernel knows the interface.
func (c *WGQuickController) Status(ctx context.Context, interfaceName string) common.ServiceStatus {
	if _, err := c.lookPath("wg-quick"); err != nil {
		return common.ServiceNotInstalled
	}
	if _, err := c.run(ctx, "", c.wgTool, "show", interfaceName); err != nil {
		if ctx.Err() != nil {
			return common.ServiceUnknown
		}
		return common.ServiceStopped
	}
	return common.ServiceRunning
}

// Control runs "wg-quick up" or "wg-quick down". Restart ignores a failing
// down.
func (c *WGQuickController) Control(ctx context.Context, interfaceName string, action common.ServiceAction) error {
	switch action {
	case common.ServiceStart:
		_, err := c.run(ctx, "", "wg-quick", "up", interfaceName)
		return err
	case common.ServiceStop:
		_, err := c.run(ctx, "", "wg-quick", "down", interfaceName)
		return err
	case common.ServiceRestart:
		if _, err := c.run(ctx, "", "wg-quick", "down", interfaceName); err != nil {
			common.LogDebug("wg-quick down before restart: %v", err)
		}
		_, err := c.run(ctx, "", "wg-quick", "up", interfaceName)
		return err
	}
	return common.WrapError(common.ErrUnsupported, "service action "+action.String())
}
