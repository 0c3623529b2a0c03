package vpn

import (
	"context"
	"strings"
	"time"

	"github.com/yllada/wg-manager/common"
)

// SCController drives the WireGuard tunnel service through the Windows
// service control tool.
type SCController struct {
	run          commandRunner
	pollInterval time.Duration
	stopTimeout  time.Duration
}

// NewSCController creates a controller using "sc".
func NewSCController() *SCController {
	return &SCController{
		run:          runCommand,
		pollInterval: common.ServicePollInterval,
		stopTimeout:  common.ServiceStopTimeout,
	}
}

// SCServiceName returns the service name WireGuard registers for a tunnel.
func SCServiceName(interfaceName string) string {
	return "WireGuardTunnel$" + interfaceName
}

// Status queries the service. A failing query means the service is not
// installed.
func (c *SCController) Status(ctx context.Context, interfaceName string) common.ServiceStatus {
	out, err := c.run(ctx, "", "sc", "query", SCServiceName(interfaceName))
	if err != nil {
		if ctx.Err() != nil {
			return common.ServiceUnknown
		}
		common.LogDebug("sc query failed: %v", err)
		return common.ServiceNotInstalled
	}
	return parseSCQuery(string(out))
}

func parseSCQuery(output string) common.ServiceStatus {
	switch {
	case strings.Contains(output, "RUNNING"):
		return common.ServiceRunning
	case strings.Contains(output, "STOPPED"):
		return common.ServiceStopped
	default:
		return common.ServiceUnknown
	}
}

// Control starts or stops the service. Restart stops it, waits until it
// reports Stopped (bounded by the stop timeout) and starts it again.
func (c *SCController) Control(ctx context.Context, interfaceName string, action common.ServiceAction) error {
	name := SCServiceName(interfaceName)

	switch action {
	case common.ServiceStart, common.ServiceStop:
		_, err := c.run(ctx, "", "sc", action.String(), name)
		return err
	case common.ServiceRestart:
		if _, err := c.run(ctx, "", "sc", "stop", name); err != nil {
			common.LogDebug("sc stop before restart: %v", err)
		}
		if err := c.waitStopped(ctx, interfaceName); err != nil {
			return err
		}
		_, err := c.run(ctx, "", "sc", "start", name)
		return err
	}
	return common.WrapError(common.ErrUnsupported, "service action "+action.String())
}

func (c *SCController) waitStopped(ctx context.Context, interfaceName string) error {
	attempts := int(c.stopTimeout / c.pollInterval)
	for i := 0; i < attempts; i++ {
		if c.Status(ctx, interfaceName) == common.ServiceStopped {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	common.LogWarn("Service %s did not report Stopped within %v, starting anyway", SCServiceName(interfaceName), c.stopTimeout)
	return nil
}
