//go:build linux

package vpn

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/wg-manager/common"
)

const (
	systemdDest      = "org.freedesktop.systemd1"
	systemdPath      = dbus.ObjectPath("/org/freedesktop/systemd1")
	systemdManager   = "org.freedesktop.systemd1.Manager"
	systemdUnitIface = "org.freedesktop.systemd1.Unit"
)

// SystemdController drives the wg-quick@<iface> unit over the system D-Bus.
type SystemdController struct {
	mu     sync.Mutex
	conn   *dbus.Conn
	object func(path dbus.ObjectPath) (dbus.BusObject, error)
}

// NewSystemdController creates a controller. The bus connection is opened on
// first use.
func NewSystemdController() *SystemdController {
	c := &SystemdController{}
	c.object = c.systemBusObject
	return c
}

// SystemdUnitName returns the wg-quick unit of a tunnel.
func SystemdUnitName(interfaceName string) string {
	return "wg-quick@" + interfaceName + ".service"
}

func (c *SystemdController) systemBusObject(path dbus.ObjectPath) (dbus.BusObject, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		conn, err := dbus.SystemBus()
		if err != nil {
			return nil, fmt.Errorf("%w: connecting to system bus: %w", common.ErrExternalTool, err)
		}
		c.conn = conn
	}
	return c.conn.Object(systemdDest, path), nil
}

// Status loads the unit and maps its ActiveState.
func (c *SystemdController) Status(ctx context.Context, interfaceName string) common.ServiceStatus {
	manager, err := c.object(systemdPath)
	if err != nil {
		common.LogDebug("systemd status: %v", err)
		return common.ServiceUnknown
	}

	var unitPath dbus.ObjectPath
	if err := manager.CallWithContext(ctx, systemdManager+".LoadUnit", 0, SystemdUnitName(interfaceName)).Store(&unitPath); err != nil {
		common.LogDebug("systemd LoadUnit: %v", err)
		return common.ServiceUnknown
	}

	unit, err := c.object(unitPath)
	if err != nil {
		return common.ServiceUnknown
	}

	if loadState, err := unit.GetProperty(systemdUnitIface + ".LoadState"); err == nil {
		if s, _ := loadState.Value().(string); s == "not-found" {
			return common.ServiceNotInstalled
		}
	}

	activeState, err := unit.GetProperty(systemdUnitIface + ".ActiveState")
	if err != nil {
		common.LogDebug("systemd ActiveState: %v", err)
		return common.ServiceUnknown
	}
	state, _ := activeState.Value().(string)
	return mapActiveState(state)
}

func mapActiveState(state string) common.ServiceStatus {
	switch state {
	case "active", "reloading":
		return common.ServiceRunning
	case "inactive", "failed":
		return common.ServiceStopped
	default:
		return common.ServiceUnknown
	}
}

// Control queues a start, stop or restart job for the unit.
func (c *SystemdController) Control(ctx context.Context, interfaceName string, action common.ServiceAction) error {
	var method string
	switch action {
	case common.ServiceStart:
		method = "StartUnit"
	case common.ServiceStop:
		method = "StopUnit"
	case common.ServiceRestart:
		method = "RestartUnit"
	default:
		return common.WrapError(common.ErrUnsupported, "service action "+action.String())
	}

	manager, err := c.object(systemdPath)
	if err != nil {
		return err
	}

	var job dbus.ObjectPath
	unit := SystemdUnitName(interfaceName)
	if err := manager.CallWithContext(ctx, systemdManager+"."+method, 0, unit, "replace").Store(&job); err != nil {
		return fmt.Errorf("%w: %s %s: %w", common.ErrExternalTool, method, unit, err)
	}
	common.LogDebug("systemd %s %s queued job %s", method, unit, job)
	return nil
}
