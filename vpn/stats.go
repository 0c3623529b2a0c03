package vpn

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/yllada/wg-manager/common"
)

// DumpStats reads live statistics from "wg show <iface> dump".
type DumpStats struct {
	wgTool string
	run    commandRunner
}

// NewDumpStats creates a provider using the wg tool of wgPath.
func NewDumpStats(wgPath string) *DumpStats {
	return &DumpStats{wgTool: ResolveWGTool(wgPath), run: runCommand}
}

// LiveStats returns one entry per peer of the running interface.
func (d *DumpStats) LiveStats(ctx context.Context, interfaceName string) ([]common.PeerStats, error) {
	out, err := d.run(ctx, "", d.wgTool, "show", interfaceName, "dump")
	if err != nil {
		return nil, err
	}
	return parseDump(string(out)), nil
}

// parseDump reads the tab separated dump. The first line describes the
// interface (4 fields); peer lines carry public key, preshared key,
// endpoint, allowed IPs, latest handshake, rx, tx and keepalive.
func parseDump(output string) []common.PeerStats {
	var peers []common.PeerStats

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) == 4 {
			continue
		}
		if len(parts) < 7 {
			common.LogDebug("Skipping short dump line with %d fields", len(parts))
			continue
		}

		p := common.PeerStats{PublicKey: parts[0]}
		if ep := parts[2]; ep != "(none)" {
			p.Endpoint = ep
		}

		var err error
		if p.LastHandshake, err = strconv.ParseInt(parts[4], 10, 64); err != nil {
			common.LogDebug("Skipping dump line for %s: %v", p.PublicKey, err)
			continue
		}
		if p.RxBytes, err = strconv.ParseUint(parts[5], 10, 64); err != nil {
			common.LogDebug("Skipping dump line for %s: %v", p.PublicKey, err)
			continue
		}
		if p.TxBytes, err = strconv.ParseUint(parts[6], 10, 64); err != nil {
			common.LogDebug("Skipping dump line for %s: %v", p.PublicKey, err)
			continue
		}
		peers = append(peers, p)
	}

	return peers
}

// WgctrlStats reads live statistics through the kernel or userspace
// WireGuard control interface, without the wg tool.
type WgctrlStats struct{}

// LiveStats returns one entry per peer of the interface.
func (WgctrlStats) LiveStats(ctx context.Context, interfaceName string) ([]common.PeerStats, error) {
	client, err := wgctrl.New()
	if err != nil {
		return nil, fmt.Errorf("%w: opening wgctrl: %w", common.ErrExternalTool, err)
	}
	defer client.Close()

	dev, err := client.Device(interfaceName)
	if err != nil {
		return nil, fmt.Errorf("%w: device %s: %w", common.ErrExternalTool, interfaceName, err)
	}
	return statsFromDevice(dev), nil
}

func statsFromDevice(dev *wgtypes.Device) []common.PeerStats {
	peers := make([]common.PeerStats, 0, len(dev.Peers))
	for _, peer := range dev.Peers {
		p := common.PeerStats{
			PublicKey: peer.PublicKey.String(),
			RxBytes:   uint64(peer.ReceiveBytes),
			TxBytes:   uint64(peer.TransmitBytes),
		}
		if peer.Endpoint != nil {
			p.Endpoint = peer.Endpoint.String()
		}
		if !peer.LastHandshakeTime.IsZero() {
			p.LastHandshake = peer.LastHandshakeTime.Unix()
		}
		peers = append(peers, p)
	}
	return peers
}
