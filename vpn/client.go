package vpn

import (
	"github.com/yllada/wg-manager/common"
	"github.com/yllada/wg-manager/wgconf"
)

// ClientConfigParams describes the configuration handed to a client.
type ClientConfigParams struct {
	PrivateKey      string
	Address         string
	DNS             string
	ServerPublicKey string
	Endpoint        string
}

// RenderClientConfig builds a ready-to-import client configuration that
// routes all traffic through the server.
func RenderClientConfig(p ClientConfigParams) string {
	var cfg wgconf.Config

	cfg.Interface.SetPrivateKey(p.PrivateKey)
	cfg.Interface.SetAddress(p.Address)
	if p.DNS != "" {
		cfg.Interface.SetDNS(p.DNS)
	}

	var server wgconf.Section
	server.SetPublicKey(p.ServerPublicKey)
	server.Set(wgconf.KeyEndpoint, p.Endpoint)
	server.SetAllowedIPs(common.ClientAllowedIPs)
	cfg.Peers = append(cfg.Peers, server)

	return wgconf.Serialize(&cfg)
}
