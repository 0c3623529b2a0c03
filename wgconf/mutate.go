package wgconf

import (
	"fmt"
	"strings"

	"github.com/yllada/wg-manager/common"
)

var singleLine = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// AddPeer returns a copy of cfg with a new peer appended. The peer carries
// only its name, public key and allowed IPs. A public key already present in
// cfg is rejected with common.ErrDuplicatePeer.
func AddPeer(cfg *Config, name, allowedIPs, publicKey string) (*Config, error) {
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return nil, fmt.Errorf("%w: empty public key", common.ErrInvalidPeer)
	}
	if strings.ContainsAny(name, "\r\n") || strings.ContainsAny(allowedIPs, "\r\n") {
		return nil, fmt.Errorf("%w: values must be single-line", common.ErrInvalidPeer)
	}
	if cfg.FindPeer(publicKey) >= 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrDuplicatePeer, publicKey)
	}

	out := cfg.Clone()
	peer := Section{Name: strings.TrimSpace(name)}
	peer.SetPublicKey(publicKey)
	peer.SetAllowedIPs(strings.TrimSpace(allowedIPs))
	out.Peers = append(out.Peers, peer)
	return out, nil
}

// DeletePeer returns a copy of cfg without any peer whose public key equals
// publicKey, and the number of peers removed.
func DeletePeer(cfg *Config, publicKey string) (*Config, int) {
	out := cfg.Clone()
	kept := out.Peers[:0]
	removed := 0
	for _, p := range out.Peers {
		if p.PublicKey() == publicKey {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	out.Peers = kept
	return out, removed
}

// RenamePeer returns a copy of cfg where every peer with the given public key
// is named name, and the number of peers renamed. An empty name removes the
// name comment. Line breaks in name are replaced by spaces.
func RenamePeer(cfg *Config, publicKey, name string) (*Config, int) {
	out := cfg.Clone()
	name = strings.TrimSpace(singleLine.Replace(name))
	renamed := 0
	for i := range out.Peers {
		if out.Peers[i].PublicKey() == publicKey {
			out.Peers[i].Name = name
			renamed++
		}
	}
	return out, renamed
}
