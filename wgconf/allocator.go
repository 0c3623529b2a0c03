package wgconf

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultNextAddress is suggested when no address can be read from the
// configuration.
const DefaultNextAddress = "10.0.0.2/32"

type octets [4]int

func (a octets) less(b octets) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// NextAddress suggests the address of the next client. It takes the first
// entry of the interface Address and of each peer AllowedIPs, picks the
// greatest dotted quad and increments its last octet. Only the last octet is
// incremented, so "10.0.0.255" yields "10.0.0.256/32".
func NextAddress(cfg *Config) string {
	candidates := []string{cfg.Interface.Address()}
	for i := range cfg.Peers {
		candidates = append(candidates, cfg.Peers[i].AllowedIPs())
	}

	var (
		best  octets
		found bool
	)
	for _, c := range candidates {
		ip, ok := parseFirstAddress(c)
		if !ok {
			continue
		}
		if !found || best.less(ip) {
			best = ip
			found = true
		}
	}

	if !found {
		return DefaultNextAddress
	}
	return fmt.Sprintf("%d.%d.%d.%d/32", best[0], best[1], best[2], best[3]+1)
}

// parseFirstAddress reads the host part of the first comma-separated entry.
// Octet values are not range-checked.
func parseFirstAddress(value string) (octets, bool) {
	var ip octets

	first, _, _ := strings.Cut(value, ",")
	host, _, _ := strings.Cut(first, "/")
	parts := strings.Split(strings.TrimSpace(host), ".")
	if len(parts) != 4 {
		return ip, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return ip, false
		}
		ip[i] = n
	}
	return ip, true
}
