package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yllada/wg-manager/common"
	"github.com/yllada/wg-manager/vpn"
	"github.com/yllada/wg-manager/wgconf"
)

func TestPeerRows(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	cfg := wgconf.Parse(`[Interface]
Address = 10.0.0.1/24

[Peer]
# Name: laptop
PublicKey = AAA
AllowedIPs = 10.0.0.2/32

[Peer]
PublicKey = BBB
AllowedIPs = 10.0.0.3/32
`)
	stats := []common.PeerStats{
		{PublicKey: "AAA", Endpoint: "203.0.113.7:51820", LastHandshake: now.Unix() - 120, RxBytes: 2048, TxBytes: 1024},
		{PublicKey: "CCC"},
	}

	rows := peerRows(cfg, stats, vpn.DefaultHealthConfig(), now)

	assert.Equal(t, []table.Row{
		{"laptop", "AAA", "10.0.0.2/32", "203.0.113.7:51820", "2 minutes ago", "2.0 KiB", "1.0 KiB", "Healthy"},
		{"-", "BBB", "10.0.0.3/32", "-", "-", "-", "-", "-"},
		{"-", "CCC", "-", "-", "never", "0 B", "0 B", "Unknown"},
	}, rows)
}

func TestTopModel(t *testing.T) {
	fetches := 0
	var fetchErr error
	m := newTopModel("wg0", time.Second, func() ([]table.Row, error) {
		fetches++
		if fetchErr != nil {
			return nil, fetchErr
		}
		return []table.Row{{"phone", "AAA", "10.0.0.2/32", "-", "never", "0 B", "0 B", "Unknown"}}, nil
	})
	m.now = func() time.Time { return time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC) }

	_, cmd := m.Update(m.Init()())
	require.NotNil(t, cmd, "a refresh schedules the next tick")
	assert.Equal(t, 1, fetches)

	view := m.View()
	assert.Contains(t, view, "wg0")
	assert.Contains(t, view, "phone")
	assert.Contains(t, view, "updated 15:04:05")

	_, cmd = m.Update(topTickMsg{})
	require.NotNil(t, cmd)
	fetchErr = errors.New("wg show failed")
	m.Update(cmd())
	assert.Equal(t, 2, fetches)
	assert.Contains(t, m.View(), "wg show failed")
	assert.Contains(t, m.View(), "phone", "rows survive a failed refresh")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}
