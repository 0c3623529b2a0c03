package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/yllada/wg-manager/common"
	"github.com/yllada/wg-manager/vpn"
	"github.com/yllada/wg-manager/wgconf"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("6")).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var topColumns = []table.Column{
	{Title: "NAME", Width: 16},
	{Title: "PUBLIC KEY", Width: 14},
	{Title: "ALLOWED IPS", Width: 18},
	{Title: "ENDPOINT", Width: 22},
	{Title: "HANDSHAKE", Width: 16},
	{Title: "RX", Width: 10},
	{Title: "TX", Width: 10},
	{Title: "HEALTH", Width: 10},
}

// peerRows joins configured peers with their live statistics. Peers only
// present in the statistics are listed after the configured ones.
func peerRows(cfg *wgconf.Config, stats []common.PeerStats, health vpn.HealthConfig, now time.Time) []table.Row {
	byKey := make(map[string]common.PeerStats, len(stats))
	for _, st := range stats {
		byKey[st.PublicKey] = st
	}

	rows := make([]table.Row, 0, len(cfg.Peers)+len(stats))
	seen := make(map[string]bool, len(cfg.Peers))
	for _, p := range cfg.Peers {
		key := p.PublicKey()
		seen[key] = true
		st, ok := byKey[key]
		if !ok {
			rows = append(rows, table.Row{orDash(p.Name), shortKey(key), orDash(p.AllowedIPs()), "-", "-", "-", "-", "-"})
			continue
		}
		rows = append(rows, statsRow(p.Name, p.AllowedIPs(), st, health, now))
	}
	for _, st := range stats {
		if !seen[st.PublicKey] {
			rows = append(rows, statsRow("", "", st, health, now))
		}
	}
	return rows
}

func statsRow(name, allowedIPs string, st common.PeerStats, health vpn.HealthConfig, now time.Time) table.Row {
	return table.Row{
		orDash(name),
		shortKey(st.PublicKey),
		orDash(allowedIPs),
		orDash(st.Endpoint),
		formatHandshake(st.LastHandshake, now),
		formatBytes(st.RxBytes),
		formatBytes(st.TxBytes),
		health.Classify(st.LastHandshake, now).String(),
	}
}

type topRefreshMsg struct {
	rows []table.Row
	err  error
	at   time.Time
}

type topTickMsg struct{}

// topModel is the bubbletea model of the top command.
type topModel struct {
	iface    string
	interval time.Duration
	fetch    func() ([]table.Row, error)
	now      func() time.Time

	table   table.Model
	err     error
	updated time.Time
}

func newTopModel(iface string, interval time.Duration, fetch func() ([]table.Row, error)) *topModel {
	t := table.New(
		table.WithColumns(topColumns),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	return &topModel{
		iface:    iface,
		interval: interval,
		fetch:    fetch,
		now:      time.Now,
		table:    t,
	}
}

func (m *topModel) refresh() tea.Msg {
	rows, err := m.fetch()
	return topRefreshMsg{rows: rows, err: err, at: m.now()}
}

func (m *topModel) Init() tea.Cmd {
	return m.refresh
}

func (m *topModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if h := msg.Height - 6; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "r":
			return m, m.refresh
		}
	case topRefreshMsg:
		m.err = msg.err
		if msg.err == nil {
			m.table.SetRows(msg.rows)
			m.updated = msg.at
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return topTickMsg{} })
	case topTickMsg:
		return m, m.refresh
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *topModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s · %s", common.AppName, m.iface)))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	footer := "q quit · r refresh · ↑/↓ move"
	if !m.updated.IsZero() {
		footer = fmt.Sprintf("updated %s · %s", m.updated.Format("15:04:05"), footer)
	}
	if m.err != nil {
		footer = badStyle.Render(m.err.Error()) + "\n" + footer
	}
	b.WriteString(footerStyle.Render(footer))
	return b.String()
}

func (a *app) topCommand() *cobra.Command {
	interval := common.WatchInterval

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Interactive live view of the peers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !isTerminal(cmd.OutOrStdout()) {
				return errors.New("top needs an interactive terminal; use the stats command instead")
			}
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}
			m, err := a.getManager(ctx)
			if err != nil {
				return err
			}

			model := newTopModel(m.Settings().InterfaceName, interval, func() ([]table.Row, error) {
				return fetchPeerRows(ctx, m)
			})
			_, err = tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run()
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", interval, "refresh interval")
	return cmd
}

func fetchPeerRows(ctx context.Context, m *vpn.Manager) ([]table.Row, error) {
	cfg, err := m.LoadConfig()
	if err != nil {
		return nil, err
	}
	stats, err := m.LiveStats(ctx)
	if err != nil {
		return nil, err
	}
	return peerRows(cfg, stats, vpn.DefaultHealthConfig(), time.Now()), nil
}
