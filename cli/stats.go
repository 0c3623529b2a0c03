package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yllada/wg-manager/common"
	"github.com/yllada/wg-manager/vpn"
)

func (a *app) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show live traffic statistics of the tunnel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.getManager(ctx)
			if err != nil {
				return err
			}
			stats, err := m.LiveStats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(stats) == 0 {
				fmt.Fprintf(out, "No peers on %s.\n", m.Settings().InterfaceName)
				return nil
			}

			names := map[string]string{}
			if cfg, err := m.LoadConfig(); err == nil {
				for _, p := range cfg.Peers {
					names[p.PublicKey()] = p.Name
				}
			}

			now := time.Now()
			health := vpn.DefaultHealthConfig()
			w := newTable(out, "NAME", "PUBLIC KEY", "ENDPOINT", "HANDSHAKE", "RX", "TX", "HEALTH")
			for _, st := range stats {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					orDash(names[st.PublicKey]), st.PublicKey, orDash(st.Endpoint),
					formatHandshake(st.LastHandshake, now),
					formatBytes(st.RxBytes), formatBytes(st.TxBytes),
					healthText(out, health.Classify(st.LastHandshake, now)))
			}
			return w.Flush()
		},
	}
}

func (a *app) watchCommand() *cobra.Command {
	interval := common.WatchInterval

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report peer health changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.getManager(ctx)
			if err != nil {
				return err
			}
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}

			iface := m.Settings().InterfaceName
			names := map[string]string{}
			if cfg, err := m.LoadConfig(); err == nil {
				for _, p := range cfg.Peers {
					names[p.PublicKey()] = p.Name
				}
			}

			out := cmd.OutOrStdout()
			config := vpn.DefaultHealthConfig()
			config.CheckInterval = interval
			hc := vpn.NewHealthChecker(m.StatsProvider(), iface, config)
			hc.SetOnHealthChange(func(publicKey string, oldState, newState vpn.HealthState) {
				label := shortKey(publicKey)
				if n := names[publicKey]; n != "" {
					label = n + " (" + label + ")"
				}
				fmt.Fprintf(out, "%s  %s: %s -> %s\n",
					time.Now().Format("15:04:05"), label, oldState, healthText(out, newState))
			})
			hc.SetOnCheckFailed(func(err error) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s  %s\n", time.Now().Format("15:04:05"), render(cmd.ErrOrStderr(), badStyle, err.Error()))
			})

			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s every %s (Ctrl+C to stop)\n", iface, interval)
			hc.Start(ctx)
			<-ctx.Done()
			hc.Stop()
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", interval, "polling interval")
	return cmd
}
