package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yllada/wg-manager/common"
)

func (a *app) peersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "peers",
		Aliases: []string{"peer"},
		Short:   "List and edit the peers of the tunnel",
	}
	cmd.AddCommand(
		a.peersListCommand(),
		a.peersAddCommand(),
		a.peersRemoveCommand(),
		a.peersRenameCommand(),
		a.peersExportCommand(),
	)
	return cmd
}

func (a *app) peersListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List peers, with live statistics when the tunnel is up",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.getManager(ctx)
			if err != nil {
				return err
			}
			cfg, err := m.LoadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(cfg.Peers) == 0 {
				fmt.Fprintln(out, "No peers configured.")
				fmt.Fprintf(out, "Add one with: %s peers add NAME\n", common.CommandName)
				return nil
			}

			stats, err := m.LiveStats(ctx)
			if err != nil {
				common.LogDebug("Live statistics unavailable: %v", err)
			}
			byKey := make(map[string]common.PeerStats, len(stats))
			for _, st := range stats {
				byKey[st.PublicKey] = st
			}

			now := time.Now()
			w := newTable(out, "NAME", "PUBLIC KEY", "ALLOWED IPS", "HANDSHAKE", "RX", "TX")
			for _, p := range cfg.Peers {
				handshake, rx, tx := "-", "-", "-"
				if st, ok := byKey[p.PublicKey()]; ok {
					handshake = formatHandshake(st.LastHandshake, now)
					rx, tx = formatBytes(st.RxBytes), formatBytes(st.TxBytes)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					orDash(p.Name), orDash(p.PublicKey()), orDash(p.AllowedIPs()), handshake, rx, tx)
			}
			return w.Flush()
		},
	}
}

func (a *app) peersAddCommand() *cobra.Command {
	var address, output string
	var qr, restart bool

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a peer with a fresh key pair and print its client configuration",
		Long: `Add a peer with a fresh key pair. The next free address is used unless
--address is given. The client configuration is printed to stdout, or written
to --output; the client private key is not kept in the tunnel configuration.
--qr also prints the client configuration as a QR code, and --restart
restarts the tunnel service so the new peer is picked up.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.getManager(ctx)
			if err != nil {
				return err
			}

			peer, err := m.AddPeer(ctx, args[0], address)
			if err != nil {
				return err
			}
			printSuccess(cmd.ErrOrStderr(), "Added %s (%s) with %s", orDash(peer.Name), peer.PublicKey, peer.AllowedIPs)

			client, err := m.ClientConfig(ctx, peer)
			if err != nil {
				return fmt.Errorf("peer added, but the client configuration could not be built: %w", err)
			}
			if err := writeClientConfig(cmd, output, client, qr); err != nil {
				return err
			}

			if restart {
				if err := m.ControlService(ctx, common.ServiceRestart); err != nil {
					return fmt.Errorf("peer added, but the service could not be restarted: %w", err)
				}
				printSuccess(cmd.ErrOrStderr(), "Restarted %s", m.Settings().InterfaceName)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "address to assign instead of the next free one")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the client configuration to this file")
	cmd.Flags().BoolVar(&qr, "qr", false, "also print the client configuration as a QR code")
	cmd.Flags().BoolVar(&restart, "restart", false, "restart the tunnel service after adding the peer")
	return cmd
}

func (a *app) peersRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove PUBLIC_KEY",
		Aliases: []string{"rm"},
		Short:   "Remove every peer with the given public key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.getManager(ctx)
			if err != nil {
				return err
			}
			n, err := m.RemovePeer(ctx, args[0])
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No peer with public key %s; nothing changed.\n", args[0])
				return nil
			}
			printSuccess(cmd.OutOrStdout(), "Removed %d peer(s)", n)
			return nil
		},
	}
}

func (a *app) peersRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename PUBLIC_KEY NAME",
		Short: "Set the display name of every peer with the given public key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.getManager(ctx)
			if err != nil {
				return err
			}
			n, err := m.RenamePeer(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No peer with public key %s; nothing changed.\n", args[0])
				return nil
			}
			printSuccess(cmd.OutOrStdout(), "Renamed %d peer(s) to %q", n, args[1])
			return nil
		},
	}
}

func (a *app) peersExportCommand() *cobra.Command {
	var output string
	var qr bool

	cmd := &cobra.Command{
		Use:   "export PUBLIC_KEY",
		Short: "Print the client configuration of a peer whose key was stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.getManager(ctx)
			if err != nil {
				return err
			}
			client, err := m.ExportClientConfig(ctx, args[0])
			if err != nil {
				return err
			}
			return writeClientConfig(cmd, output, client, qr)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the client configuration to this file")
	cmd.Flags().BoolVar(&qr, "qr", false, "also print the client configuration as a QR code")
	return cmd
}

// writeClientConfig prints text, or writes it to path with owner-only
// permissions since it holds a private key. With qr set the QR code always
// goes to stdout.
func writeClientConfig(cmd *cobra.Command, path, text string, qr bool) error {
	if path == "" {
		if _, err := fmt.Fprint(cmd.OutOrStdout(), text); err != nil {
			return err
		}
	} else {
		if err := os.WriteFile(path, []byte(text), 0600); err != nil {
			return fmt.Errorf("failed to write client configuration: %w", err)
		}
		printSuccess(cmd.ErrOrStderr(), "Client configuration written to %s", path)
	}

	if qr {
		return printQR(cmd.OutOrStdout(), text)
	}
	return nil
}

func (a *app) nextIPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "next-ip",
		Short: "Print the address the next added peer would get",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.getManager(cmd.Context())
			if err != nil {
				return err
			}
			addr, err := m.NextAddress()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
}
