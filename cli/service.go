package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yllada/wg-manager/common"
)

func (a *app) serviceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Control the tunnel service of the host",
	}

	for _, action := range []common.ServiceAction{common.ServiceStart, common.ServiceStop, common.ServiceRestart} {
		cmd.AddCommand(a.serviceActionCommand(action))
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the state of the tunnel service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.getManager(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			status := m.ServiceStatus(cmd.Context())
			fmt.Fprintf(out, "%s: %s\n", m.Settings().InterfaceName, statusText(out, status))
			return nil
		},
	})
	return cmd
}

func (a *app) serviceActionCommand(action common.ServiceAction) *cobra.Command {
	return &cobra.Command{
		Use:   action.String(),
		Short: fmt.Sprintf("%s the tunnel service", capitalize(action.String())),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.getManager(ctx)
			if err != nil {
				return err
			}
			iface := m.Settings().InterfaceName
			fmt.Fprintf(cmd.ErrOrStderr(), "Sending %s to %s...\n", action, iface)
			if err := m.ControlService(ctx, action); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSuccess(out, "%s: %s", iface, statusText(out, m.ServiceStatus(ctx)))
			return nil
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
