package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) historyCommand() *cobra.Command {
	limit := 20

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent changes made to the tunnel configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.loadSettings()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !s.HistoryEnabled {
				fmt.Fprintln(out, "History is disabled. Enable it with: settings set history_enabled true")
				return nil
			}
			if a.history == nil {
				a.openHistory(ctx)
			}
			if a.history == nil {
				return errors.New("history database is unavailable")
			}

			events, err := a.history.List(ctx, limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No changes recorded yet.")
				return nil
			}

			now := time.Now()
			w := newTable(out, "WHEN", "ACTION", "NAME", "PUBLIC KEY", "PEERS")
			for _, ev := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					humanize.RelTime(ev.Time, now, "ago", "from now"),
					ev.Action, orDash(ev.Name), orDash(ev.PublicKey), ev.Count)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", limit, "number of events to show (0 for all)")
	return cmd
}
