package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) newDiscoverCommand() *cobra.Command {
	var (
		timeout time.Duration
		use     int
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find task board servers on the local network",
		Long: `Find task board servers advertising over mDNS.

Servers advertise only when started with ADVERTISE_MDNS=true.
Pass --use N to save the Nth server as the default.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.printer.Step("Searching for %s", timeout)
			servers, err := a.opts.Discover(cmd.Context(), timeout)
			if err != nil {
				return a.printer.Error("Discovery failed", err.Error(),
					"Multicast may be blocked on this network; pass --server instead.")
			}
			if len(servers) == 0 {
				a.printer.Info("No servers found.")
				return nil
			}

			rows := make([][]string, 0, len(servers))
			for i, s := range servers {
				rows = append(rows, []string{strconv.Itoa(i + 1), s.Name, s.URL(), s.Version})
			}
			if err := a.printer.Table([]string{"#", "Name", "URL", "Version"}, rows); err != nil {
				return err
			}

			if use == 0 {
				return nil
			}
			if use < 1 || use > len(servers) {
				return a.printer.Error("No such server", "--use must be between 1 and "+strconv.Itoa(len(servers)))
			}
			chosen := servers[use-1]
			a.cfg.Server = chosen.URL()
			if err := a.saveConfig(); err != nil {
				return a.fail("save config", err)
			}
			a.printer.Success("Default server set to %s (%s)", chosen.URL(), chosen.Name)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "How long to listen for answers")
	cmd.Flags().IntVar(&use, "use", 0, "Save the Nth server as the default")
	return cmd
}
