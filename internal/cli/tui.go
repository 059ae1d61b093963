package cli

import (
	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard-server/internal/reconcile"
	"github.com/taskboard/taskboard-server/internal/tui"
)

func (a *app) newTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui <board>",
		Short: "Open an interactive board view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authed()
			if err != nil {
				return err
			}
			boardID := args[0]
			container := reconcile.New(reconcile.Options{
				API:    c,
				Logger: a.logger,
				Persist: reconcile.PersistConfig{
					Path:  a.cfg.Persist.StateFile(a.configPath, boardID),
					Scope: a.cfg.Persist.Scope(),
				},
			})
			if err := container.Restore(); err != nil {
				a.printer.Warning("Ignoring saved state: %v", err)
			}
			if err := container.Load(cmd.Context(), boardID); err != nil {
				if container.Board() == nil {
					return a.fail("load board", err)
				}
				a.printer.Warning("Server unreachable, showing saved board")
			}
			return tui.Run(cmd.Context(), container)
		},
	}
}
