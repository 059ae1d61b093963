package cli

import (
	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard-server/internal/dto"
	"github.com/taskboard/taskboard-server/internal/reconcile"
)

func (a *app) newLabelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "labels",
		Aliases: []string{"label"},
		Short:   "List, add and remove card labels",
	}

	list := &cobra.Command{
		Use:   "list <board>",
		Short: "Show the distinct labels used on a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authed()
			if err != nil {
				return err
			}
			labels, err := c.AvailableLabels(cmd.Context(), args[0])
			if err != nil {
				return a.fail("list labels", err)
			}
			if len(labels) == 0 {
				a.printer.Info("No labels on this board.")
				return nil
			}
			rows := make([][]string, 0, len(labels))
			for _, l := range labels {
				rows = append(rows, []string{l.ID, l.Text, l.Color})
			}
			return a.printer.Table([]string{"ID", "Text", "Color"}, rows)
		},
	}

	var color string
	add := &cobra.Command{
		Use:   "add <board> <card> <text>",
		Short: "Attach a label to a card",
		Long: `Attach a label to a card.

Without --color the color is derived from the label text, so equal texts share a color.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.apply(cmd.Context(), args[0], "add label", func(b *dto.Board) (reconcile.Mutation, error) {
				l, card, err := a.locateCard(b, args[1])
				if err != nil {
					return nil, err
				}
				return &reconcile.AddLabel{ListID: l.ID, CardID: card.ID, Text: args[2], Color: color}, nil
			})
			if err != nil {
				return err
			}
			a.printer.Success("Label %q added", args[2])
			return nil
		},
	}
	add.Flags().StringVar(&color, "color", "", "Label color")

	remove := &cobra.Command{
		Use:   "remove <board> <card> <label-id>",
		Short: "Detach a label from a card",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.apply(cmd.Context(), args[0], "remove label", func(b *dto.Board) (reconcile.Mutation, error) {
				l, card, err := a.locateCard(b, args[1])
				if err != nil {
					return nil, err
				}
				return &reconcile.RemoveLabel{ListID: l.ID, CardID: card.ID, LabelID: args[2]}, nil
			})
			if err != nil {
				return err
			}
			a.printer.Success("Label removed")
			return nil
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}
