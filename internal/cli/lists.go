package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard-server/internal/dto"
	"github.com/taskboard/taskboard-server/internal/reconcile"
)

func (a *app) newListsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lists",
		Aliases: []string{"list"},
		Short:   "Manage the lists of a board",
		Long: `Manage the lists of a board.

A list may be referenced by id, by title or by zero-based index.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <board> <title>",
			Short: "Append a list",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := a.apply(cmd.Context(), args[0], "add list", func(*dto.Board) (reconcile.Mutation, error) {
					return &reconcile.AddList{Title: args[1]}, nil
				})
				if err != nil {
					return err
				}
				added := b.Lists[len(b.Lists)-1]
				a.printer.Success("Added list %q (%s)", added.Title, added.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <board> <list> <title>",
			Short: "Rename a list",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, err := a.apply(cmd.Context(), args[0], "rename list", func(b *dto.Board) (reconcile.Mutation, error) {
					l, err := a.resolveList(b, args[1])
					if err != nil {
						return nil, err
					}
					return &reconcile.RenameList{ListID: l.ID, Title: args[2]}, nil
				})
				if err != nil {
					return err
				}
				a.printer.Success("List renamed to %q", args[2])
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <board> <list>",
			Short: "Delete a list and its cards",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var title string
				_, err := a.apply(cmd.Context(), args[0], "delete list", func(b *dto.Board) (reconcile.Mutation, error) {
					l, err := a.resolveList(b, args[1])
					if err != nil {
						return nil, err
					}
					title = l.Title
					return &reconcile.DeleteList{ListID: l.ID}, nil
				})
				if err != nil {
					return err
				}
				a.printer.Success("Deleted list %q", title)
				return nil
			},
		},
		&cobra.Command{
			Use:   "move <board> <from-index> <to-index>",
			Short: "Reorder lists",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				from, err := strconv.Atoi(args[1])
				if err != nil {
					return a.printer.Error("Invalid index", err.Error())
				}
				to, err := strconv.Atoi(args[2])
				if err != nil {
					return a.printer.Error("Invalid index", err.Error())
				}
				b, err := a.apply(cmd.Context(), args[0], "move list", func(*dto.Board) (reconcile.Mutation, error) {
					return &reconcile.MoveList{From: from, To: to}, nil
				})
				if err != nil {
					return err
				}
				a.printer.Success("Moved list %q to position %d", b.Lists[to].Title, to)
				return nil
			},
		},
	)
	return cmd
}
