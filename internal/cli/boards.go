package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard-server/internal/dto"
	"github.com/taskboard/taskboard-server/internal/reconcile"
)

func (a *app) newBoardsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "boards",
		Aliases: []string{"board"},
		Short:   "Manage boards",
	}
	cmd.AddCommand(
		a.newBoardsListCommand(),
		a.newBoardsCreateCommand(),
		a.newBoardsShowCommand(),
		a.newBoardsRenameCommand(),
		a.newBoardsDeleteCommand(),
		a.newBoardsStarCommand(),
	)
	return cmd
}

func (a *app) newBoardsListCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List boards you own or belong to",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.authed()
			if err != nil {
				return err
			}
			boards, err := c.ListBoards(cmd.Context())
			if err != nil {
				return a.fail("list boards", err)
			}
			if asJSON {
				return a.printJSON(boards)
			}
			if len(boards) == 0 {
				a.printer.Info("No boards yet.")
				a.printer.Muted("Run: boardctl boards create \"My board\"")
				return nil
			}
			rows := make([][]string, 0, len(boards))
			for _, b := range boards {
				rows = append(rows, boardRow(b))
			}
			return a.printer.Table([]string{"ID", "Title", "★", "Lists", "Cards", "Members", "Updated"}, rows)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func boardRow(b *dto.Board) []string {
	star := ""
	if b.IsStarred {
		star = "★"
	}
	return []string{
		b.ID,
		b.Title,
		star,
		fmt.Sprint(len(b.Lists)),
		fmt.Sprint(b.CardCount()),
		fmt.Sprint(len(b.Members)),
		b.UpdatedAt.Local().Format(time.DateTime),
	}
}

func (a *app) newBoardsCreateCommand() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a board with the default lists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authed()
			if err != nil {
				return err
			}
			b, err := c.CreateBoard(cmd.Context(), args[0], description)
			if err != nil {
				return a.fail("create board", err)
			}
			a.printer.Success("Created board %q (%s)", b.Title, b.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Board description")
	return cmd
}

func (a *app) newBoardsShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <board>",
		Short: "Show a board with its lists and cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authed()
			if err != nil {
				return err
			}
			b, err := c.GetBoard(cmd.Context(), args[0])
			if err != nil {
				return a.fail("load board", err)
			}
			if asJSON {
				return a.printJSON(b)
			}
			return a.printBoard(b)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func (a *app) newBoardsRenameCommand() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "rename <board> <title>",
		Short: "Change a board's title or description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := args[1]
			b, err := a.apply(cmd.Context(), args[0], "rename board", func(*dto.Board) (reconcile.Mutation, error) {
				m := &reconcile.UpdateBoard{Title: &title}
				if cmd.Flags().Changed("description") {
					m.Description = &description
				}
				return m, nil
			})
			if err != nil {
				return err
			}
			a.printer.Success("Board renamed to %q", b.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	return cmd
}

func (a *app) newBoardsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <board>",
		Short: "Delete a board (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.authed()
			if err != nil {
				return err
			}
			if err := c.DeleteBoard(cmd.Context(), args[0]); err != nil {
				return a.fail("delete board", err)
			}
			a.printer.Success("Board deleted")
			return nil
		},
	}
}

func (a *app) newBoardsStarCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "star <board>",
		Short: "Star or unstar a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.apply(cmd.Context(), args[0], "star board", func(*dto.Board) (reconcile.Mutation, error) {
				return &reconcile.ToggleStar{}, nil
			})
			if err != nil {
				return err
			}
			if b.IsStarred {
				a.printer.Success("Starred %q", b.Title)
			} else {
				a.printer.Success("Unstarred %q", b.Title)
			}
			return nil
		},
	}
}
