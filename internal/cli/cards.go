package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
	"github.com/taskboard/taskboard-server/internal/reconcile"
)

func (a *app) newCardsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cards",
		Aliases: []string{"card"},
		Short:   "Manage cards",
	}
	cmd.AddCommand(
		a.newCardsAddCommand(),
		a.newCardsUpdateCommand(),
		a.newCardsDeleteCommand(),
		a.newCardsMoveCommand(),
		a.newCardsSearchCommand(),
	)
	return cmd
}

func (a *app) newCardsAddCommand() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "add <board> <list> <title>",
		Short: "Append a card to a list",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var listID string
			b, err := a.apply(cmd.Context(), args[0], "add card", func(b *dto.Board) (reconcile.Mutation, error) {
				l, err := a.resolveList(b, args[1])
				if err != nil {
					return nil, err
				}
				listID = l.ID
				return &reconcile.AddCard{ListID: l.ID, Title: args[2], Description: descriptionText(description)}, nil
			})
			if err != nil {
				return err
			}
			cards := b.FindList(listID).Cards
			added := cards[len(cards)-1]
			a.printer.Success("Added card %q (%s)", added.Title, added.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Card description (HTML is converted to Markdown)")
	return cmd
}

func (a *app) newCardsUpdateCommand() *cobra.Command {
	var title, description, due string
	var clearDue, clearDescription bool
	cmd := &cobra.Command{
		Use:   "update <board> <card>",
		Short: "Change fields of a card; unset flags are left unchanged",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.CardPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = domain.Some(title)
			}
			switch {
			case clearDescription:
				patch.Description = domain.Null[string]()
			case flags.Changed("description"):
				patch.Description = domain.Some(descriptionText(description))
			}
			switch {
			case clearDue:
				patch.DueDate = domain.Null[time.Time]()
			case flags.Changed("due"):
				t, err := parseDue(due)
				if err != nil {
					return a.printer.Error("Invalid due date", err.Error())
				}
				patch.DueDate = domain.Some(t)
			}
			if patch.IsEmpty() {
				return a.printer.Error("Nothing to update", "",
					"Pass at least one of --title, --description, --due, --clear-due, --clear-description")
			}

			b, err := a.apply(cmd.Context(), args[0], "update card", func(b *dto.Board) (reconcile.Mutation, error) {
				l, _, err := a.locateCard(b, args[1])
				if err != nil {
					return nil, err
				}
				return &reconcile.UpdateCard{ListID: l.ID, CardID: args[1], Patch: patch}, nil
			})
			if err != nil {
				return err
			}
			_, card := b.FindCard(args[1])
			a.printer.Success("Updated card %q", card.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description (HTML is converted to Markdown)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	cmd.Flags().BoolVar(&clearDescription, "clear-description", false, "Remove the description")
	cmd.MarkFlagsMutuallyExclusive("due", "clear-due")
	cmd.MarkFlagsMutuallyExclusive("description", "clear-description")
	return cmd
}

func (a *app) newCardsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <board> <card>",
		Short: "Delete a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var title string
			_, err := a.apply(cmd.Context(), args[0], "delete card", func(b *dto.Board) (reconcile.Mutation, error) {
				l, card, err := a.locateCard(b, args[1])
				if err != nil {
					return nil, err
				}
				title = card.Title
				return &reconcile.DeleteCard{ListID: l.ID, CardID: card.ID}, nil
			})
			if err != nil {
				return err
			}
			a.printer.Success("Deleted card %q", title)
			return nil
		},
	}
}

func (a *app) newCardsMoveCommand() *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "move <board> <card> <to-list>",
		Short: "Move a card to another list",
		Long: `Move a card to another list, or within its list.

--index is the zero-based target position; by default the card goes to the end.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target string
			_, err := a.apply(cmd.Context(), args[0], "move card", func(b *dto.Board) (reconcile.Mutation, error) {
				from, card, err := a.locateCard(b, args[1])
				if err != nil {
					return nil, err
				}
				to, err := a.resolveList(b, args[2])
				if err != nil {
					return nil, err
				}
				target = to.Title
				idx := index
				if idx < 0 {
					idx = len(to.Cards)
					if to.ID == from.ID {
						idx--
					}
				}
				return &reconcile.MoveCard{FromListID: from.ID, CardID: card.ID, ToListID: to.ID, ToIndex: idx}, nil
			})
			if err != nil {
				return err
			}
			a.printer.Success("Moved card to %q", target)
			return nil
		},
	}
	cmd.Flags().IntVar(&index, "index", -1, "Target position")
	return cmd
}

func (a *app) newCardsSearchCommand() *cobra.Command {
	var label string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search <board> [query]",
		Short: "Search cards by text or label",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 2 {
				query = args[1]
			}
			if query == "" && label == "" {
				return a.printer.Error("Nothing to search for", "", "Pass a query or --label <label-id>")
			}
			c, err := a.authed()
			if err != nil {
				return err
			}
			matches, err := c.SearchCards(cmd.Context(), args[0], query, label)
			if err != nil {
				return a.fail("search cards", err)
			}
			if asJSON {
				return a.printJSON(matches)
			}
			if len(matches) == 0 {
				a.printer.Info("No matching cards.")
				return nil
			}
			rows := make([][]string, 0, len(matches))
			for _, m := range matches {
				rows = append(rows, append([]string{m.ListID}, cardRow(m.Card)...))
			}
			return a.printer.Table([]string{"List", "#", "ID", "Title", "Labels", "Due"}, rows)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "Label id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}
