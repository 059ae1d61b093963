package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/dto"
	"github.com/taskboard/taskboard-server/internal/reconcile"
)

// apply loads a board, builds a mutation against it and runs it through the
// reconciler, returning the confirmed board.
func (a *app) apply(ctx context.Context, boardID, action string, build func(*dto.Board) (reconcile.Mutation, error)) (*dto.Board, error) {
	c, err := a.authed()
	if err != nil {
		return nil, err
	}
	container := reconcile.New(reconcile.Options{API: c, Logger: a.logger})
	if err := container.Load(ctx, boardID); err != nil {
		return nil, a.fail("load board", err)
	}

	m, err := build(container.Board())
	if err != nil {
		return nil, err
	}
	res := container.Apply(ctx, m)
	switch res.Status {
	case reconcile.Confirmed:
		return container.Board(), nil
	case reconcile.Rejected:
		return nil, a.printer.Error("Failed to "+action, res.Err.Error())
	default:
		return nil, a.fail(action, res.Err)
	}
}

// locateCard finds the list holding cardID.
func (a *app) locateCard(b *dto.Board, cardID string) (*domain.List, *domain.Card, error) {
	list, card := b.FindCard(cardID)
	if card == nil {
		return nil, nil, a.printer.Error("Card not found",
			fmt.Sprintf("Board %q has no card %q.", b.Title, cardID),
			"Run: boardctl boards show "+b.ID)
	}
	return list, card, nil
}

// resolveList accepts a list id, a list title or a zero-based index.
func (a *app) resolveList(b *dto.Board, ref string) (*domain.List, error) {
	if l := b.FindList(ref); l != nil {
		return l, nil
	}
	for _, l := range b.Lists {
		if strings.EqualFold(l.Title, ref) {
			return l, nil
		}
	}
	var idx int
	if _, err := fmt.Sscanf(ref, "%d", &idx); err == nil && idx >= 0 && idx < len(b.Lists) {
		return b.Lists[idx], nil
	}
	return nil, a.printer.Error("List not found",
		fmt.Sprintf("Board %q has no list %q.", b.Title, ref),
		"Run: boardctl boards show "+b.ID)
}

// parseDue accepts YYYY-MM-DD or RFC 3339.
func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}

func (a *app) printJSON(v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.opts.Out, string(data))
	return err
}

func (a *app) printBoard(b *dto.Board) error {
	title := b.Title
	if b.IsStarred {
		title = "★ " + title
	}
	a.printer.Heading(title)
	if b.Description != "" {
		a.printer.Info("%s", b.Description)
	}
	names := make([]string, 0, len(b.Members))
	for _, m := range b.Members {
		names = append(names, fmt.Sprintf("%s (%s)", m.User.Name, m.Role))
	}
	a.printer.Muted("id %s · version %d · members: %s", b.ID, b.Version, strings.Join(names, ", "))

	for _, l := range b.Lists {
		a.printer.Step("%s [%s] (%d)", l.Title, l.ID, len(l.Cards))
		if len(l.Cards) == 0 {
			a.printer.Muted("  (empty)")
			continue
		}
		rows := make([][]string, 0, len(l.Cards))
		for _, c := range l.Cards {
			rows = append(rows, cardRow(c))
		}
		if err := a.printer.Table([]string{"#", "ID", "Title", "Labels", "Due"}, rows); err != nil {
			return err
		}
	}
	return nil
}

func cardRow(c *domain.Card) []string {
	labels := make([]string, 0, len(c.Labels))
	for _, l := range c.Labels {
		labels = append(labels, l.Text)
	}
	due := ""
	if c.DueDate != nil {
		due = c.DueDate.Format(time.DateOnly)
	}
	return []string{fmt.Sprint(c.Position), c.ID, c.Title, strings.Join(labels, ", "), due}
}
