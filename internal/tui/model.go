// Package tui is an interactive board view over a reconcile.Container.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/taskboard/taskboard-server/internal/domain"
	"github.com/taskboard/taskboard-server/internal/id"
	"github.com/taskboard/taskboard-server/internal/reconcile"
)

const minColumnWidth = 22

// refreshMsg tells the model that container state changed.
type refreshMsg struct{}

type resultMsg reconcile.Result

// Model is the bubbletea model of the board view.
type Model struct {
	ctx   context.Context
	c     *reconcile.Container
	state reconcile.State

	col, row int

	adding bool
	input  textinput.Model
	err    string

	width, height int
}

// New creates a model over c.
func New(ctx context.Context, c *reconcile.Container) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Card title..."
	ti.CharLimit = domain.MaxCardTitle
	return Model{ctx: ctx, c: c, state: c.State(), input: ti}
}

// Run shows the board until the user quits.
func Run(ctx context.Context, c *reconcile.Container) error {
	p := tea.NewProgram(New(ctx, c), tea.WithAltScreen(), tea.WithContext(ctx))
	// Subscribers run on the goroutine that changed the state, which may be
	// the program's own update loop, so sending must not block.
	unsubscribe := c.Subscribe(func(reconcile.State) {
		go p.Send(refreshMsg{})
	})
	defer unsubscribe()
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case refreshMsg, resultMsg:
		m.state = m.c.State()
		m.clamp()
		return m, nil
	}

	if m.adding {
		return m.updateAdding(msg)
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.err = ""
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		m.col--
		m.clamp()
	case "right", "l":
		m.col++
		m.clamp()
	case "up", "k":
		m.row--
		m.clamp()
	case "down", "j":
		m.row++
		m.clamp()
	case "a":
		if m.list() != nil {
			m.adding = true
			m.input.SetValue("")
			m.input.Focus()
			return m, textinput.Blink
		}
	case "H", "shift+left":
		return m.moveCard(-1)
	case "L", "shift+right":
		return m.moveCard(1)
	case "d", "x", "delete":
		list, card := m.list(), m.card()
		if card != nil {
			return m.do(&reconcile.DeleteCard{ListID: list.ID, CardID: card.ID})
		}
	case "s":
		return m.do(&reconcile.ToggleStar{})
	case "n":
		m.c.MarkAllRead()
		m.state = m.c.State()
	case "r":
		return m, m.reload()
	}
	return m, nil
}

func (m Model) updateAdding(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			title := strings.TrimSpace(m.input.Value())
			if title == "" {
				m.err = "Title cannot be empty"
				return m, nil
			}
			m.adding = false
			m.input.Blur()
			list := m.list()
			if list == nil {
				return m, nil
			}
			m.row = len(list.Cards)
			return m.do(&reconcile.AddCard{ListID: list.ID, Title: title})
		case "esc":
			m.adding = false
			m.err = ""
			m.input.Blur()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// moveCard moves the selected card to the neighbouring list, keeping its row when possible.
func (m Model) moveCard(delta int) (tea.Model, tea.Cmd) {
	b := m.state.Board
	from, card := m.list(), m.card()
	if card == nil || m.col+delta < 0 || m.col+delta >= len(b.Lists) {
		return m, nil
	}
	to := b.Lists[m.col+delta]
	idx := min(m.row, len(to.Cards))
	m.col += delta
	m.row = idx
	return m.do(&reconcile.MoveCard{FromListID: from.ID, CardID: card.ID, ToListID: to.ID, ToIndex: idx})
}

// do applies a mutation and waits for its outcome in the background.
func (m Model) do(mut reconcile.Mutation) (tea.Model, tea.Cmd) {
	first, ch := m.c.Do(m.ctx, mut)
	if first.Status == reconcile.Rejected {
		m.err = first.Err.Error()
		return m, nil
	}
	m.state = m.c.State()
	m.clamp()
	return m, func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return nil
		}
		return resultMsg(res)
	}
}

func (m Model) reload() tea.Cmd {
	b := m.state.Board
	if b == nil {
		return nil
	}
	return func() tea.Msg {
		if err := m.c.Load(m.ctx, b.ID); err != nil {
			m.c.Notify(reconcile.NotifyError, "Error", "No se pudo cargar el tablero")
		}
		return nil
	}
}

func (m *Model) clamp() {
	b := m.state.Board
	if b == nil || len(b.Lists) == 0 {
		m.col, m.row = 0, 0
		return
	}
	m.col = max(0, min(m.col, len(b.Lists)-1))
	cards := len(b.Lists[m.col].Cards)
	m.row = max(0, min(m.row, cards-1))
}

func (m Model) list() *domain.List {
	b := m.state.Board
	if b == nil || m.col >= len(b.Lists) {
		return nil
	}
	return b.Lists[m.col]
}

func (m Model) card() *domain.Card {
	l := m.list()
	if l == nil || m.row >= len(l.Cards) {
		return nil
	}
	return l.Cards[m.row]
}

func (m Model) View() string {
	b := m.state.Board
	if b == nil {
		return mutedStyle.Render("No board loaded. Press q to quit.")
	}

	var sb strings.Builder
	header := b.Title
	if b.IsStarred {
		header = "★ " + header
	}
	sb.WriteString(titleStyle.Render(header))
	if m.state.Pending > 0 {
		sb.WriteString(pendingStyle.Render(fmt.Sprintf("  syncing %d…", m.state.Pending)))
	}
	sb.WriteString("\n")

	width := minColumnWidth
	if m.width > 0 && len(b.Lists) > 0 {
		width = max(minColumnWidth, m.width/len(b.Lists)-4)
	}
	columns := make([]string, len(b.Lists))
	for i, l := range b.Lists {
		columns[i] = m.renderColumn(i, l, width)
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, columns...))
	sb.WriteString("\n")

	if m.adding {
		sb.WriteString(inputStyle.Render("Add card to " + m.list().Title + "\n" + m.input.View()))
		sb.WriteString("\n")
	}
	if m.err != "" {
		sb.WriteString(toastStyles["error"].Render(m.err))
		sb.WriteString("\n")
	}
	if toast := m.toast(); toast != "" {
		sb.WriteString(toast)
		sb.WriteString("\n")
	}
	sb.WriteString(mutedStyle.Render("←/→ list · ↑/↓ card · a add · H/L move · d delete · s star · n read · r reload · q quit"))
	return sb.String()
}

func (m Model) renderColumn(i int, l *domain.List, width int) string {
	var sb strings.Builder
	sb.WriteString(listTitleStyle.Render(fmt.Sprintf("%s (%d)", l.Title, len(l.Cards))))
	for j, c := range l.Cards {
		sb.WriteString("\n")
		line := truncate(c.Title, width)
		if len(c.Labels) > 0 {
			line = truncate(fmt.Sprintf("%s [%d]", c.Title, len(c.Labels)), width)
		}
		style := cardStyle
		if id.IsTemp(c.ID) {
			style = pendingStyle
		}
		if i == m.col && j == m.row {
			style = selectedStyle
		}
		sb.WriteString(style.Render(line))
	}
	if len(l.Cards) == 0 {
		sb.WriteString("\n" + mutedStyle.Render("(empty)"))
	}

	style := columnStyle
	if i == m.col {
		style = activeColumnStyle
	}
	return style.Width(width).Render(sb.String())
}

// toast renders the newest unread notification.
func (m Model) toast() string {
	for _, n := range m.state.Notifications {
		if n.Read {
			continue
		}
		style, ok := toastStyles[string(n.Type)]
		if !ok {
			style = cardStyle
		}
		text := n.Message
		if n.Title != "" {
			text = n.Title + ": " + n.Message
		}
		if m.state.Unread > 1 {
			text += fmt.Sprintf(" (+%d)", m.state.Unread-1)
		}
		return style.Render(text)
	}
	return ""
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
