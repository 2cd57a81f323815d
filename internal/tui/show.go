package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/tui/styles"
)

// ShowActions are the library operations the show view can trigger
type ShowActions interface {
	RefreshShow(ctx context.Context, id int64, force bool) (*domain.Show, error)
	Follow(ctx context.Context, id int64) (*domain.Show, error)
	Unfollow(ctx context.Context, id int64) (*domain.Show, error)
}

// Messages
type (
	showMsg         struct{ show *domain.Show }
	streamClosedMsg struct{}
	actionDoneMsg   struct {
		action string
		err    error
	}
)

// ShowModel is a live view of one show. Updates arrive on a stream that
// emits nil while the record is stale; the last good record stays on
// screen until fresh data replaces it.
type ShowModel struct {
	ctx     context.Context
	id      int64
	updates <-chan *domain.Show
	actions ShowActions
	now     func() time.Time

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	show      *domain.Show
	stale     bool
	busy      string // Running action, empty when idle
	err       error
	updatedAt time.Time
}

// NewShowModel creates the view for show id fed by updates.
func NewShowModel(ctx context.Context, id int64, updates <-chan *domain.Show, actions ShowActions) ShowModel {
	return ShowModel{
		ctx:     ctx,
		id:      id,
		updates: updates,
		actions: actions,
		now:     time.Now,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.SpinnerStyle)),
		stale:   true,
	}
}

// waitForShow turns the next stream value into a message
func waitForShow(updates <-chan *domain.Show) tea.Cmd {
	return func() tea.Msg {
		show, ok := <-updates
		if !ok {
			return streamClosedMsg{}
		}
		return showMsg{show: show}
	}
}

func (m ShowModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForShow(m.updates))
}

func (m ShowModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case showMsg:
		if msg.show == nil {
			m.stale = true
		} else {
			m.show, m.stale = msg.show, false
			m.updatedAt = m.now()
		}
		return m, waitForShow(m.updates)

	case streamClosedMsg:
		return m, tea.Quit

	case actionDoneMsg:
		m.busy = ""
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ShowModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.busy != "" {
			return m, nil
		}
		m.busy, m.err = "refreshing", nil
		return m, m.run("refresh", func(ctx context.Context) error {
			_, err := m.actions.RefreshShow(ctx, m.id, true)
			return err
		})

	case key.Matches(msg, m.keys.Follow):
		if m.busy != "" || m.show == nil {
			return m, nil
		}
		follow := !m.show.Followed
		m.busy, m.err = "saving", nil
		return m, m.run("follow", func(ctx context.Context) error {
			var err error
			if follow {
				_, err = m.actions.Follow(ctx, m.id)
			} else {
				_, err = m.actions.Unfollow(ctx, m.id)
			}
			return err
		})
	}
	return m, nil
}

// run performs an action off the update loop. Its result reaches the view
// through the stream; only the error comes back as a message.
func (m ShowModel) run(action string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

func (m ShowModel) View() string {
	var b strings.Builder
	b.WriteString(styles.BadgeStyle.Render("showsync") + " " + styles.DimStyle.Render(fmt.Sprintf("show %d", m.id)) + "\n\n")

	if m.show == nil {
		b.WriteString(m.spinner.View() + " Loading...\n")
	} else {
		b.WriteString(styles.PanelStyle.Render(strings.TrimRight(ShowDetails(m.show, nil, ""), "\n")) + "\n")
	}

	switch {
	case m.busy != "":
		b.WriteString(m.spinner.View() + " " + styles.DimStyle.Render(m.busy+"...") + "\n")
	case m.stale && m.show != nil:
		b.WriteString(m.spinner.View() + " " + styles.DimStyle.Render("stale, waiting for fresh data") + "\n")
	case !m.updatedAt.IsZero():
		b.WriteString(styles.DimStyle.Render("updated "+m.updatedAt.Format(time.TimeOnly)) + "\n")
	}
	if m.err != nil {
		b.WriteString(styles.ErrorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}
