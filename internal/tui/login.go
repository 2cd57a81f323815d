package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/showsync/internal/tui/styles"
	"golang.org/x/oauth2"
)

// ErrLoginCancelled is returned when the user quits while waiting
var ErrLoginCancelled = errors.New("login cancelled")

type loginDoneMsg struct {
	token *oauth2.Token
	err   error
}

// LoginModel shows the device code and a spinner until wait returns.
type LoginModel struct {
	userCode        string
	verificationURL string
	wait            func() (*oauth2.Token, error)
	quit            key.Binding
	spinner         spinner.Model

	token *oauth2.Token
	err   error
	done  bool
}

// NewLoginModel creates the login view. wait blocks until the code is
// approved or rejected.
func NewLoginModel(userCode, verificationURL string, wait func() (*oauth2.Token, error)) LoginModel {
	return LoginModel{
		userCode:        userCode,
		verificationURL: verificationURL,
		wait:            wait,
		quit:            DefaultKeyMap().Quit,
		spinner:         spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.SpinnerStyle)),
	}
}

// Result returns the approved token or the reason there is none.
func (m LoginModel) Result() (*oauth2.Token, error) {
	if !m.done {
		return nil, ErrLoginCancelled
	}
	return m.token, m.err
}

func (m LoginModel) Init() tea.Cmd {
	wait := m.wait
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		token, err := wait()
		return loginDoneMsg{token: token, err: err}
	})
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loginDoneMsg:
		m.token, m.err, m.done = msg.token, msg.err, true
		return m, tea.Quit
	case tea.KeyMsg:
		if key.Matches(msg, m.quit) {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m LoginModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("\nVisit %s and enter the code %s\n\n%s Waiting for approval... %s\n",
		styles.AccentStyle.Render(m.verificationURL),
		styles.TitleStyle.Render(m.userCode),
		m.spinner.View(),
		styles.DimStyle.Render("(q to cancel)"))
}
