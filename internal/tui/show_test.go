package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/tui/styles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeActions struct {
	refreshed []bool
	followed  int
	unfollow  int
}

func (f *fakeActions) RefreshShow(ctx context.Context, id int64, force bool) (*domain.Show, error) {
	f.refreshed = append(f.refreshed, force)
	return &domain.Show{ShowIDs: domain.ShowIDs{ID: id}}, nil
}

func (f *fakeActions) Follow(ctx context.Context, id int64) (*domain.Show, error) {
	f.followed++
	return &domain.Show{ShowIDs: domain.ShowIDs{ID: id}}, nil
}

func (f *fakeActions) Unfollow(ctx context.Context, id int64) (*domain.Show, error) {
	f.unfollow++
	return &domain.Show{ShowIDs: domain.ShowIDs{ID: id}}, nil
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestShowModel(actions ShowActions) ShowModel {
	return NewShowModel(context.Background(), 7, make(chan *domain.Show), actions)
}

func TestShowModel_RendersLatestShow(t *testing.T) {
	m := newTestShowModel(&fakeActions{})
	assert.Contains(t, m.View(), "Loading")

	updated, cmd := m.Update(showMsg{show: &domain.Show{ShowIDs: domain.ShowIDs{ID: 7}, ShowDetails: domain.ShowDetails{Title: "Severance", Network: "Apple TV+"}}})
	require.NotNil(t, cmd, "should keep waiting on the stream")
	view := updated.View()
	assert.Contains(t, view, "Severance")
	assert.Contains(t, view, "Apple TV+")
	assert.NotContains(t, view, "Loading")
}

func TestShowModel_StaleKeepsLastShow(t *testing.T) {
	m := newTestShowModel(&fakeActions{})
	updated, _ := m.Update(showMsg{show: &domain.Show{ShowIDs: domain.ShowIDs{ID: 7}, ShowDetails: domain.ShowDetails{Title: "Severance"}}})
	updated, _ = updated.Update(showMsg{show: nil})

	view := updated.View()
	assert.Contains(t, view, "Severance")
	assert.Contains(t, view, "stale")
}

func TestShowModel_Quit(t *testing.T) {
	m := newTestShowModel(&fakeActions{})
	_, cmd := m.Update(keyPress('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestShowModel_StreamClosedQuits(t *testing.T) {
	updates := make(chan *domain.Show)
	close(updates)
	m := NewShowModel(context.Background(), 7, updates, &fakeActions{})

	msg := waitForShow(updates)()
	assert.Equal(t, streamClosedMsg{}, msg)

	_, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestShowModel_RefreshForces(t *testing.T) {
	actions := &fakeActions{}
	m := newTestShowModel(actions)

	updated, cmd := m.Update(keyPress('r'))
	require.NotNil(t, cmd)
	assert.Contains(t, updated.View(), "refreshing")

	// A second press while busy is ignored
	_, again := updated.Update(keyPress('r'))
	assert.Nil(t, again)

	msg := cmd()
	assert.Equal(t, actionDoneMsg{action: "refresh"}, msg)
	assert.Equal(t, []bool{true}, actions.refreshed)

	done, _ := updated.Update(msg)
	assert.NotContains(t, done.View(), "refreshing")
}

func TestShowModel_FollowToggles(t *testing.T) {
	actions := &fakeActions{}
	m := newTestShowModel(actions)

	// Nothing to toggle before the show is loaded
	_, cmd := m.Update(keyPress('f'))
	assert.Nil(t, cmd)

	updated, _ := m.Update(showMsg{show: &domain.Show{ShowIDs: domain.ShowIDs{ID: 7}}})
	_, cmd = updated.Update(keyPress('f'))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, actions.followed)

	followed := &domain.Show{ShowIDs: domain.ShowIDs{ID: 7}}
	followed.Followed = true
	updated, _ = m.Update(showMsg{show: followed})
	_, cmd = updated.Update(keyPress('f'))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, actions.unfollow)
}

func TestLoginModel(t *testing.T) {
	token := &oauth2.Token{AccessToken: "abc"}
	m := NewLoginModel("ABCD-1234", "https://trakt.tv/activate", func() (*oauth2.Token, error) {
		return token, nil
	})
	view := m.View()
	assert.Contains(t, view, "ABCD-1234")
	assert.Contains(t, view, "https://trakt.tv/activate")

	_, err := m.Result()
	assert.ErrorIs(t, err, ErrLoginCancelled)

	updated, cmd := m.Update(loginDoneMsg{token: token})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	got, err := updated.(LoginModel).Result()
	require.NoError(t, err)
	assert.Same(t, token, got)
	assert.Empty(t, updated.View())
}

func TestLoginModel_QuitCancels(t *testing.T) {
	m := NewLoginModel("CODE", "https://example.com", func() (*oauth2.Token, error) { return nil, nil })
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, err := updated.(LoginModel).Result()
	assert.ErrorIs(t, err, ErrLoginCancelled)
}

func TestRender(t *testing.T) {
	show := &domain.Show{ShowIDs: domain.ShowIDs{ID: 3}, ShowDetails: domain.ShowDetails{Title: strings.Repeat("x", 80)}}
	show.Hidden = true
	line := ShowLine(show)
	assert.Contains(t, line, "...")
	assert.Contains(t, line, "hidden")

	assert.Contains(t, ShowLine(&domain.Show{ShowIDs: domain.ShowIDs{ID: 4}}), "not fetched yet")

	entry := EntryLine(domain.EntryWithShow{
		Entry: domain.ListEntry{Position: 0, Watchers: 12},
		Show:  domain.Show{ShowIDs: domain.ShowIDs{ID: 5}, ShowDetails: domain.ShowDetails{Title: "Dark"}},
	})
	assert.Contains(t, entry, "1.")
	assert.Contains(t, entry, "12 watching")

	ep := EpisodeLine(&domain.Episode{ID: 9, Season: 1, Number: 2, WatchedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	assert.Contains(t, ep, "S01E02")
	assert.Contains(t, ep, "TBA")
	assert.Contains(t, ep, "✓")

	assert.Contains(t, StatusBadge(domain.LoggedIn), domain.LoggedIn.String())
	assert.Equal(t, "abc", styles.Truncate("abc", 5))
	assert.Equal(t, "ab...", styles.Truncate("abcdefgh", 5))
}
