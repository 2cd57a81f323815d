// Package tui renders shows in the terminal and hosts the interactive
// Bubble Tea views.
package tui

import (
	"fmt"
	"strings"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/tui/styles"
)

const maxTitleWidth = 60

// StatusBadge renders the session status
func StatusBadge(status domain.AuthStatus) string {
	if status == domain.LoggedIn {
		return styles.SuccessStyle.Render("● " + status.String())
	}
	return styles.DimStyle.Render("○ " + status.String())
}

// ShowLine renders a show as a single list row
func ShowLine(show *domain.Show) string {
	var b strings.Builder
	b.WriteString(styles.DimStyle.Render(fmt.Sprintf("%5d ", show.ID)))

	title := show.Title
	if title == "" {
		title = "(not fetched yet)"
	}
	b.WriteString(styles.TitleStyle.Render(styles.Truncate(title, maxTitleWidth)))
	if !show.FirstAired.IsZero() {
		b.WriteString(styles.SubtitleStyle.Render(fmt.Sprintf(" (%d)", show.FirstAired.Year())))
	}
	if show.Followed {
		b.WriteString(styles.AccentStyle.Render(" ★"))
	}
	if show.Hidden {
		b.WriteString(styles.DimStyle.Render(" hidden"))
	}
	return b.String()
}

// ShowDetails renders every known field of a show. images may be nil.
func ShowDetails(show *domain.Show, images *domain.ShowImages, imageBaseURL string) string {
	var b strings.Builder
	b.WriteString(ShowLine(show) + "\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(styles.DimStyle.Render(fmt.Sprintf("  %-13s", label)) + value + "\n")
	}

	row("trakt", itoa(show.TraktID))
	row("tmdb", itoa(show.TmdbID))
	row("imdb", show.ImdbID)
	row("network", show.Network)
	row("status", show.Status)
	row("country", show.Country)
	row("certification", show.Certification)
	if show.Runtime > 0 {
		row("runtime", fmt.Sprintf("%d min", show.Runtime))
	}
	row("genres", strings.Join(show.Genres, ", "))
	if show.Votes > 0 {
		row("rating", fmt.Sprintf("%.1f (%d votes)", show.Rating, show.Votes))
	}
	row("homepage", show.Homepage)
	if !show.LastWatchedAt.IsZero() {
		row("last watched", show.LastWatchedAt.Format("2006-01-02"))
	}
	if images != nil {
		if poster := domain.HighestRated(images.Images, domain.ImageTypePoster); poster != nil {
			row("poster", imageBaseURL+poster.Path)
		}
		if backdrop := domain.HighestRated(images.Images, domain.ImageTypeBackdrop); backdrop != nil {
			row("backdrop", imageBaseURL+backdrop.Path)
		}
	}
	if show.Summary != "" {
		b.WriteString("\n" + styles.SubtitleStyle.Width(78).Render(show.Summary) + "\n")
	}
	return b.String()
}

// EntryLine renders a list entry with its position
func EntryLine(e domain.EntryWithShow) string {
	line := styles.DimStyle.Render(fmt.Sprintf("%3d. ", e.Entry.Position+1)) + ShowLine(&e.Show)
	if e.Entry.Watchers > 0 {
		line += styles.DimStyle.Render(fmt.Sprintf("  %d watching", e.Entry.Watchers))
	}
	return line
}

// EpisodeLine renders an episode as "S01E02 Title", marking watched ones
func EpisodeLine(ep *domain.Episode) string {
	var b strings.Builder
	b.WriteString(styles.DimStyle.Render(fmt.Sprintf("%5d ", ep.ID)))
	b.WriteString(styles.AccentStyle.Render(fmt.Sprintf("S%02dE%02d ", ep.Season, ep.Number)))
	title := ep.Title
	if title == "" {
		title = "TBA"
	}
	b.WriteString(styles.Truncate(title, maxTitleWidth))
	if !ep.FirstAired.IsZero() {
		b.WriteString(styles.SubtitleStyle.Render(" " + ep.FirstAired.Format("2006-01-02")))
	}
	if ep.Watched() {
		b.WriteString(styles.SuccessStyle.Render(" ✓"))
	}
	return b.String()
}

func itoa(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprint(v)
}
