package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/tui"
	"github.com/mmcdole/showsync/internal/tui/styles"
	"github.com/spf13/cobra"
)

var (
	forceRefresh bool
	trackTmdbID  int
	trackTraktID int
	trackImdbID  string
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <id>",
	Short: "Refresh a show if it is stale",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			show, err := a.library.RefreshShow(ctx, id, forceRefresh)
			if err != nil {
				return err
			}
			if _, err := a.library.RefreshImages(ctx, id, forceRefresh); err != nil {
				a.logger.Warn("failed to refresh images", "error", err, "showID", id)
			}
			fmt.Println(tui.ShowLine(show))
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a cached show",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			show, err := a.library.GetShow(ctx, id)
			if err != nil {
				return err
			}
			images, err := a.store.GetImages(ctx, id)
			if err != nil && !errors.Is(err, domain.ErrNotFoundLocally) {
				return err
			}
			fmt.Print(tui.ShowDetails(show, images, a.cfg.TMDB.ImageBaseURL))
			if a.library.Shows.IsExpired(id) {
				fmt.Println(styles.DimStyle.Render("\n  stale; run `showsync refresh " + args[0] + "`"))
			}
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <id>",
	Short: "Watch a show live, refreshing it if stale",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			if _, err := a.library.GetShow(ctx, id); err != nil {
				return err
			}
			viewCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			model := tui.NewShowModel(viewCtx, id, a.library.Shows.Stream(viewCtx, id), a.library)
			_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(viewCtx)).Run()
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return err
		})
	},
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Add a show to the library by provider id",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := domain.ShowIDs{TraktID: trackTraktID, TmdbID: trackTmdbID, ImdbID: trackImdbID}
		if !ids.HasRemoteID() {
			return errors.New("one of --trakt, --tmdb or --imdb is required")
		}
		return withApp(func(ctx context.Context, a *app) error {
			show, err := a.library.Track(ctx, ids)
			if err != nil {
				return err
			}
			fmt.Println(styles.SuccessStyle.Render("✓ ") + tui.ShowLine(show))
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for shows and add the results to the library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withApp(func(ctx context.Context, a *app) error {
			shows, err := a.library.Search(ctx, query)
			if err != nil {
				if len(shows) == 0 {
					return err
				}
				fmt.Println(styles.ErrorStyle.Render("Search failed: "+err.Error()) + styles.DimStyle.Render(" (showing cached matches)"))
			}
			if len(shows) == 0 {
				fmt.Println(styles.DimStyle.Render("No results"))
			}
			for _, show := range shows {
				fmt.Println(tui.ShowLine(show))
			}
			return nil
		})
	},
}

var followCmd = &cobra.Command{
	Use:   "follow <id>",
	Short: "Follow a show",
	Args:  cobra.ExactArgs(1),
	RunE: userAction(func(ctx context.Context, a *app, id int64) (*domain.Show, error) {
		return a.library.Follow(ctx, id)
	}),
}

var unfollowCmd = &cobra.Command{
	Use:   "unfollow <id>",
	Short: "Stop following a show",
	Args:  cobra.ExactArgs(1),
	RunE: userAction(func(ctx context.Context, a *app, id int64) (*domain.Show, error) {
		return a.library.Unfollow(ctx, id)
	}),
}

var watchedCmd = &cobra.Command{
	Use:   "watched <id>",
	Short: "Mark a show as watched now",
	Args:  cobra.ExactArgs(1),
	RunE: userAction(func(ctx context.Context, a *app, id int64) (*domain.Show, error) {
		return a.library.MarkWatched(ctx, id, time.Now())
	}),
}

var hideCmd = &cobra.Command{
	Use:   "hide <id>",
	Short: "Hide a show from lists",
	Args:  cobra.ExactArgs(1),
	RunE: userAction(func(ctx context.Context, a *app, id int64) (*domain.Show, error) {
		return a.library.SetHidden(ctx, id, true)
	}),
}

var unhideCmd = &cobra.Command{
	Use:   "unhide <id>",
	Short: "Show a hidden show again",
	Args:  cobra.ExactArgs(1),
	RunE: userAction(func(ctx context.Context, a *app, id int64) (*domain.Show, error) {
		return a.library.SetHidden(ctx, id, false)
	}),
}

func userAction(fn func(ctx context.Context, a *app, id int64) (*domain.Show, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			show, err := fn(ctx, a, id)
			if err != nil {
				return err
			}
			fmt.Println(tui.ShowLine(show))
			return nil
		})
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid show id %q", s)
	}
	return id, nil
}

func init() {
	refreshCmd.Flags().BoolVar(&forceRefresh, "force", false, "Refresh even if the cached show is fresh")
	trackCmd.Flags().IntVar(&trackTraktID, "trakt", 0, "trakt show id")
	trackCmd.Flags().IntVar(&trackTmdbID, "tmdb", 0, "TMDb show id")
	trackCmd.Flags().StringVar(&trackImdbID, "imdb", "", "IMDb id (tt...)")

	rootCmd.AddCommand(refreshCmd, showCmd, watchCmd, trackCmd, searchCmd, followCmd, unfollowCmd, watchedCmd, hideCmd, unhideCmd)
}
