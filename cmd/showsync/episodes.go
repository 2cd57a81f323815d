package main

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/tui"
	"github.com/mmcdole/showsync/internal/tui/styles"
	"github.com/spf13/cobra"
)

var (
	seasonsForce bool
	upNextForce  bool
)

var seasonsCmd = &cobra.Command{
	Use:   "seasons <id>",
	Short: "Print a show's seasons and episodes, refreshing them if stale",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			seasons, err := a.library.RefreshSeasons(ctx, id, seasonsForce)
			if err != nil {
				return err
			}
			for _, season := range seasons.Seasons {
				title := fmt.Sprintf("Season %d", season.Number)
				if season.Number == 0 {
					title = "Specials"
				}
				fmt.Println(styles.TitleStyle.Render(title))
				for i := range season.Episodes {
					fmt.Println(tui.EpisodeLine(&season.Episodes[i]))
				}
			}
			return nil
		})
	},
}

var upNextCmd = &cobra.Command{
	Use:   "upnext",
	Short: "Refresh followed shows and print the next episode to watch for each",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.waitLoaded(ctx); err != nil {
				return err
			}
			if a.session.Status() != domain.LoggedIn {
				return fmt.Errorf("%w: run `showsync login` first", domain.ErrNotAuthenticated)
			}

			result, err := a.tasks.UpdateUpNextEpisodes(ctx, upNextForce)
			if err != nil {
				return err
			}
			entries, err := a.library.Entries(ctx, domain.ListFollowed)
			if err != nil {
				return err
			}
			for _, e := range entries {
				next, err := a.library.NextEpisodeToWatch(ctx, e.Show.ID)
				if err != nil || next == nil {
					continue
				}
				fmt.Println(tui.ShowLine(&e.Show))
				fmt.Println("  " + tui.EpisodeLine(next))
			}
			if result.UpNext == 0 {
				fmt.Println(styles.DimStyle.Render("All caught up"))
			}
			if result.Failed > 0 {
				fmt.Println(styles.ErrorStyle.Render(fmt.Sprintf("%d shows failed to update", result.Failed)))
			}
			return nil
		})
	},
}

var episodeWatchedCmd = &cobra.Command{
	Use:   "episode-watched <episode-id>",
	Short: "Mark an episode as watched now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			ep, err := a.library.MarkEpisodeWatched(ctx, id, time.Now())
			if err != nil {
				return err
			}
			fmt.Println(styles.SuccessStyle.Render("✓ ") + tui.EpisodeLine(ep))
			return nil
		})
	},
}

func init() {
	seasonsCmd.Flags().BoolVar(&seasonsForce, "force", false, "Refresh even if the cached seasons are fresh")
	upNextCmd.Flags().BoolVar(&upNextForce, "force", false, "Refresh next episodes even if they are fresh")

	rootCmd.AddCommand(seasonsCmd, upNextCmd, episodeWatchedCmd)
}
