package main

import (
	"context"
	"fmt"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/tui"
	"github.com/mmcdole/showsync/internal/tui/styles"
	"github.com/spf13/cobra"
)

var (
	listPage     int
	listPageSize int
	listForce    bool
)

// pagedListCmd fetches one page of a remote list and prints it
func pagedListCmd(use, short string, list domain.ListName, update func(a *app) func(ctx context.Context, page, pageSize int, force bool) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listPage < 1 {
				return fmt.Errorf("--page starts at 1")
			}
			return withApp(func(ctx context.Context, a *app) error {
				page := listPage - 1
				if err := update(a)(ctx, page, listPageSize, listForce); err != nil {
					return err
				}
				entries, err := a.library.Entries(ctx, list)
				if err != nil {
					return err
				}
				for _, e := range entries {
					if e.Entry.Page != page {
						continue
					}
					fmt.Println(tui.EntryLine(e))
				}
				return nil
			})
		},
	}
}

var trendingCmd = pagedListCmd("trending", "Fetch and print a page of trending shows", domain.ListTrending,
	func(a *app) func(context.Context, int, int, bool) error { return a.library.UpdateTrending })

var recommendedCmd = pagedListCmd("recommended", "Fetch and print a page of shows recommended to you", domain.ListRecommended,
	func(a *app) func(context.Context, int, int, bool) error { return a.library.UpdateRecommended })

var listCmd = &cobra.Command{
	Use:   "list <trending|recommended|watched|followed>",
	Short: "Print a cached list",
	Args:  cobra.ExactArgs(1),
	ValidArgs: []string{
		string(domain.ListTrending), string(domain.ListRecommended),
		string(domain.ListWatched), string(domain.ListFollowed),
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		list := domain.ListName(args[0])
		switch list {
		case domain.ListTrending, domain.ListRecommended, domain.ListWatched, domain.ListFollowed:
		default:
			return fmt.Errorf("unknown list %q", args[0])
		}
		return withApp(func(ctx context.Context, a *app) error {
			entries, err := a.library.Entries(ctx, list)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println(styles.DimStyle.Render("Empty"))
			}
			for _, e := range entries {
				fmt.Println(tui.ShowLine(&e.Show))
			}
			return nil
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{trendingCmd, recommendedCmd} {
		cmd.Flags().IntVar(&listPage, "page", 1, "Page to fetch, starting at 1")
		cmd.Flags().IntVar(&listPageSize, "page-size", 20, "Shows per page")
		cmd.Flags().BoolVar(&listForce, "force", false, "Fetch even if the page is fresh")
	}

	rootCmd.AddCommand(trendingCmd, recommendedCmd, listCmd)
}
