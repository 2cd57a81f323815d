package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/showsync/internal/config"
	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/provider/trakt"
	"github.com/mmcdole/showsync/internal/tui"
	"github.com/mmcdole/showsync/internal/tui/styles"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/term"
)

var loginWithToken bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to trakt and sync your shows",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			var auth domain.AuthState
			var err error
			if loginWithToken {
				auth, err = readToken()
			} else {
				auth, err = deviceLogin(ctx, a)
			}
			if err != nil {
				return err
			}

			if err := a.waitLoaded(ctx); err != nil {
				return err
			}
			status, err := a.session.SetAuthState(ctx, auth)
			if err != nil {
				return err
			}
			fmt.Println(tui.StatusBadge(status))

			fmt.Println(styles.DimStyle.Render("Syncing watched and followed shows..."))
			done := make(chan struct{})
			go func() {
				a.session.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			fmt.Println(styles.SuccessStyle.Render("✓ Done"))
			return nil
		})
	},
}

// readToken prompts for an access token without echoing it
func readToken() (domain.AuthState, error) {
	fmt.Print("Access token: ")
	token, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return domain.EmptyAuthState, fmt.Errorf("failed to read token: %w", err)
	}
	accessToken := strings.TrimSpace(string(token))
	if accessToken == "" {
		return domain.EmptyAuthState, errors.New("token cannot be empty")
	}
	return domain.AuthState{AccessToken: accessToken, TokenType: "Bearer"}, nil
}

// deviceLogin runs the device code flow, showing a spinner while waiting
func deviceLogin(ctx context.Context, a *app) (domain.AuthState, error) {
	auth := trakt.NewAuthClient(a.cfg.Trakt.BaseURL, a.cfg.Trakt.ClientID, a.cfg.Trakt.ClientSecret, a.logger)

	code, err := auth.GetDeviceCode(ctx)
	if err != nil {
		return domain.EmptyAuthState, fmt.Errorf("failed to start login: %w", err)
	}

	// Quitting the view stops the polling
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewLoginModel(code.UserCode, code.VerificationURL, func() (*oauth2.Token, error) {
		return auth.WaitForToken(waitCtx, code)
	})
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return domain.EmptyAuthState, fmt.Errorf("login view: %w", err)
	}

	token, err := final.(tui.LoginModel).Result()
	if err != nil {
		return domain.EmptyAuthState, fmt.Errorf("login failed: %w", err)
	}
	return domain.AuthStateFromToken(token), nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the trakt login",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.waitLoaded(ctx); err != nil {
				return err
			}
			status, err := a.session.ClearAuth(ctx)
			if err != nil {
				return err
			}
			fmt.Println(tui.StatusBadge(status))
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show login and library status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.waitLoaded(ctx); err != nil {
				return err
			}
			fmt.Println(styles.TitleStyle.Render("trakt ") + tui.StatusBadge(a.session.Status()))

			auth := a.session.State().Auth()
			if auth.IsAuthorized() && !auth.Expiry.IsZero() {
				fmt.Println(styles.DimStyle.Render("  token expires " + auth.Expiry.Local().Format(time.DateTime)))
			}

			shows, err := a.library.ListShows(ctx)
			if err != nil {
				return err
			}
			stale := 0
			for _, show := range shows {
				if a.library.Shows.IsExpired(show.ID) {
					stale++
				}
			}
			fmt.Println(styles.TitleStyle.Render("library ") + styles.SubtitleStyle.Render(fmt.Sprintf("%d shows, %d stale", len(shows), stale)))
			return nil
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync your watched and followed shows from trakt",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.waitLoaded(ctx); err != nil {
				return err
			}
			if a.session.Status() != domain.LoggedIn {
				return fmt.Errorf("%w: run `showsync login` first", domain.ErrNotAuthenticated)
			}

			watched, err := a.tasks.SyncWatchedShows(ctx)
			if err != nil {
				return err
			}
			followed, err := a.tasks.SyncFollowedShows(ctx)
			if err != nil {
				return err
			}
			for _, r := range []struct {
				name   string
				count  int
				failed int
			}{
				{"watched", watched.Count, watched.Failed},
				{"followed", followed.Count, followed.Failed},
			} {
				line := fmt.Sprintf("%-9s %d shows", r.name, r.count)
				if r.failed > 0 {
					line += styles.ErrorStyle.Render(fmt.Sprintf(", %d failed", r.failed))
				}
				fmt.Println(line)
			}
			return nil
		})
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the provider credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		reader := newPrompter()
		cfg.Trakt.ClientID = reader.ask("trakt client id", cfg.Trakt.ClientID)
		cfg.Trakt.ClientSecret = reader.ask("trakt client secret", cfg.Trakt.ClientSecret)
		cfg.TMDB.APIKey = reader.ask("TMDb api key", cfg.TMDB.APIKey)
		if reader.err != nil {
			return reader.err
		}

		dir := config.DefaultConfigPath()
		if err := config.SaveConfig(cfg, dir); err != nil {
			return err
		}
		fmt.Println(styles.SuccessStyle.Render("✓ Configuration saved to " + dir))
		return nil
	},
}

func init() {
	loginCmd.Flags().BoolVar(&loginWithToken, "token", false, "Paste an access token instead of using the device code flow")

	rootCmd.AddCommand(loginCmd, logoutCmd, statusCmd, syncCmd, initCmd)
}
