package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/showsync/internal/config"
	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/library"
	"github.com/mmcdole/showsync/internal/logging"
	"github.com/mmcdole/showsync/internal/provider/tmdb"
	"github.com/mmcdole/showsync/internal/provider/trakt"
	"github.com/mmcdole/showsync/internal/session"
	"github.com/mmcdole/showsync/internal/store"
	"github.com/mmcdole/showsync/internal/tasks"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// app holds every wired component for one command run
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	logFile io.Closer

	store   *store.LibraryStore
	trakt   *trakt.Client
	tmdb    *tmdb.Client
	library *library.Service
	tasks   *tasks.ShowTasks
	session *session.Manager
	metrics *http.Server
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, logFile, err := logging.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger, logFile = logging.NullLogger(), io.NopCloser(nil)
	}
	slog.SetDefault(logger)
	logger.Info("starting showsync", "version", Version)

	st, err := store.Open(cfg.Storage.Path, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		logFile: logFile,
		store:   st,
		trakt:   trakt.NewClient(cfg.Trakt.BaseURL, cfg.Trakt.ClientID, cfg.Trakt.RateLimit, logger),
		tmdb:    tmdb.NewClient(cfg.TMDB.BaseURL, cfg.TMDB.APIKey, cfg.TMDB.RateLimit, logger),
	}

	policy := cfg.Sync.Retry.Policy()
	a.library = library.NewService(st, library.Providers{
		Primary:   a.trakt,
		Secondary: a.tmdb,
		Images:    a.tmdb,
		Episodes:  a.trakt,
		Lists:     a.trakt,
	}, library.Options{
		ShowWindow:        cfg.Sync.ShowWindow,
		ImageWindow:       cfg.Sync.ImageWindow,
		SeasonsWindow:     cfg.Sync.SeasonsWindow,
		EpisodeWindow:     cfg.Sync.EpisodeWindow,
		TrendingWindow:    cfg.Sync.TrendingWindow,
		RecommendedWindow: cfg.Sync.RecommendedWindow,
		Retry:             policy,
	}, logger)
	a.tasks = tasks.NewShowTasks(a.trakt, a.library, policy, logger)

	a.session = session.NewManager(st.Auth(), []domain.TokenSink{a.trakt}, []session.Task{
		{Name: "sync-watched-shows", Run: func(ctx context.Context) error {
			_, err := a.tasks.SyncWatchedShows(ctx)
			return err
		}},
		{Name: "update-up-next", Run: func(ctx context.Context) error {
			_, err := a.tasks.UpdateUpNextEpisodes(ctx, false)
			return err
		}},
	}, logger)
	// Refreshed tokens are applied through the session.
	a.trakt.EnableTokenRefresh(cfg.Trakt.ClientSecret, func(ctx context.Context, state domain.AuthState) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := a.session.UpdateToken(ctx, state)
		return err
	})
	a.session.Start()

	addr := metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		a.serveMetrics(addr)
	}

	return a, nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info("serving metrics", "addr", addr)
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
}

// waitLoaded blocks until the persisted login has been applied
func (a *app) waitLoaded(ctx context.Context) error {
	select {
	case <-a.session.Loaded():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *app) Close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metrics.Shutdown(ctx)
		cancel()
	}
	a.session.Close()
	a.library.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close library", "error", err)
	}
	a.logger.Info("shutting down")
	a.logFile.Close()
}

// withApp runs fn with a wired app, closing it afterwards
func withApp(fn func(ctx context.Context, a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()
	return fn(ctx, a)
}
