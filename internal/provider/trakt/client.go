// Package trakt is the primary metadata provider: show details, seasons
// and episodes, search, trending and recommended lists, and the user's
// watched and followed shows and watch progress.
package trakt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/provider"
	"golang.org/x/oauth2"
)

const (
	// ProviderName identifies trakt in errors, logs and metrics
	ProviderName = "trakt"

	DefaultBaseURL = "https://api.trakt.tv"
	apiVersion     = "2"
	tokenEndpoint  = "/oauth/token"
)

// RefreshFunc hands refreshed credentials to their owner, which passes them
// back through SetAuth.
type RefreshFunc func(ctx context.Context, state domain.AuthState) error

// Client implements domain.ShowProvider, domain.EpisodeProvider,
// domain.ListProvider and domain.TokenSink for trakt
type Client struct {
	baseURL   string
	clientID  string
	requester *provider.Requester
	logger    *slog.Logger

	mu   sync.RWMutex
	auth domain.AuthState

	// token refresh; nil config disables it
	refreshMu sync.Mutex
	oauth     *oauth2.Config
	onRefresh RefreshFunc
}

// NewClient creates a new trakt API client
func NewClient(baseURL, clientID string, ratePerSecond float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		clientID:  clientID,
		requester: provider.NewRequester(ProviderName, ratePerSecond, logger),
		logger:    logger,
	}
}

// Name returns the provider name
func (c *Client) Name() string { return ProviderName }

// SetAuth updates the credentials used for user-scoped requests
func (c *Client) SetAuth(state domain.AuthState) {
	c.mu.Lock()
	c.auth = state
	c.mu.Unlock()
}

// EnableTokenRefresh refreshes expired access tokens with clientSecret.
// New credentials go to onRefresh; when it fails they are applied
// directly so the spent refresh token is not reused.
func (c *Client) EnableTokenRefresh(clientSecret string, onRefresh RefreshFunc) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	c.oauth = &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + tokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	c.onRefresh = onRefresh
}

func (c *Client) currentAuth() domain.AuthState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth
}

// accessToken returns a usable access token, refreshing it first if it has
// expired and refresh is enabled. Refreshes are serialized: trakt revokes a
// refresh token once it has been used.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	auth := c.currentAuth()
	if auth.AccessToken == "" {
		return "", domain.NewPermanent(ProviderName, 0, domain.ErrNotAuthenticated)
	}
	if c.oauth == nil || auth.RefreshToken == "" {
		return auth.AccessToken, nil
	}

	tok, err := c.oauth.TokenSource(ctx, auth.Token()).Token()
	if err != nil {
		return "", c.classifyRefresh(ctx, err)
	}
	if tok.AccessToken == auth.AccessToken {
		return auth.AccessToken, nil
	}

	refreshed := domain.AuthStateFromToken(tok)
	c.logger.Info("access token refreshed", "expiry", refreshed.Expiry)
	if c.onRefresh == nil {
		c.SetAuth(refreshed)
	} else if err := c.onRefresh(ctx, refreshed); err != nil {
		c.logger.Warn("failed to hand over refreshed token", "error", err)
		c.SetAuth(refreshed)
	}
	return refreshed.AccessToken, nil
}

func (c *Client) classifyRefresh(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		status := re.Response.StatusCode
		if provider.Transient(status) {
			return domain.NewTransient(ProviderName, status, err)
		}
		c.logger.Warn("token refresh rejected", "status", status)
		return domain.NewPermanent(ProviderName, status, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err))
	}
	return domain.NewTransient(ProviderName, 0, err)
}

// get performs a GET request, authorized if authorized is set
func (c *Client) get(ctx context.Context, path string, query url.Values, authorized bool, dest any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("trakt-api-version", apiVersion)
	req.Header.Set("trakt-api-key", c.clientID)

	if authorized {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.requester.Do(ctx, req, dest)
}

func fullQuery() url.Values {
	q := url.Values{}
	q.Set("extended", "full")
	return q
}

// GetShow looks a show up by trakt id, or through the id lookup
// endpoints when only a tmdb or imdb id is known
func (c *Client) GetShow(ctx context.Context, hints domain.ShowIDs) (*domain.RemoteShow, error) {
	if hints.TraktID != 0 {
		var show Show
		if err := c.get(ctx, "/shows/"+strconv.Itoa(hints.TraktID), fullQuery(), false, &show); err != nil {
			return nil, err
		}
		remote := MapShow(show)
		return &remote, nil
	}

	var idType, id string
	switch {
	case hints.TmdbID != 0:
		idType, id = "tmdb", strconv.Itoa(hints.TmdbID)
	case hints.ImdbID != "":
		idType, id = "imdb", hints.ImdbID
	default:
		return nil, domain.NewPermanent(ProviderName, 0, domain.ErrNoIdentity)
	}

	q := fullQuery()
	q.Set("type", "show")
	var results []SearchResult
	if err := c.get(ctx, fmt.Sprintf("/search/%s/%s", idType, url.PathEscape(id)), q, false, &results); err != nil {
		return nil, err
	}
	shows := MapSearchResults(results)
	if len(shows) == 0 {
		return nil, domain.NewPermanent(ProviderName, http.StatusNotFound, domain.ErrNotFound)
	}
	return &shows[0], nil
}

// Search returns shows matching query
func (c *Client) Search(ctx context.Context, query string) ([]domain.RemoteShow, error) {
	q := fullQuery()
	q.Set("query", query)
	var results []SearchResult
	if err := c.get(ctx, "/search/show", q, false, &results); err != nil {
		return nil, err
	}
	return MapSearchResults(results), nil
}

// Trending returns one page of trending shows. page is 0-based; trakt
// pages start at 1.
func (c *Client) Trending(ctx context.Context, page, pageSize int) ([]domain.TrendingShow, error) {
	q := fullQuery()
	q.Set("page", strconv.Itoa(page+1))
	q.Set("limit", strconv.Itoa(pageSize))
	var items []TrendingItem
	if err := c.get(ctx, "/shows/trending", q, false, &items); err != nil {
		return nil, err
	}
	return MapTrending(items), nil
}

// Recommended returns one page of shows recommended to the user. page is
// 0-based; trakt pages start at 1.
func (c *Client) Recommended(ctx context.Context, page, pageSize int) ([]domain.RemoteShow, error) {
	q := fullQuery()
	q.Set("page", strconv.Itoa(page+1))
	q.Set("limit", strconv.Itoa(pageSize))
	var items []Show
	if err := c.get(ctx, "/recommendations/shows", q, true, &items); err != nil {
		return nil, err
	}
	shows := make([]domain.RemoteShow, 0, len(items))
	for _, item := range items {
		shows = append(shows, MapShow(item))
	}
	return shows, nil
}

// WatchedShows returns every show the user has watched
func (c *Client) WatchedShows(ctx context.Context) ([]domain.RemoteShow, error) {
	var items []WatchedItem
	if err := c.get(ctx, "/sync/watched/shows", fullQuery(), true, &items); err != nil {
		return nil, err
	}
	shows := make([]domain.RemoteShow, 0, len(items))
	for _, item := range items {
		shows = append(shows, MapShow(item.Show))
	}
	return shows, nil
}

// FollowedShows returns the shows on the user's watchlist
func (c *Client) FollowedShows(ctx context.Context) ([]domain.RemoteShow, error) {
	var items []WatchlistItem
	if err := c.get(ctx, "/sync/watchlist/shows", fullQuery(), true, &items); err != nil {
		return nil, err
	}
	shows := make([]domain.RemoteShow, 0, len(items))
	for _, item := range items {
		if item.Show == nil {
			continue
		}
		shows = append(shows, MapShow(*item.Show))
	}
	return shows, nil
}

// showPath returns the trakt path of a show, resolving its trakt id through
// the lookup endpoints when only another id is known
func (c *Client) showPath(ctx context.Context, hints domain.ShowIDs) (string, error) {
	if hints.TraktID == 0 {
		show, err := c.GetShow(ctx, hints)
		if err != nil {
			return "", err
		}
		hints = show.IDs
	}
	return "/shows/" + strconv.Itoa(hints.TraktID), nil
}

// GetSeasons returns every season of a show with its episodes
func (c *Client) GetSeasons(ctx context.Context, hints domain.ShowIDs) ([]domain.RemoteSeason, error) {
	path, err := c.showPath(ctx, hints)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("extended", "episodes,full")
	var seasons []Season
	if err := c.get(ctx, path+"/seasons", q, false, &seasons); err != nil {
		return nil, err
	}
	return MapSeasons(seasons), nil
}

// GetEpisode returns one episode of a show
func (c *Client) GetEpisode(ctx context.Context, hints domain.ShowIDs, season, number int) (*domain.RemoteEpisode, error) {
	path, err := c.showPath(ctx, hints)
	if err != nil {
		return nil, err
	}
	var ep Episode
	if err := c.get(ctx, fmt.Sprintf("%s/seasons/%d/episodes/%d", path, season, number), fullQuery(), false, &ep); err != nil {
		return nil, err
	}
	remote := MapEpisode(ep)
	return &remote, nil
}

// WatchedProgress returns the episodes of a show the user has watched
func (c *Client) WatchedProgress(ctx context.Context, hints domain.ShowIDs) ([]domain.EpisodeWatch, error) {
	path, err := c.showPath(ctx, hints)
	if err != nil {
		return nil, err
	}
	var progress WatchedProgress
	if err := c.get(ctx, path+"/progress/watched", nil, true, &progress); err != nil {
		return nil, err
	}
	return MapProgress(progress), nil
}
