// Package tmdb is the secondary metadata provider and the source of show
// artwork.
package tmdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/provider"
)

const (
	// ProviderName identifies TMDb in errors, logs and metrics
	ProviderName = "tmdb"

	DefaultBaseURL = "https://api.themoviedb.org/3"

	detailsAppend = "external_ids,images,content_ratings"
)

// Client implements domain.ShowProvider and domain.ImageProvider for TMDb
type Client struct {
	baseURL   string
	apiKey    string
	requester *provider.Requester
	logger    *slog.Logger
}

// NewClient creates a new TMDb API client
func NewClient(baseURL, apiKey string, ratePerSecond float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		requester: provider.NewRequester(ProviderName, ratePerSecond, logger),
		logger:    logger,
	}
}

// Name returns the provider name
func (c *Client) Name() string { return ProviderName }

func (c *Client) get(ctx context.Context, path string, query url.Values, dest any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.requester.Do(ctx, req, dest)
}

// resolveID returns the TMDb id for hints, looking an imdb id up if needed
func (c *Client) resolveID(ctx context.Context, hints domain.ShowIDs) (int, error) {
	if hints.TmdbID != 0 {
		return hints.TmdbID, nil
	}
	if hints.ImdbID == "" {
		return 0, domain.NewPermanent(ProviderName, 0, domain.ErrNoIdentity)
	}

	q := url.Values{}
	q.Set("external_source", "imdb_id")
	var found FindResponse
	if err := c.get(ctx, "/find/"+url.PathEscape(hints.ImdbID), q, &found); err != nil {
		return 0, err
	}
	if len(found.TVResults) == 0 {
		return 0, domain.NewPermanent(ProviderName, http.StatusNotFound, domain.ErrNotFound)
	}
	return found.TVResults[0].ID, nil
}

// GetShow returns full details, including images, for a show
func (c *Client) GetShow(ctx context.Context, hints domain.ShowIDs) (*domain.RemoteShow, error) {
	id, err := c.resolveID(ctx, hints)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("append_to_response", detailsAppend)
	var details TVDetails
	if err := c.get(ctx, "/tv/"+strconv.Itoa(id), q, &details); err != nil {
		return nil, err
	}
	remote := MapDetails(details)
	return &remote, nil
}

// Search returns the first page of shows matching query
func (c *Client) Search(ctx context.Context, query string) ([]domain.RemoteShow, error) {
	q := url.Values{}
	q.Set("query", query)
	var resp SearchResponse
	if err := c.get(ctx, "/search/tv", q, &resp); err != nil {
		return nil, err
	}
	shows := make([]domain.RemoteShow, 0, len(resp.Results))
	for _, r := range resp.Results {
		shows = append(shows, MapResult(r))
	}
	return shows, nil
}

// GetShowImages returns every poster, backdrop and logo of a show
func (c *Client) GetShowImages(ctx context.Context, hints domain.ShowIDs) ([]domain.ShowImage, error) {
	id, err := c.resolveID(ctx, hints)
	if err != nil {
		return nil, err
	}
	var set ImageSet
	if err := c.get(ctx, "/tv/"+strconv.Itoa(id)+"/images", nil, &set); err != nil {
		return nil, err
	}
	return MapImages(set), nil
}
