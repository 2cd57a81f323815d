// Package provider holds the HTTP plumbing shared by the remote metadata
// providers: rate limiting, failure classification and request metrics.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "showsync/1.0"

	// Bodies of failed responses are only logged; cap what we read.
	maxErrorBody = 4 << 10
)

// Requester performs JSON requests against one provider.
type Requester struct {
	name       string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewRequester creates a requester allowing ratePerSecond requests per
// second (with an equal burst). A non-positive rate disables limiting.
func NewRequester(name string, ratePerSecond float64, logger *slog.Logger) *Requester {
	if logger == nil {
		logger = slog.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerSecond > 0 {
		burst := max(int(ratePerSecond), 1)
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
	return &Requester{
		name: name,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: limiter,
		logger:  logger,
	}
}

// Name returns the provider name.
func (r *Requester) Name() string { return r.name }

// Do sends req and decodes a 2xx JSON body into dest (which may be nil).
// Failures are returned as *domain.RemoteError classified as transient or
// permanent; context errors are returned as they are.
func (r *Requester) Do(ctx context.Context, req *http.Request, dest any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return domain.NewTransient(r.name, 0, fmt.Errorf("rate limiter: %w", err))
	}

	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	r.logger.Debug("provider request", "provider", r.name, "method", req.Method, "url", redact(req))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		err = r.classifyTransport(ctx, err)
		r.record(err)
		return err
	}
	defer resp.Body.Close()

	if err := r.checkStatus(resp); err != nil {
		r.record(err)
		return err
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			err = domain.NewPermanent(r.name, resp.StatusCode, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err))
			r.record(err)
			return err
		}
	}

	r.record(nil)
	return nil
}

func (r *Requester) classifyTransport(ctx context.Context, err error) error {
	// Caller cancellation and deadlines are left for the retry layer to judge.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	// Client timeouts, resets and refused connections are all worth another try.
	return domain.NewTransient(r.name, 0, err)
}

func (r *Requester) checkStatus(resp *http.Response) error {
	status := resp.StatusCode
	if status >= 200 && status < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	r.logger.Warn("provider request error", "provider", r.name, "status", status, "body", string(body))

	switch {
	case status == http.StatusNotFound:
		return domain.NewPermanent(r.name, status, domain.ErrNotFound)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.NewPermanent(r.name, status, domain.ErrUnauthorized)
	case Transient(status):
		return domain.NewTransient(r.name, status, fmt.Errorf("unexpected status code: %d", status))
	default:
		return domain.NewPermanent(r.name, status, fmt.Errorf("unexpected status code: %d", status))
	}
}

// Transient reports whether an HTTP status is worth retrying.
func Transient(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}

func (r *Requester) record(err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case domain.IsTransient(err), errors.Is(err, context.DeadlineExceeded):
		outcome = metrics.OutcomeTransient
	default:
		outcome = metrics.OutcomePermanent
	}
	metrics.ProviderRequestsTotal.WithLabelValues(r.name, outcome).Inc()
}

// redact drops the query string, which may carry api keys.
func redact(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}
