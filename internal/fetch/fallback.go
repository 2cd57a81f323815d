// Package fetch fetches an entity from a primary provider, falling back to a
// secondary one.
package fetch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mmcdole/showsync/internal/metrics"
	"github.com/mmcdole/showsync/internal/retry"
)

// Source is one provider's way of fetching T given the local record L.
type Source[L, T any] struct {
	Name  string
	Fetch func(ctx context.Context, local L) (T, error)
}

// Fallback tries the primary source and, on any failure, the secondary.
// Each source is retried on its own under the retry policy.
type Fallback[L, T any] struct {
	entity    string
	primary   Source[L, T]
	secondary *Source[L, T]
	policy    retry.Policy
	logger    *slog.Logger
}

// NewFallback creates a fetcher for entity. secondary may be nil.
func NewFallback[L, T any](entity string, primary Source[L, T], secondary *Source[L, T], policy retry.Policy, logger *slog.Logger) *Fallback[L, T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback[L, T]{
		entity:    entity,
		primary:   primary,
		secondary: secondary,
		policy:    policy,
		logger:    logger,
	}
}

// Fetch returns the first successful result. When every source fails, the
// primary's error is returned, whatever the secondary reported.
func (f *Fallback[L, T]) Fetch(ctx context.Context, local L) (T, error) {
	v, primaryErr := f.call(ctx, f.primary, local)
	if primaryErr == nil {
		return v, nil
	}
	if f.secondary == nil || errors.Is(primaryErr, context.Canceled) {
		return v, primaryErr
	}

	f.logger.Warn("primary provider failed, trying secondary",
		"entity", f.entity, "primary", f.primary.Name, "secondary", f.secondary.Name, "error", primaryErr)

	v, secondaryErr := f.call(ctx, *f.secondary, local)
	if secondaryErr == nil {
		metrics.FallbackTotal.WithLabelValues(f.entity, metrics.OutcomeSuccess).Inc()
		return v, nil
	}

	metrics.FallbackTotal.WithLabelValues(f.entity, "failed").Inc()
	f.logger.Error("all providers failed",
		"entity", f.entity, "primaryError", primaryErr, "secondaryError", secondaryErr)
	var zero T
	return zero, primaryErr
}

func (f *Fallback[L, T]) call(ctx context.Context, src Source[L, T], local L) (T, error) {
	return retry.Do(ctx, f.policy, f.entity+"/"+src.Name, f.logger, func(ctx context.Context) (T, error) {
		return src.Fetch(ctx, local)
	})
}
