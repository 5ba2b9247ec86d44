package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrMaxPagesExceeded is returned when a walk would fetch more pages than
// Config.MaxPages allows.
var ErrMaxPagesExceeded = errors.New("pagination: max pages exceeded")

// Config holds walker configuration
type Config struct {
	// MaxPages caps the number of pages one walk may fetch.
	// 0 means unlimited: a server whose next links form a cycle keeps the
	// walk going until ctx ends.
	MaxPages int
	// ProgressEvery logs progress at Info level every N pages (0 disables)
	ProgressEvery int
}

// DefaultConfig returns an unlimited walker that reports every 50 pages
func DefaultConfig() Config {
	return Config{
		MaxPages:      0,
		ProgressEvery: 50,
	}
}

// PageFetcher fetches the page behind link and returns its items plus the
// link of the following page ("" on the last page).
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, link string) (items []T, next string, err error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc[T any] func(ctx context.Context, link string) ([]T, string, error)

// FetchPage implements PageFetcher.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, link string) ([]T, string, error) {
	return f(ctx, link)
}

// Walker follows next links one page at a time and concatenates the items.
type Walker[T any] struct {
	config Config
	logger zerolog.Logger
}

// NewWalker creates a walker. Negative config values are treated as 0.
func NewWalker[T any](config Config, logger zerolog.Logger) *Walker[T] {
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}
	if config.ProgressEvery < 0 {
		config.ProgressEvery = 0
	}
	return &Walker[T]{config: config, logger: logger}
}

// Walk fetches first and every page reachable through next links, in order.
// The first error aborts the walk and no items are returned.
func (w *Walker[T]) Walk(ctx context.Context, fetcher PageFetcher[T], first string) ([]T, error) {
	start := time.Now()
	logger := w.logger.With().Str("walk_id", uuid.NewString()).Logger()

	var all []T
	link := first
	pages := 0

	for link != "" {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("page %d: %w", pages+1, err)
		}
		if w.config.MaxPages > 0 && pages >= w.config.MaxPages {
			logger.Warn().
				Int("pages", pages).
				Int("max_pages", w.config.MaxPages).
				Str("next", link).
				Msg("Page limit reached with next link pending")
			return nil, fmt.Errorf("%w: limit %d, next link %s", ErrMaxPagesExceeded, w.config.MaxPages, link)
		}

		items, next, err := fetcher.FetchPage(ctx, link)
		if err != nil {
			logger.Debug().Err(err).Int("page", pages+1).Str("url", link).Msg("Page fetch failed")
			return nil, fmt.Errorf("page %d: %w", pages+1, err)
		}

		all = append(all, items...)
		pages++

		logger.Debug().
			Int("page", pages).
			Int("items", len(items)).
			Bool("has_next", next != "").
			Msg("Page fetched")

		if w.config.ProgressEvery > 0 && pages%w.config.ProgressEvery == 0 {
			logger.Info().
				Int("pages", pages).
				Int("items", len(all)).
				Dur("elapsed", time.Since(start)).
				Msg("Walk progress")
		}

		link = next
	}

	logger.Debug().
		Int("pages", pages).
		Int("items", len(all)).
		Dur("duration", time.Since(start)).
		Msg("Walk complete")

	if all == nil {
		all = []T{}
	}
	return all, nil
}
