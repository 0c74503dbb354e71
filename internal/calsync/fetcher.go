package calsync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/JohanCodinha/tuido/internal/logger"
)

// Fetcher reads remote events from every calendar of a Client.
type Fetcher struct {
	client Client
	retry  Retry
	log    zerolog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(client Client, retry Retry) *Fetcher {
	return &Fetcher{client: client, retry: retry, log: logger.Component("calsync")}
}

// Fetch returns a Change for every event inside [start, end] across all
// calendars. Zero calendars yield an empty slice.
func (f *Fetcher) Fetch(ctx context.Context, start, end time.Time) ([]Change, error) {
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidWindow, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	calendars, err := withRetry(ctx, f.retry, f.log, "calendars", f.client.Calendars)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	changes := []Change{}
	for _, cal := range calendars {
		events, err := withRetry(ctx, f.retry, f.log, "search", func(ctx context.Context) ([]Event, error) {
			return cal.Search(ctx, start, end)
		})
		if err != nil {
			return nil, fmt.Errorf("fetch calendar %q: %w", cal.Name(), err)
		}

		for _, ev := range events {
			changes = append(changes, changeFromEvent(cal.Name(), ev))
		}

		f.log.Debug().Str("calendar", cal.Name()).Int("count", len(events)).Msg("fetched events")
	}

	return changes, nil
}
