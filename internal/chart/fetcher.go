// Package chart resolves the top tracks of a reporting bucket.
package chart

import (
	"context"
	"time"

	"github.com/jfmyers9/toptracks/internal/period"
	"github.com/jfmyers9/toptracks/pkg/lastfm"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Retry defaults.
const (
	// DefaultMaxRetries is the number of attempts allowed after the first.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the fixed pause between attempts.
	DefaultRetryDelay = 2 * time.Second
)

// Entry is one ranked track of a bucket.
type Entry struct {
	Track     string
	Artist    string
	PlayCount int
}

// Source returns the chart of a user between two instants. An empty slice
// with a nil error means the source answered with no tracks.
type Source interface {
	TopTracks(ctx context.Context, user string, from, to time.Time) ([]Entry, error)
}

// Cache stores resolved charts of completed buckets.
type Cache interface {
	Get(ctx context.Context, user string, from, to time.Time) ([]Entry, bool, error)
	Put(ctx context.Context, user string, from, to time.Time, entries []Entry) error
}

// Config holds fetcher configuration.
type Config struct {
	MaxRetries int           // Attempts after the first (default 3; negative disables retries)
	RetryDelay time.Duration // Pause between attempts (default 2s)
	RateLimit  float64       // Requests per second, 0 disables limiting
	Cache      Cache         // Optional cache of completed buckets
}

// Fetcher turns an unreliable chart source into a final per-bucket result.
type Fetcher struct {
	source     Source
	maxRetries int
	retryDelay time.Duration
	limiter    *rate.Limiter
	cache      Cache
	logger     zerolog.Logger

	// Overridable in tests.
	sleep func(ctx context.Context, d time.Duration) bool
	now   func() time.Time
}

// NewFetcher creates a Fetcher reading from source.
func NewFetcher(source Source, cfg Config, logger zerolog.Logger) *Fetcher {
	maxRetries := cfg.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = DefaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}

	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}

	f := &Fetcher{
		source:     source,
		maxRetries: maxRetries,
		retryDelay: delay,
		cache:      cfg.Cache,
		logger:     logger.With().Str("component", "fetcher").Logger(),
		sleep:      sleep,
		now:        time.Now,
	}
	if cfg.RateLimit > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return f
}

// Fetch returns the chart entries of b for user.
//
// Fetch never fails: an empty result or an error from the source consumes
// one attempt from a shared budget of 1+MaxRetries, with a fixed delay in
// between. When the budget runs out the last attempt's result is returned,
// which is empty for both a genuinely silent period and a failing source.
// Only the failing case is logged.
func (f *Fetcher) Fetch(ctx context.Context, b period.Bucket, user string) []Entry {
	if entries, ok := f.cached(ctx, b, user); ok {
		return entries
	}

	var (
		entries []Entry
		err     error
	)

	for attempt := 0; ; attempt++ {
		entries, err = f.attempt(ctx, b, user)
		if err == nil && len(entries) > 0 {
			f.store(ctx, b, user, entries)
			return entries
		}

		if attempt >= f.maxRetries {
			break
		}

		f.logger.Debug().
			Err(err).
			Bool("temporary", lastfm.IsTemporary(err)).
			Int("attempt", attempt+1).
			Int("max_attempts", f.maxRetries+1).
			Stringer("bucket", b).
			Msg("Empty or failed chart, retrying")

		if !f.sleep(ctx, f.retryDelay) {
			err = ctx.Err()
			break
		}
	}

	if err != nil {
		f.logger.Error().
			Err(err).
			Time("from", b.Start).
			Time("to", b.End).
			Int("ordinal", b.Ordinal).
			Msg("Failed to fetch chart for period")
		return []Entry{}
	}

	if entries == nil {
		entries = []Entry{}
	}
	return entries
}

// attempt makes one upstream call, waiting on the rate limiter first.
func (f *Fetcher) attempt(ctx context.Context, b period.Bucket, user string) ([]Entry, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return f.source.TopTracks(ctx, user, b.Start, b.End)
}

func (f *Fetcher) cached(ctx context.Context, b period.Bucket, user string) ([]Entry, bool) {
	if f.cache == nil {
		return nil, false
	}

	entries, ok, err := f.cache.Get(ctx, user, b.Start, b.End)
	if err != nil {
		f.logger.Warn().Err(err).Stringer("bucket", b).Msg("Chart cache read failed")
		return nil, false
	}
	if ok {
		f.logger.Debug().Stringer("bucket", b).Int("entries", len(entries)).Msg("Chart cache hit")
	}
	return entries, ok
}

// store caches entries of buckets that have fully elapsed; a bucket that
// is still open can gain scrobbles.
func (f *Fetcher) store(ctx context.Context, b period.Bucket, user string, entries []Entry) {
	if f.cache == nil || !b.End.Before(f.now()) {
		return
	}
	if err := f.cache.Put(ctx, user, b.Start, b.End, entries); err != nil {
		f.logger.Warn().Err(err).Stringer("bucket", b).Msg("Chart cache write failed")
	}
}

// sleep waits for the specified duration or until context is cancelled.
// Returns true if sleep completed, false if context was cancelled.
func sleep(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
