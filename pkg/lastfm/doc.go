// Package lastfm provides a client library for the Last.fm API 2.0.
//
// # Overview
//
// This package implements the read-only part of the Last.fm API needed to
// build listening reports: user profiles and per-period track charts. It
// provides a small, type-safe API with context support and structured errors.
//
// # Quick Start
//
// Create a client with your API key:
//
//	import "github.com/jfmyers9/toptracks/pkg/lastfm"
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey: "your-api-key",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Charts
//
// Look up when a user started scrobbling, then request a chart for any range:
//
//	info, err := client.User().GetInfo(ctx, "rj")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	chart, err := client.User().GetWeeklyTrackChart(ctx, "rj", info.Registered, time.Now())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, t := range chart.Tracks {
//	    fmt.Printf("%d. %s - %s (%d)\n", t.Rank, t.Artist, t.Name, t.PlayCount)
//	}
//
// # Error Handling
//
// Every method makes exactly one HTTP request; nothing is retried inside the
// package. IsTemporary classifies errors for callers that implement their
// own retry policy:
//
//	chart, err := client.User().GetWeeklyTrackChart(ctx, user, from, to)
//	if err != nil {
//	    var lastfmErr *lastfm.Error
//	    if errors.As(err, &lastfmErr) && lastfmErr.Code == lastfm.ErrCodeInvalidAPIKey {
//	        // Configuration problem, repeating will not help
//	    }
//	    if lastfm.IsTemporary(err) {
//	        // Retry the request
//	    }
//	}
//
// # Configuration
//
// The client can be configured with custom HTTP clients, base URLs (for testing),
// and optional loggers:
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey:     "your-api-key",
//	    HTTPClient: &http.Client{Timeout: 30 * time.Second},
//	    Logger:     myLogger, // Implements lastfm.Logger interface
//	})
//
// # API Coverage
//
// Currently implemented:
//   - Users (user.getInfo, user.getWeeklyTrackChart)
//
// # Last.fm API Documentation
//
// For more information about the Last.fm API:
// https://www.last.fm/api/show/user.getWeeklyTrackChart
package lastfm
