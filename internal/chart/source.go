package chart

import (
	"context"
	"fmt"
	"time"

	"github.com/jfmyers9/toptracks/pkg/lastfm"
)

// LastFMSource reads charts from user.getWeeklyTrackChart.
type LastFMSource struct {
	client *lastfm.Client
}

// NewLastFMSource wraps a Last.fm client. The client, and with it the HTTP
// connection pool, is shared by every call of a run.
func NewLastFMSource(client *lastfm.Client) *LastFMSource {
	return &LastFMSource{client: client}
}

// TopTracks implements Source.
func (s *LastFMSource) TopTracks(ctx context.Context, user string, from, to time.Time) ([]Entry, error) {
	chart, err := s.client.User().GetWeeklyTrackChart(ctx, user, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get track chart: %w", err)
	}

	entries := make([]Entry, len(chart.Tracks))
	for i, t := range chart.Tracks {
		entries[i] = Entry{
			Track:     t.Name,
			Artist:    t.Artist,
			PlayCount: t.PlayCount,
		}
	}
	return entries, nil
}
