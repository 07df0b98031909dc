package lastfm

import (
	"time"
)

// UserInfo represents a Last.fm user profile from user.getInfo.
type UserInfo struct {
	Name       string    // Username
	RealName   string    // Display name, may be empty
	URL        string    // Profile URL
	Country    string    // Country, may be empty
	PlayCount  int64     // Lifetime scrobble count
	Registered time.Time // Account registration time (first possible activity)
}

// ChartTrack represents one ranked track of a weekly track chart.
type ChartTrack struct {
	Rank      int    // 1-based rank as reported by Last.fm
	Name      string // Track name
	Artist    string // Artist display name
	PlayCount int    // Plays within the chart period
	MBID      string // MusicBrainz track ID, may be empty
	URL       string // Track URL on Last.fm
}

// WeeklyTrackChart is the response from user.getWeeklyTrackChart.
//
// Tracks keep the order returned by Last.fm (descending play count).
type WeeklyTrackChart struct {
	User   string
	From   time.Time
	To     time.Time
	Tracks []ChartTrack
}
