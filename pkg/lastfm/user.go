package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UserService provides read-only user operations for the Last.fm API.
type UserService struct {
	client *Client
}

// GetInfo fetches profile information for a user.
//
// The Registered field is the earliest instant the user can have listening
// history, which makes it the natural lower bound for chart ranges.
//
// Example:
//
//	info, err := client.User().GetInfo(ctx, "rj")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Scrobbling since", info.Registered.Format("2006-01-02"))
func (s *UserService) GetInfo(ctx context.Context, user string) (*UserInfo, error) {
	if strings.TrimSpace(user) == "" {
		return nil, ErrEmptyUsername
	}

	resp, err := s.client.call(ctx, "user.getInfo", map[string]string{"user": user})
	if err != nil {
		return nil, err
	}

	info, err := unmarshalUserInfo(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse user info response: %w", err)
	}

	return info, nil
}

// GetWeeklyTrackChart fetches the track chart for a user between from and to.
//
// Despite its name the method accepts arbitrary ranges; Last.fm aggregates
// scrobbles between the two instants (second precision). A response without
// any track elements yields an empty Tracks slice, not an error.
//
// Example:
//
//	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local)
//	to := from.AddDate(0, 1, 0).Add(-time.Second)
//	chart, err := client.User().GetWeeklyTrackChart(ctx, "rj", from, to)
func (s *UserService) GetWeeklyTrackChart(ctx context.Context, user string, from, to time.Time) (*WeeklyTrackChart, error) {
	if strings.TrimSpace(user) == "" {
		return nil, ErrEmptyUsername
	}

	params := map[string]string{
		"user": user,
		"from": strconv.FormatInt(from.Unix(), 10),
		"to":   strconv.FormatInt(to.Unix(), 10),
	}

	resp, err := s.client.call(ctx, "user.getWeeklyTrackChart", params)
	if err != nil {
		return nil, err
	}

	chart, err := unmarshalWeeklyTrackChart(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse weekly track chart response: %w", err)
	}

	return chart, nil
}

// userInfoResponse represents the XML response from user.getInfo.
type userInfoResponse struct {
	User struct {
		Name       string `xml:"name"`
		RealName   string `xml:"realname"`
		URL        string `xml:"url"`
		Country    string `xml:"country"`
		PlayCount  string `xml:"playcount"`
		Registered struct {
			Unixtime string `xml:"unixtime,attr"`
			Text     string `xml:",chardata"`
		} `xml:"registered"`
	} `xml:"user"`
}

// unmarshalUserInfo parses the XML response from user.getInfo.
func unmarshalUserInfo(data []byte) (*UserInfo, error) {
	// Wrap inner XML in root element for proper unmarshaling
	wrapped := []byte("<root>" + string(data) + "</root>")

	var resp userInfoResponse
	if err := xml.Unmarshal(wrapped, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user info response: %w", err)
	}

	if resp.User.Name == "" {
		return nil, fmt.Errorf("response has no user element")
	}

	registered, err := parseUnix(resp.User.Registered.Unixtime)
	if err != nil {
		return nil, fmt.Errorf("invalid registered unixtime: %w", err)
	}

	var playCount int64
	if resp.User.PlayCount != "" {
		playCount, err = strconv.ParseInt(strings.TrimSpace(resp.User.PlayCount), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid playcount %q: %w", resp.User.PlayCount, err)
		}
	}

	return &UserInfo{
		Name:       resp.User.Name,
		RealName:   resp.User.RealName,
		URL:        resp.User.URL,
		Country:    resp.User.Country,
		PlayCount:  playCount,
		Registered: registered,
	}, nil
}

// weeklyTrackChartResponse represents the XML response from user.getWeeklyTrackChart.
type weeklyTrackChartResponse struct {
	Chart struct {
		User   string `xml:"user,attr"`
		From   string `xml:"from,attr"`
		To     string `xml:"to,attr"`
		Tracks []struct {
			Rank      string `xml:"rank,attr"`
			Artist    string `xml:"artist"`
			Name      string `xml:"name"`
			MBID      string `xml:"mbid"`
			PlayCount string `xml:"playcount"`
			URL       string `xml:"url"`
		} `xml:"track"`
	} `xml:"weeklytrackchart"`
}

// unmarshalWeeklyTrackChart parses the XML response from user.getWeeklyTrackChart.
func unmarshalWeeklyTrackChart(data []byte) (*WeeklyTrackChart, error) {
	wrapped := []byte("<root>" + string(data) + "</root>")

	var resp weeklyTrackChartResponse
	if err := xml.Unmarshal(wrapped, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weekly track chart response: %w", err)
	}

	chart := &WeeklyTrackChart{
		User:   resp.Chart.User,
		Tracks: make([]ChartTrack, 0, len(resp.Chart.Tracks)),
	}

	// from/to are informational; tolerate their absence.
	if from, err := parseUnix(resp.Chart.From); err == nil {
		chart.From = from
	}
	if to, err := parseUnix(resp.Chart.To); err == nil {
		chart.To = to
	}

	for i, t := range resp.Chart.Tracks {
		playCount, err := strconv.Atoi(strings.TrimSpace(t.PlayCount))
		if err != nil {
			return nil, fmt.Errorf("track %d: invalid playcount %q: %w", i+1, t.PlayCount, err)
		}
		if playCount < 0 {
			return nil, fmt.Errorf("track %d: negative playcount %d", i+1, playCount)
		}

		rank := i + 1
		if r, err := strconv.Atoi(strings.TrimSpace(t.Rank)); err == nil {
			rank = r
		}

		chart.Tracks = append(chart.Tracks, ChartTrack{
			Rank:      rank,
			Name:      t.Name,
			Artist:    t.Artist,
			PlayCount: playCount,
			MBID:      t.MBID,
			URL:       t.URL,
		})
	}

	return chart, nil
}

// parseUnix parses a decimal unix timestamp in seconds.
func parseUnix(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0), nil
}
