package lastfm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestUserService_GetInfo tests the GetInfo method.
func TestUserService_GetInfo(t *testing.T) {
	tests := []struct {
		name           string
		response       string
		statusCode     int
		wantName       string
		wantRegistered int64
		wantPlayCount  int64
		wantErr        bool
		errContains    string
	}{
		{
			name: "success",
			response: `<?xml version="1.0" encoding="utf-8"?>
<lfm status="ok">
	<user>
		<name>rj</name>
		<realname>Richard Jones</realname>
		<url>https://www.last.fm/user/RJ</url>
		<country>United Kingdom</country>
		<playcount>150316</playcount>
		<registered unixtime="1037793040">2002-11-20 11:50</registered>
	</user>
</lfm>`,
			statusCode:     http.StatusOK,
			wantName:       "rj",
			wantRegistered: 1037793040,
			wantPlayCount:  150316,
		},
		{
			name: "user not found",
			response: `<?xml version="1.0" encoding="utf-8"?>
<lfm status="failed">
	<error code="6">User not found</error>
</lfm>`,
			statusCode:  http.StatusNotFound,
			wantErr:     true,
			errContains: "error 6",
		},
		{
			name: "missing registered timestamp",
			response: `<?xml version="1.0" encoding="utf-8"?>
<lfm status="ok">
	<user>
		<name>rj</name>
	</user>
</lfm>`,
			statusCode:  http.StatusOK,
			wantErr:     true,
			errContains: "registered",
		},
		{
			name:        "malformed body",
			response:    `<html>gateway timeout</html`,
			statusCode:  http.StatusOK,
			wantErr:     true,
			errContains: "failed to parse XML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET request, got %s", r.Method)
				}

				q := r.URL.Query()
				if method := q.Get("method"); method != "user.getInfo" {
					t.Errorf("expected method user.getInfo, got %s", method)
				}
				if apiKey := q.Get("api_key"); apiKey != "test-api-key" {
					t.Errorf("expected api_key test-api-key, got %s", apiKey)
				}
				if user := q.Get("user"); user != "rj" {
					t.Errorf("expected user rj, got %s", user)
				}
				if ua := r.Header.Get("User-Agent"); ua != DefaultUserAgent {
					t.Errorf("expected User-Agent %s, got %s", DefaultUserAgent, ua)
				}

				w.WriteHeader(tt.statusCode)
				if _, err := w.Write([]byte(tt.response)); err != nil {
					t.Fatalf("failed to write response body: %v", err)
				}
			}))
			defer server.Close()

			client, err := NewClient(Config{
				APIKey:  "test-api-key",
				BaseURL: server.URL,
			})
			if err != nil {
				t.Fatalf("failed to create client: %v", err)
			}

			info, err := client.User().GetInfo(context.Background(), "rj")

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error to contain %q, got %q", tt.errContains, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if info.Name != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, info.Name)
			}
			if info.Registered.Unix() != tt.wantRegistered {
				t.Errorf("expected registered %d, got %d", tt.wantRegistered, info.Registered.Unix())
			}
			if info.PlayCount != tt.wantPlayCount {
				t.Errorf("expected playcount %d, got %d", tt.wantPlayCount, info.PlayCount)
			}
		})
	}
}

func TestUserService_GetInfo_UserNotFoundIs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<lfm status="failed"><error code="6">User not found</error></lfm>`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = client.User().GetInfo(context.Background(), "nobody")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if IsTemporary(err) {
		t.Error("user not found must not be temporary")
	}
}

func TestUserService_EmptyUsername(t *testing.T) {
	client, err := NewClient(Config{APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.User().GetInfo(context.Background(), "  "); !errors.Is(err, ErrEmptyUsername) {
		t.Errorf("GetInfo: expected ErrEmptyUsername, got %v", err)
	}
	if _, err := client.User().GetWeeklyTrackChart(context.Background(), "", time.Now(), time.Now()); !errors.Is(err, ErrEmptyUsername) {
		t.Errorf("GetWeeklyTrackChart: expected ErrEmptyUsername, got %v", err)
	}
}

// TestUserService_GetWeeklyTrackChart tests the GetWeeklyTrackChart method.
func TestUserService_GetWeeklyTrackChart(t *testing.T) {
	from := time.Unix(1704067200, 0) // 2024-01-01T00:00:00Z
	to := time.Unix(1706745599, 0)   // 2024-01-31T23:59:59Z

	tests := []struct {
		name        string
		response    string
		statusCode  int
		wantTracks  []ChartTrack
		wantErr     bool
		errContains string
		temporary   bool
	}{
		{
			name: "success keeps order",
			response: `<?xml version="1.0" encoding="utf-8"?>
<lfm status="ok">
	<weeklytrackchart user="rj" from="1704067200" to="1706745599">
		<track rank="1">
			<artist mbid="a74b1b7f">The Beatles</artist>
			<name>Yesterday</name>
			<mbid></mbid>
			<playcount>12</playcount>
			<url>https://www.last.fm/music/The+Beatles/_/Yesterday</url>
		</track>
		<track rank="2">
			<artist mbid="">Björk</artist>
			<name>Jóga</name>
			<mbid></mbid>
			<playcount>7</playcount>
			<url>https://www.last.fm/music/Bj%C3%B6rk/_/J%C3%B3ga</url>
		</track>
	</weeklytrackchart>
</lfm>`,
			statusCode: http.StatusOK,
			wantTracks: []ChartTrack{
				{Rank: 1, Name: "Yesterday", Artist: "The Beatles", PlayCount: 12, URL: "https://www.last.fm/music/The+Beatles/_/Yesterday"},
				{Rank: 2, Name: "Jóga", Artist: "Björk", PlayCount: 7, URL: "https://www.last.fm/music/Bj%C3%B6rk/_/J%C3%B3ga"},
			},
		},
		{
			name: "no track elements is empty, not an error",
			response: `<?xml version="1.0" encoding="utf-8"?>
<lfm status="ok">
	<weeklytrackchart user="rj" from="1704067200" to="1706745599"></weeklytrackchart>
</lfm>`,
			statusCode: http.StatusOK,
			wantTracks: []ChartTrack{},
		},
		{
			name: "invalid playcount",
			response: `<lfm status="ok"><weeklytrackchart user="rj">
	<track rank="1"><artist>A</artist><name>B</name><playcount>lots</playcount></track>
</weeklytrackchart></lfm>`,
			statusCode:  http.StatusOK,
			wantErr:     true,
			errContains: "invalid playcount",
		},
		{
			name: "temporary api error",
			response: `<?xml version="1.0" encoding="utf-8"?>
<lfm status="failed">
	<error code="11">Service Offline</error>
</lfm>`,
			statusCode:  http.StatusOK,
			wantErr:     true,
			errContains: "error 11",
			temporary:   true,
		},
		{
			name:        "server error",
			response:    "Service Unavailable",
			statusCode:  http.StatusServiceUnavailable,
			wantErr:     true,
			errContains: "503",
			temporary:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts++

				q := r.URL.Query()
				if method := q.Get("method"); method != "user.getWeeklyTrackChart" {
					t.Errorf("expected method user.getWeeklyTrackChart, got %s", method)
				}
				if got := q.Get("from"); got != "1704067200" {
					t.Errorf("expected from 1704067200, got %s", got)
				}
				if got := q.Get("to"); got != "1706745599" {
					t.Errorf("expected to 1706745599, got %s", got)
				}

				w.WriteHeader(tt.statusCode)
				if _, err := w.Write([]byte(tt.response)); err != nil {
					t.Fatalf("failed to write response body: %v", err)
				}
			}))
			defer server.Close()

			client, err := NewClient(Config{
				APIKey:  "test-api-key",
				BaseURL: server.URL,
			})
			if err != nil {
				t.Fatalf("failed to create client: %v", err)
			}

			chart, err := client.User().GetWeeklyTrackChart(context.Background(), "rj", from, to)

			if attempts != 1 {
				t.Errorf("expected exactly 1 request, got %d", attempts)
			}

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error to contain %q, got %q", tt.errContains, err.Error())
				}
				if IsTemporary(err) != tt.temporary {
					t.Errorf("expected IsTemporary=%v for %v", tt.temporary, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(chart.Tracks) != len(tt.wantTracks) {
				t.Fatalf("expected %d tracks, got %d", len(tt.wantTracks), len(chart.Tracks))
			}
			for i, want := range tt.wantTracks {
				if chart.Tracks[i] != want {
					t.Errorf("track %d: expected %+v, got %+v", i, want, chart.Tracks[i])
				}
			}
			if !chart.From.Equal(from) || !chart.To.Equal(to) {
				t.Errorf("expected range %v..%v, got %v..%v", from, to, chart.From, chart.To)
			}
		})
	}
}

// TestUserService_GetWeeklyTrackChart_ContextCancellation tests context cancellation.
func TestUserService_GetWeeklyTrackChart_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Simulate slow response
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<lfm status="ok"><weeklytrackchart user="rj"></weeklytrackchart></lfm>`))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIKey:  "test-api-key",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = client.User().GetWeeklyTrackChart(ctx, "rj", time.Unix(0, 0), time.Unix(60, 0))
	if err == nil {
		t.Fatal("expected context deadline error, got nil")
	}

	if !strings.Contains(err.Error(), "context deadline exceeded") {
		t.Errorf("expected context deadline error, got %v", err)
	}
}

// ExampleUserService_GetWeeklyTrackChart demonstrates fetching a monthly chart.
func ExampleUserService_GetWeeklyTrackChart() {
	client, err := NewClient(Config{
		APIKey: "your-api-key",
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	from := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 1, 0).Add(-time.Second)

	chart, err := client.User().GetWeeklyTrackChart(ctx, "rj", from, to)
	if err != nil {
		log.Fatal(err)
	}

	for _, t := range chart.Tracks {
		fmt.Printf("%d. %s - %s (%d plays)\n", t.Rank, t.Artist, t.Name, t.PlayCount)
	}
}
