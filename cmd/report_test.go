package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/jfmyers9/toptracks/internal/config"
	"github.com/jfmyers9/toptracks/internal/daterange"
	"github.com/jfmyers9/toptracks/internal/period"
	"github.com/jfmyers9/toptracks/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOptions() reportOptions {
	return reportOptions{
		user:      "rj",
		period:    "monthly",
		top:       1,
		rangeMode: "all",
		format:    "csv",
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := &config.Config{
		Username:  "fromconfig",
		Period:    "yearly",
		Top:       3,
		Format:    "reddit",
		OutputDir: "/tmp/reports",
		WeekStart: "monday",
	}

	got := reportOptions{}.withDefaults(cfg)
	assert.Equal(t, "fromconfig", got.user)
	assert.Equal(t, "yearly", got.period)
	assert.Equal(t, 3, got.top)
	assert.Equal(t, "reddit", got.format)
	assert.Equal(t, "/tmp/reports", got.outputDir)
	assert.Equal(t, "monday", got.weekStart)

	got = reportOptions{user: "flag", top: 7, format: "table"}.withDefaults(cfg)
	assert.Equal(t, "flag", got.user, "flags win over config")
	assert.Equal(t, 7, got.top)
	assert.Equal(t, "table", got.format)
}

func TestParseReportOptions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*reportOptions)
		wantErr string
	}{
		{name: "valid", mutate: func(*reportOptions) {}},
		{name: "missing user", mutate: func(o *reportOptions) { o.user = " " }, wantErr: "username is required"},
		{name: "bad period", mutate: func(o *reportOptions) { o.period = "daily" }, wantErr: "unknown period"},
		{name: "zero top", mutate: func(o *reportOptions) { o.top = 0 }, wantErr: "--top must be at least 1"},
		{name: "bad format", mutate: func(o *reportOptions) { o.format = "pdf" }, wantErr: "unknown format"},
		{name: "bad range", mutate: func(o *reportOptions) { o.rangeMode = "forever" }, wantErr: "unknown range"},
		{name: "last without count", mutate: func(o *reportOptions) { o.rangeMode = "last" }, wantErr: "--last must be at least 1"},
		{name: "custom without dates", mutate: func(o *reportOptions) { o.rangeMode = "custom"; o.from = "01-2024" }, wantErr: "MM-YYYY"},
		{name: "bad weekday", mutate: func(o *reportOptions) { o.weekStart = "someday" }, wantErr: "unknown weekday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOptions()
			tt.mutate(&o)

			plan, err := parseReportOptions(o)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, period.Monthly, plan.granularity)
				assert.Equal(t, report.FormatCSV, plan.format)
				assert.Equal(t, daterange.All, plan.mode)
				assert.Nil(t, plan.weekStart)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPlanRequest(t *testing.T) {
	registered := time.Date(2024, 1, 3, 15, 30, 0, 0, time.UTC) // a Wednesday
	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)

	t.Run("all time monthly starts at ordinal 1", func(t *testing.T) {
		o := validOptions()
		plan, err := parseReportOptions(o)
		require.NoError(t, err)

		req, err := plan.request(o, registered, now)
		require.NoError(t, err)

		assert.Equal(t, "rj", req.User)
		assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), req.Start)
		assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), req.End)

		buckets := period.Buckets(req.Start, req.End, req.Granularity, req.Reference)
		require.Len(t, buckets, 2)
		assert.Equal(t, 1, buckets[0].Ordinal)
		assert.Equal(t, 2, buckets[1].Ordinal)
	})

	t.Run("weekly without alignment starts on registration day", func(t *testing.T) {
		o := validOptions()
		o.period = "weekly"
		plan, err := parseReportOptions(o)
		require.NoError(t, err)

		req, err := plan.request(o, registered, now)
		require.NoError(t, err)

		b := period.Buckets(req.Start, req.End, req.Granularity, req.Reference)[0]
		assert.Equal(t, 1, b.Ordinal)
		assert.Equal(t, "2024-01-03", b.Label.Start)
		assert.Equal(t, "2024-01-09", b.Label.End)
	})

	t.Run("weekly aligned to monday", func(t *testing.T) {
		o := validOptions()
		o.period = "weekly"
		o.weekStart = "monday"
		o.rangeMode = "custom"
		o.from = "17-01-2024" // a Wednesday
		o.to = "31-01-2024"
		plan, err := parseReportOptions(o)
		require.NoError(t, err)

		req, err := plan.request(o, registered, now)
		require.NoError(t, err)

		assert.Equal(t, time.Monday, req.Start.Weekday())
		assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), req.Start)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), req.Reference)

		buckets := period.Buckets(req.Start, req.End, req.Granularity, req.Reference)
		require.Len(t, buckets, 3)
		assert.Equal(t, 3, buckets[0].Ordinal)
		assert.Equal(t, 5, buckets[2].Ordinal)
	})

	t.Run("range errors surface", func(t *testing.T) {
		o := validOptions()
		o.rangeMode = "custom"
		o.from = "05-2024"
		o.to = "06-2024"
		plan, err := parseReportOptions(o)
		require.NoError(t, err)

		_, err = plan.request(o, registered, now)
		assert.ErrorIs(t, err, daterange.ErrEndBeforeStart)
	})
}

func TestPromptReport(t *testing.T) {
	t.Run("last N months to reddit", func(t *testing.T) {
		input := strings.Join([]string{
			"rj",  // username
			"5",   // invalid period
			"2",   // monthly
			"3",   // top
			"1",   // from today
			"12",  // months
			"3",   // reddit
		}, "\n") + "\n"
		p, out := testPrompter(input)

		o := reportOptions{top: 1}
		require.NoError(t, promptReport(p, &o))

		assert.Equal(t, "rj", o.user)
		assert.Equal(t, "monthly", o.period)
		assert.Equal(t, 3, o.top)
		assert.Equal(t, "last", o.rangeMode)
		assert.Equal(t, 12, o.last)
		assert.Equal(t, "reddit", o.format)
		assert.Contains(t, out.String(), "last N months")
		assert.Contains(t, out.String(), "Invalid choice.")

		_, err := parseReportOptions(o)
		assert.NoError(t, err)
	})

	t.Run("custom weekly keeps configured user", func(t *testing.T) {
		input := strings.Join([]string{
			"",           // keep default user
			"1",          // weekly
			"",           // default top
			"3",          // custom
			"01-01-2024", // start
			"31-01-2024", // end
			"4",          // table
		}, "\n") + "\n"
		p, out := testPrompter(input)

		o := reportOptions{user: "configured", top: 2}
		require.NoError(t, promptReport(p, &o))

		assert.Equal(t, "configured", o.user)
		assert.Equal(t, "weekly", o.period)
		assert.Equal(t, 2, o.top)
		assert.Equal(t, "custom", o.rangeMode)
		assert.Equal(t, "01-01-2024", o.from)
		assert.Equal(t, "31-01-2024", o.to)
		assert.Equal(t, "table", o.format)
		assert.Contains(t, out.String(), "(DD-MM-YYYY)")
	})

	t.Run("input ends early", func(t *testing.T) {
		p, _ := testPrompter("rj\n2\n")
		o := reportOptions{}
		assert.ErrorIs(t, promptReport(p, &o), errNoInput)
	})
}

func TestPluralUnit(t *testing.T) {
	assert.Equal(t, "week", pluralUnit(period.Weekly, 1))
	assert.Equal(t, "months", pluralUnit(period.Monthly, 0))
	assert.Equal(t, "years", pluralUnit(period.Yearly, 3))
}
