package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jfmyers9/toptracks/internal/chart"
	"github.com/jfmyers9/toptracks/internal/config"
	"github.com/jfmyers9/toptracks/internal/daterange"
	"github.com/jfmyers9/toptracks/internal/period"
	"github.com/jfmyers9/toptracks/internal/progress"
	"github.com/jfmyers9/toptracks/internal/report"
	"github.com/jfmyers9/toptracks/internal/store"
	"github.com/jfmyers9/toptracks/pkg/lastfm"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// reportOptions holds the report flags. Empty values fall back to config.
type reportOptions struct {
	user        string
	period      string
	top         int
	rangeMode   string
	last        int
	from        string
	to          string
	format      string
	outputDir   string
	weekStart   string
	noCache     bool
	interactive bool
}

var reportOpts reportOptions

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a top tracks report",
	Long: `Generate a report of a user's most played tracks per week, month or year.

Each period is fetched from Last.fm's weekly track chart. Failed or empty
requests are retried up to three times, two seconds apart; a period that
still has no tracks is reported as "No Data".

Range modes:
  last    the last N periods ending today (--last N)
  all     from the user's registration to today
  custom  --from and --to as DD-MM-YYYY (weekly), MM-YYYY (monthly),
          YYYY (yearly) or YYYY-MM-DD

Examples:
  toptracks report --user rj --period monthly --range last --last 12
  toptracks report --user rj --period yearly --range all --format reddit
  toptracks report --user rj --period weekly --range custom \
      --from 01-01-2024 --to 31-03-2024 --week-start monday --top 3
  toptracks report --interactive`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	f := reportCmd.Flags()
	f.StringVarP(&reportOpts.user, "user", "u", "", "Last.fm username (default from config)")
	f.StringVarP(&reportOpts.period, "period", "p", "", "Period: weekly, monthly or yearly (default from config)")
	f.IntVarP(&reportOpts.top, "top", "n", 0, "Tracks per period (default from config)")
	f.StringVarP(&reportOpts.rangeMode, "range", "r", "all", "Range mode: last, all or custom")
	f.IntVar(&reportOpts.last, "last", 0, "Number of periods for --range last")
	f.StringVar(&reportOpts.from, "from", "", "Start date for --range custom")
	f.StringVar(&reportOpts.to, "to", "", "End date for --range custom")
	f.StringVarP(&reportOpts.format, "format", "f", "", "Output: xlsx, csv, reddit or table (default from config)")
	f.StringVarP(&reportOpts.outputDir, "output-dir", "o", "", "Directory for report files (default from config)")
	f.StringVar(&reportOpts.weekStart, "week-start", "", "Align weekly periods to this weekday, e.g. monday")
	f.BoolVar(&reportOpts.noCache, "no-cache", false, "Bypass the chart cache")
	f.BoolVarP(&reportOpts.interactive, "interactive", "i", false, "Prompt for every option")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	opts := reportOpts.withDefaults(cfg)

	if opts.interactive || (opts.user == "" && isatty.IsTerminal(os.Stdin.Fd())) {
		p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err := promptReport(p, &opts); err != nil {
			return fmt.Errorf("failed to read answers: %w", err)
		}
	}

	plan, err := parseReportOptions(opts)
	if err != nil {
		return err
	}
	cfg.Top = opts.top
	if err := cfg.Validate(); err != nil {
		return err
	}

	loc, _ := cfg.Location()
	logger, closeLog := setupLogger(logFile, logLevel)
	defer func() { _ = closeLog() }()

	client, err := lastfm.NewClient(lastfm.Config{
		APIKey:  cfg.LastFM.APIKey,
		BaseURL: cfg.LastFM.BaseURL,
		Timeout: cfg.LastFM.Timeout,
		Logger:  apiLogger{logger: logger.With().Str("component", "lastfm").Logger()},
	})
	if err != nil {
		return fmt.Errorf("failed to create Last.fm client: %w", err)
	}

	info, err := client.User().GetInfo(ctx, opts.user)
	if err != nil {
		if errors.Is(err, lastfm.ErrUserNotFound) {
			return fmt.Errorf("user %q not found on Last.fm", opts.user)
		}
		return fmt.Errorf("failed to look up user %q: %w", opts.user, err)
	}
	if info.Registered.IsZero() {
		return fmt.Errorf("user %q has no registration date", opts.user)
	}

	req, err := plan.request(opts, info.Registered, time.Now().In(loc))
	if err != nil {
		return err
	}

	fetchCfg := chart.Config{
		MaxRetries: cfg.Retry.MaxRetries,
		RetryDelay: cfg.Retry.Delay,
		RateLimit:  cfg.RateLimit,
	}
	// A configured zero means no retries; the fetcher reads zero as default.
	if fetchCfg.MaxRetries == 0 {
		fetchCfg.MaxRetries = -1
	}

	if cfg.Cache.Enabled && !opts.noCache {
		cache, err := store.NewCache(cfg.Cache.Path)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.Cache.Path).Msg("Chart cache unavailable, continuing without it")
		} else {
			defer func() { _ = cache.Close() }()
			fetchCfg.Cache = cache
		}
	}

	fetcher := chart.NewFetcher(chart.NewLastFMSource(client), fetchCfg, logger)

	var bar report.Progress
	if b := progress.ForStderr("Processing " + plan.granularity.Unit() + "s"); b != nil {
		bar = b
	}

	name := report.FileName(opts.user, plan.granularity, req.Start, req.End, time.Now().In(loc), plan.format)
	w, path, err := report.Open(plan.format, plan.granularity, opts.outputDir, name, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	sum, err := report.NewRunner(fetcher, bar, logger).Run(ctx, req, w)
	if err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	if path != "" {
		printSuccess(out, "Report saved to %s", path)
	}
	if sum.EmptyBuckets > 0 {
		fmt.Fprintf(out, "%d of %d %s had no data\n", sum.EmptyBuckets, sum.Buckets, pluralUnit(plan.granularity, sum.Buckets))
	}

	return nil
}

// withDefaults fills unset flags from config.
func (o reportOptions) withDefaults(cfg *config.Config) reportOptions {
	if o.user == "" {
		o.user = cfg.Username
	}
	if o.period == "" {
		o.period = cfg.Period
	}
	if o.top == 0 {
		o.top = cfg.Top
	}
	if o.format == "" {
		o.format = cfg.Format
	}
	if o.outputDir == "" {
		o.outputDir = cfg.OutputDir
	}
	if o.weekStart == "" {
		o.weekStart = cfg.WeekStart
	}
	return o
}

// reportPlan is the parsed, network-independent part of a report.
type reportPlan struct {
	granularity period.Granularity
	format      report.Format
	mode        daterange.Mode
	weekStart   *time.Weekday
}

// parseReportOptions validates everything that can be checked before any
// request is sent.
func parseReportOptions(o reportOptions) (reportPlan, error) {
	var plan reportPlan

	if strings.TrimSpace(o.user) == "" {
		return plan, errors.New("a Last.fm username is required (--user or 'username' in config)")
	}

	g, err := period.ParseGranularity(o.period)
	if err != nil {
		return plan, err
	}
	plan.granularity = g

	if o.top < 1 {
		return plan, fmt.Errorf("--top must be at least 1, got %d", o.top)
	}

	format, err := report.ParseFormat(o.format)
	if err != nil {
		return plan, err
	}
	plan.format = format

	mode, err := daterange.ParseMode(o.rangeMode)
	if err != nil {
		return plan, err
	}
	plan.mode = mode

	switch mode {
	case daterange.Last:
		if o.last < 1 {
			return plan, fmt.Errorf("--last must be at least 1 with --range last")
		}
	case daterange.Custom:
		if o.from == "" || o.to == "" {
			return plan, fmt.Errorf("--from and --to are required with --range custom (format %s)", daterange.Hint(g))
		}
	}

	if o.weekStart != "" {
		wd, err := period.ParseWeekday(o.weekStart)
		if err != nil {
			return plan, err
		}
		plan.weekStart = &wd
	}

	return plan, nil
}

// request resolves the range against the user's registration and builds the
// pipeline input.
func (p reportPlan) request(o reportOptions, registered, now time.Time) (report.Request, error) {
	rng, err := daterange.Resolve(daterange.Options{
		Mode:        p.mode,
		Granularity: p.granularity,
		Count:       o.last,
		From:        o.from,
		To:          o.to,
	}, registered, now)
	if err != nil {
		return report.Request{}, err
	}

	// Ordinals count from the registration day so the first bucket of an
	// all-time report is always 1.
	reg := registered.In(now.Location())
	reference := time.Date(reg.Year(), reg.Month(), reg.Day(), 0, 0, 0, 0, now.Location())

	start := rng.Start
	if p.granularity == period.Weekly && p.weekStart != nil {
		start = period.AlignToWeekday(start, *p.weekStart)
		reference = period.AlignToWeekday(reference, *p.weekStart)
	}

	return report.Request{
		User:        o.user,
		Granularity: p.granularity,
		Start:       start,
		End:         rng.End,
		Reference:   reference,
		Top:         o.top,
	}, nil
}

func pluralUnit(g period.Granularity, n int) string {
	unit := strings.ToLower(g.Unit())
	if n == 1 {
		return unit
	}
	return unit + "s"
}

// promptReport asks for every report option in menu order.
func promptReport(p *prompter, o *reportOptions) error {
	w := p.out

	user, err := p.askRequired("Enter Last.fm username", o.user)
	if err != nil {
		return err
	}
	o.user = user

	fmt.Fprintln(w)
	idx, err := p.choose("Select period:", []string{"Weekly", "Monthly", "Yearly"})
	if err != nil {
		return err
	}
	g := period.Granularity(idx + 1)
	o.period = g.String()

	fmt.Fprintln(w)
	def := o.top
	if def < 1 || def > 10 {
		def = 1
	}
	if o.top, err = p.askInt("How many top tracks per period? (1-10)", def, 1, 10); err != nil {
		return err
	}

	fmt.Fprintln(w)
	idx, err = p.choose("Select date range:", []string{
		fmt.Sprintf("From today (last N %ss)", strings.ToLower(g.Unit())),
		"All time",
		"Custom range",
	})
	if err != nil {
		return err
	}

	switch idx {
	case 0:
		o.rangeMode = string(daterange.Last)
		label := fmt.Sprintf("Enter number of %s", pluralUnit(g, 2))
		if o.last, err = p.askInt(label, max(o.last, 1), 1, 0); err != nil {
			return err
		}
	case 1:
		o.rangeMode = string(daterange.All)
	case 2:
		o.rangeMode = string(daterange.Custom)
		if o.from, err = p.askRequired(fmt.Sprintf("Enter start date (%s)", daterange.Hint(g)), ""); err != nil {
			return err
		}
		if o.to, err = p.askRequired(fmt.Sprintf("Enter end date (%s)", daterange.Hint(g)), ""); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	names := make([]string, len(report.Formats))
	for i, f := range report.Formats {
		names[i] = formatLabel(f)
	}
	idx, err = p.choose("Select output format:", names)
	if err != nil {
		return err
	}
	o.format = string(report.Formats[idx])

	return nil
}

func formatLabel(f report.Format) string {
	switch f {
	case report.FormatXLSX:
		return "Excel (xlsx)"
	case report.FormatCSV:
		return "CSV"
	case report.FormatReddit:
		return "Reddit table"
	case report.FormatTable:
		return "Print to terminal"
	default:
		return string(f)
	}
}

