// Package report drives the bucket-by-bucket pipeline and serialises its
// rows into xlsx, csv, reddit-markdown or terminal tables.
package report

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jfmyers9/toptracks/internal/chart"
	"github.com/jfmyers9/toptracks/internal/period"
	"github.com/rs/zerolog"
)

// NoData fills the track columns of a bucket without entries.
const NoData = "No Data"

// Row is one output line.
type Row struct {
	Number int // 1-based, continuous across the whole report
	Bucket period.Bucket
	Entry  *chart.Entry // nil for a "No Data" placeholder
}

// Cells renders the row in column order for g. Weekly rows carry start and
// end columns, the others a single period column.
func (r Row) Cells() []string {
	cells := []string{strconv.Itoa(r.Number), strconv.Itoa(r.Bucket.Ordinal)}
	if r.Bucket.Granularity == period.Weekly {
		cells = append(cells, r.Bucket.Label.Start, r.Bucket.Label.End)
	} else {
		cells = append(cells, r.Bucket.Label.Period)
	}

	if r.Entry == nil {
		return append(cells, NoData, NoData, NoData)
	}
	return append(cells, r.Entry.Track, r.Entry.Artist, strconv.Itoa(r.Entry.PlayCount))
}

// Values is Cells with numbers kept numeric, for writers that type cells.
func (r Row) Values() []any {
	values := []any{r.Number, r.Bucket.Ordinal}
	if r.Bucket.Granularity == period.Weekly {
		values = append(values, r.Bucket.Label.Start, r.Bucket.Label.End)
	} else {
		values = append(values, r.Bucket.Label.Period)
	}

	if r.Entry == nil {
		return append(values, NoData, NoData, NoData)
	}
	return append(values, r.Entry.Track, r.Entry.Artist, r.Entry.PlayCount)
}

// Header returns the column titles for g.
func Header(g period.Granularity) []string {
	header := []string{"No", g.Unit() + " Num"}
	if g == period.Weekly {
		header = append(header, "Start", "End")
	} else {
		header = append(header, "Period")
	}
	return append(header, "Track Name", "Artist", "Play Count")
}

// Writer consumes the rows of one report in order.
type Writer interface {
	WriteHeader(header []string) error
	WriteRow(row Row) error
	// Close flushes buffered output. It is called once, after the last row.
	Close() error
}

// Fetcher resolves the entries of one bucket. It must not fail; an empty
// slice produces a placeholder row.
type Fetcher interface {
	Fetch(ctx context.Context, b period.Bucket, user string) []chart.Entry
}

// Progress receives one Advance per processed bucket.
type Progress interface {
	Start(total int)
	Advance()
	Finish()
}

// Request describes one report run. Start, End and Reference must already
// be validated and clamped.
type Request struct {
	User        string
	Granularity period.Granularity
	Start       time.Time
	End         time.Time
	Reference   time.Time // First recorded activity, ordinal 1
	Top         int       // Entries per bucket, at least 1
}

// Validate checks the request before any bucket is processed.
func (r Request) Validate() error {
	if r.User == "" {
		return fmt.Errorf("user is required")
	}
	if !r.Granularity.Valid() {
		return fmt.Errorf("invalid period %v", r.Granularity)
	}
	if r.Top < 1 {
		return fmt.Errorf("top must be at least 1, got %d", r.Top)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("end %s is before start %s",
			r.End.Format(period.DayLayout), r.Start.Format(period.DayLayout))
	}
	return nil
}

// Summary describes a finished run.
type Summary struct {
	Buckets      int
	Rows         int
	EmptyBuckets int
}

// Runner composes the sequencer, the fetcher and a writer.
type Runner struct {
	fetcher  Fetcher
	progress Progress
	logger   zerolog.Logger
}

// NewRunner creates a Runner. progress may be nil.
func NewRunner(fetcher Fetcher, progress Progress, logger zerolog.Logger) *Runner {
	return &Runner{
		fetcher:  fetcher,
		progress: progress,
		logger:   logger.With().Str("component", "report").Logger(),
	}
}

// Run processes the buckets of req strictly in order, one fetch at a time,
// and writes their rows to w. A bucket without entries yields one
// placeholder row; fetch failures never end the run. Only writer errors
// abort, since they leave the output unusable.
func (r *Runner) Run(ctx context.Context, req Request, w Writer) (Summary, error) {
	var sum Summary

	if err := req.Validate(); err != nil {
		return sum, err
	}

	if err := w.WriteHeader(Header(req.Granularity)); err != nil {
		return sum, fmt.Errorf("failed to write header: %w", err)
	}

	if r.progress != nil {
		r.progress.Start(period.Count(req.Start, req.End, req.Granularity))
		defer r.progress.Finish()
	}

	r.logger.Info().
		Str("user", req.User).
		Str("period", req.Granularity.String()).
		Time("start", req.Start).
		Time("end", req.End).
		Int("top", req.Top).
		Msg("Generating report")

	rowNumber := 1
	for b := range period.Sequence(req.Start, req.End, req.Granularity, req.Reference) {
		entries := r.fetcher.Fetch(ctx, b, req.User)
		sum.Buckets++

		if len(entries) == 0 {
			sum.EmptyBuckets++
			if err := w.WriteRow(Row{Number: rowNumber, Bucket: b}); err != nil {
				return sum, fmt.Errorf("failed to write row %d: %w", rowNumber, err)
			}
			rowNumber++
		}

		for i := 0; i < len(entries) && i < req.Top; i++ {
			if err := w.WriteRow(Row{Number: rowNumber, Bucket: b, Entry: &entries[i]}); err != nil {
				return sum, fmt.Errorf("failed to write row %d: %w", rowNumber, err)
			}
			rowNumber++
		}

		r.logger.Debug().
			Stringer("bucket", b).
			Int("entries", len(entries)).
			Msg("Bucket resolved")

		if r.progress != nil {
			r.progress.Advance()
		}
	}
	sum.Rows = rowNumber - 1

	if err := w.Close(); err != nil {
		return sum, fmt.Errorf("failed to finish output: %w", err)
	}

	r.logger.Info().
		Int("buckets", sum.Buckets).
		Int("rows", sum.Rows).
		Int("empty_buckets", sum.EmptyBuckets).
		Msg("Report complete")

	return sum, nil
}
