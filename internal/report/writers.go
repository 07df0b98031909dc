package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jfmyers9/toptracks/internal/period"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/xuri/excelize/v2"
)

// Format is an output format.
type Format string

const (
	FormatXLSX   Format = "xlsx"
	FormatCSV    Format = "csv"
	FormatReddit Format = "reddit"
	FormatTable  Format = "table"
)

// Formats lists the supported formats in menu order.
var Formats = []Format{FormatXLSX, FormatCSV, FormatReddit, FormatTable}

// ParseFormat accepts format names and the menu numbers 1-4.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xlsx", "excel", "1":
		return FormatXLSX, nil
	case "csv", "2":
		return FormatCSV, nil
	case "reddit", "markdown", "md", "3":
		return FormatReddit, nil
	case "table", "stdout", "4":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q (want xlsx, csv, reddit or table)", s)
	}
}

// Extension returns the file extension, or "" for formats that print.
func (f Format) Extension() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatCSV:
		return "csv"
	case FormatReddit:
		return "txt"
	default:
		return ""
	}
}

// FileName builds <user>_<period>_<start>_to_<end>_top_tracks_<stamp>.<ext>.
func FileName(user string, g period.Granularity, start, end, now time.Time, f Format) string {
	return fmt.Sprintf("%s_%s_%s_to_%s_top_tracks_%s.%s",
		user, g, start.Format(period.DayLayout), end.Format(period.DayLayout),
		now.Format("20060102_150405"), f.Extension())
}

// Open creates a writer of format f. File formats write to a new file in
// dir and report its path; the table format writes to stdout and returns
// an empty path.
func Open(f Format, g period.Granularity, dir, name string, stdout io.Writer) (Writer, string, error) {
	if f == FormatTable {
		return NewTableWriter(stdout), "", nil
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	path := filepath.Join(dir, name)

	switch f {
	case FormatXLSX:
		w, err := NewXLSXWriter(path, g)
		return w, path, err
	case FormatCSV, FormatReddit:
		file, err := os.Create(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create output file: %w", err)
		}
		if f == FormatCSV {
			return NewCSVWriter(file), path, nil
		}
		return NewRedditWriter(file, g), path, nil
	default:
		return nil, "", fmt.Errorf("unsupported format %q", f)
	}
}

// CSVWriter writes comma-separated rows.
type CSVWriter struct {
	out io.Writer
	w   *csv.Writer
}

// NewCSVWriter writes to out. If out is an io.Closer it is closed by Close.
func NewCSVWriter(out io.Writer) *CSVWriter {
	return &CSVWriter{out: out, w: csv.NewWriter(out)}
}

func (c *CSVWriter) WriteHeader(header []string) error {
	return c.w.Write(header)
}

func (c *CSVWriter) WriteRow(row Row) error {
	return c.w.Write(row.Cells())
}

func (c *CSVWriter) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if closer, ok := c.out.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// RedditWriter writes a pipe-separated table that Reddit renders as
// markdown: header, alignment row, then one line per row.
type RedditWriter struct {
	out io.Writer
	g   period.Granularity
}

// NewRedditWriter writes to out. If out is an io.Closer it is closed by Close.
func NewRedditWriter(out io.Writer, g period.Granularity) *RedditWriter {
	return &RedditWriter{out: out, g: g}
}

// Alignment rows: centred numbers and dates, left text, right play count.
const (
	weeklyAlignment = ":--:|:--:|:--:|:--:|:--|:--|--:"
	periodAlignment = ":--:|:--:|:--:|:--|--|--:"
)

func (r *RedditWriter) WriteHeader(header []string) error {
	alignment := periodAlignment
	if r.g == period.Weekly {
		alignment = weeklyAlignment
	}
	_, err := fmt.Fprintf(r.out, "%s\n%s\n", strings.Join(header, "|"), alignment)
	return err
}

func (r *RedditWriter) WriteRow(row Row) error {
	cells := row.Cells()
	for i, c := range cells {
		cells[i] = escapePipes(c)
	}
	_, err := fmt.Fprintln(r.out, strings.Join(cells, "|"))
	return err
}

func (r *RedditWriter) Close() error {
	if closer, ok := r.out.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// escapePipes keeps a literal "|" in a track name from splitting the cell.
func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// XLSXWriter streams rows into a single-sheet workbook saved on Close.
type XLSXWriter struct {
	path   string
	file   *excelize.File
	stream *excelize.StreamWriter
	row    int
}

// SheetName returns the worksheet title, e.g. "Monthly Top Tracks".
func SheetName(g period.Granularity) string {
	name := g.String()
	return strings.ToUpper(name[:1]) + name[1:] + " Top Tracks"
}

// NewXLSXWriter prepares a workbook that will be saved to path.
func NewXLSXWriter(path string, g period.Granularity) (*XLSXWriter, error) {
	f := excelize.NewFile()

	sheet := SheetName(g)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name worksheet: %w", err)
	}

	stream, err := f.NewStreamWriter(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to open worksheet stream: %w", err)
	}

	return &XLSXWriter{path: path, file: f, stream: stream}, nil
}

func (x *XLSXWriter) WriteHeader(header []string) error {
	values := make([]any, len(header))
	for i, h := range header {
		values[i] = h
	}
	return x.append(values)
}

func (x *XLSXWriter) WriteRow(row Row) error {
	return x.append(row.Values())
}

func (x *XLSXWriter) append(values []any) error {
	x.row++
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	return x.stream.SetRow(cell, values)
}

// Close flushes the sheet and saves the workbook.
func (x *XLSXWriter) Close() error {
	defer func() { _ = x.file.Close() }()

	if err := x.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush worksheet: %w", err)
	}
	if err := x.file.SaveAs(x.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// TableWriter buffers rows and renders an aligned table on Close.
type TableWriter struct {
	out    io.Writer
	header []string
	rows   [][]string
}

// NewTableWriter renders to out.
func NewTableWriter(out io.Writer) *TableWriter {
	return &TableWriter{out: out}
}

func (t *TableWriter) WriteHeader(header []string) error {
	t.header = header
	return nil
}

func (t *TableWriter) WriteRow(row Row) error {
	t.rows = append(t.rows, row.Cells())
	return nil
}

func (t *TableWriter) Close() error {
	table := tablewriter.NewTable(t.out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
	)

	table.Header(t.header)
	if err := table.Bulk(t.rows); err != nil {
		return fmt.Errorf("failed to add table rows: %w", err)
	}
	return table.Render()
}
