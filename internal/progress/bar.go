// Package progress renders a single-line progress bar for report runs.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
)

// DefaultWidth is the line width used when the caller sets none.
const DefaultWidth = 72

// Bar redraws one line on every Advance. It is not safe for concurrent use;
// reports advance it from a single goroutine.
type Bar struct {
	out         io.Writer
	description string
	width       int
	total       int
	current     int
}

// Options configures a Bar.
type Options struct {
	Description string // e.g. "Processing Months"
	Width       int    // total line width in columns
}

// New returns a Bar writing to out.
func New(out io.Writer, opts Options) *Bar {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	return &Bar{out: out, description: opts.Description, width: opts.Width}
}

// ForStderr returns a Bar on stderr, or nil when stderr is not a terminal
// so redirected runs stay free of carriage returns.
func ForStderr(description string) *Bar {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return nil
	}
	return New(os.Stderr, Options{Description: description})
}

// Start resets the bar for total steps and draws it empty.
func (b *Bar) Start(total int) {
	b.total = total
	b.current = 0
	b.draw()
}

// Advance records one finished step.
func (b *Bar) Advance() {
	if b.current < b.total {
		b.current++
	}
	b.draw()
}

// Finish ends the line.
func (b *Bar) Finish() {
	fmt.Fprintln(b.out)
}

func (b *Bar) draw() {
	fmt.Fprintf(b.out, "\r%s", b.Line())
}

// Line renders the current state without the leading carriage return.
func (b *Bar) Line() string {
	counter := fmt.Sprintf(" %d/%d", b.current, b.total)
	desc := b.description
	sep := 0
	if desc != "" {
		sep = 1
	}

	// Keep at least ten cells for the bar itself; the description gives way first.
	barWidth := b.width - runewidth.StringWidth(desc) - sep - runewidth.StringWidth(counter) - 2
	if barWidth < 10 {
		barWidth = 10
		desc = fitToWidth(desc, b.width-barWidth-sep-runewidth.StringWidth(counter)-2)
	}

	label := desc
	if label != "" {
		label += " "
	}

	filled := 0
	if b.total > 0 {
		filled = barWidth * b.current / b.total
	}

	return label + "[" + strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled) + "]" + counter
}

// fitToWidth truncates text to width display columns, ending in "..." when
// cut. Wide runes count as two columns.
func fitToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= width {
		return text
	}

	ellipsis := "..."
	if width <= len(ellipsis) {
		return runewidth.Truncate(text, width, "")
	}
	return runewidth.Truncate(text, width, ellipsis)
}
