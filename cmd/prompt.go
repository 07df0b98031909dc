package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// errNoInput is returned when stdin closes before a valid answer arrives.
var errNoInput = errors.New("no input")

// prompter asks questions on out and reads answers line by line from in.
// Invalid choices are re-asked until a valid one arrives or input ends.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// readLine returns the next trimmed line. A final line without a newline
// still counts; only a bare EOF is errNoInput.
func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", errNoInput
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ask prompts once. An empty answer yields def.
func (p *prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}

	answer, err := p.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// askRequired re-asks until the answer is non-empty.
func (p *prompter) askRequired(label, def string) (string, error) {
	for {
		answer, err := p.ask(label, def)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		fmt.Fprintln(p.out, "A value is required.")
	}
}

// choose shows a numbered menu and returns the zero-based index picked.
func (p *prompter) choose(title string, options []string) (int, error) {
	fmt.Fprintln(p.out, title)
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, opt)
	}

	for {
		answer, err := p.ask(fmt.Sprintf("Enter choice (1-%d)", len(options)), "")
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(p.out, "Invalid choice. Please enter a number between 1 and %d.\n", len(options))
	}
}

// askInt re-asks until the answer is an integer in [lo, hi]. hi <= 0 means
// no upper bound.
func (p *prompter) askInt(label string, def, lo, hi int) (int, error) {
	for {
		answer, err := p.ask(label, strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= lo && (hi <= 0 || n <= hi) {
			return n, nil
		}
		if hi > 0 {
			fmt.Fprintf(p.out, "Please enter a number between %d and %d.\n", lo, hi)
		} else {
			fmt.Fprintf(p.out, "Please enter a number of at least %d.\n", lo)
		}
	}
}

// confirm asks a yes/no question defaulting to yes.
func (p *prompter) confirm(label string) (bool, error) {
	fmt.Fprintf(p.out, "%s [Y/n]: ", label)
	answer, err := p.readLine()
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "" || answer == "y" || answer == "yes", nil
}
