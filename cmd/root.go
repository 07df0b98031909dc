/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Global flags
var (
	logFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "toptracks",
	Short: "Last.fm top tracks per week, month or year",
	Long: `toptracks builds a report of a Last.fm user's most played tracks for
every week, month or year in a date range.

Periods are numbered from the user's first recorded activity, so "Month 8"
is the eighth calendar month since they started scrobbling. Reports can be
written as Excel workbooks, CSV, Reddit-ready markdown tables, or printed to
the terminal.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func printError(w io.Writer, err error) {
	_, _ = color.New(color.FgRed, color.Bold).Fprint(w, "Error: ")
	_, _ = fmt.Fprintln(w, err)
}

func printSuccess(w io.Writer, format string, args ...interface{}) {
	_, _ = color.New(color.FgGreen).Fprintf(w, "✓ "+format+"\n", args...)
}

// setupLogger configures the logger based on flags. The returned func
// closes the log file, if one was opened.
func setupLogger(logFile, logLevel string) (zerolog.Logger, func() error) {
	// Parse log level
	level := zerolog.WarnLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// Set up output
	var output *os.File
	closeLog := func() error { return nil }
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
			closeLog = f.Close
		}
	} else {
		output = os.Stderr
	}

	// Create logger
	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger, closeLog
}

// apiLogger adapts zerolog to the lastfm client's Logger interface.
type apiLogger struct {
	logger zerolog.Logger
}

func (l apiLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
