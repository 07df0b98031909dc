package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfmyers9/toptracks/internal/config"
	"github.com/jfmyers9/toptracks/internal/period"
	"github.com/jfmyers9/toptracks/internal/report"
	"github.com/jfmyers9/toptracks/pkg/lastfm"
	"github.com/spf13/cobra"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Set up the Last.fm API key and report defaults",
	Long: `Configure toptracks for Last.fm.

This command will guide you through the setup:
1. You'll be prompted to enter your Last.fm API key
2. Optionally, a default username is checked against Last.fm
3. Default period, tracks per period and output format are saved

Settings are written to ~/.config/toptracks/config.yaml.
You can get an API key from: https://www.last.fm/api/account/create`,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	// Load existing config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	if err := promptConfig(cmd.Context(), p, cfg, verifyUser); err != nil {
		return err
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	printSuccess(cmd.OutOrStdout(), "Configuration saved to %s/config.yaml", config.GetConfigDir())
	fmt.Fprintln(cmd.OutOrStdout(), "\nYou can now run 'toptracks report'.")
	return nil
}

// userVerifier checks that user exists using apiKey.
type userVerifier func(ctx context.Context, cfg *config.Config, user string) error

func verifyUser(ctx context.Context, cfg *config.Config, user string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := lastfm.NewClient(lastfm.Config{
		APIKey:  cfg.LastFM.APIKey,
		BaseURL: cfg.LastFM.BaseURL,
		Timeout: cfg.LastFM.Timeout,
	})
	if err != nil {
		return err
	}

	_, err = client.User().GetInfo(ctx, user)
	return err
}

// promptConfig walks through the settings, updating cfg in place.
func promptConfig(ctx context.Context, p *prompter, cfg *config.Config, verify userVerifier) error {
	w := p.out

	fmt.Fprintln(w, "Last.fm Configuration")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "You can get an API key from: https://www.last.fm/api/account/create")
	fmt.Fprintln(w)

	// Check if we already have a key
	if cfg.LastFM.APIKey != "" {
		fmt.Fprintln(w, "Found existing API key.")
		fmt.Fprintf(w, "API Key: %s\n\n", maskKey(cfg.LastFM.APIKey))
		keep, err := p.confirm("Use existing API key?")
		if err != nil {
			return fmt.Errorf("failed to read answer: %w", err)
		}
		if !keep {
			cfg.LastFM.APIKey = ""
		}
	}

	// Prompt for API key if not set
	if cfg.LastFM.APIKey == "" {
		apiKey, err := p.askRequired("Enter your Last.fm API Key", "")
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		cfg.LastFM.APIKey = apiKey
	}

	user, err := p.ask("Default Last.fm username (optional)", cfg.Username)
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	cfg.Username = user

	if user != "" && verify != nil {
		fmt.Fprintln(w, "\nChecking user on Last.fm...")
		if err := verify(ctx, cfg, user); err != nil {
			if errors.Is(err, lastfm.ErrUserNotFound) {
				return fmt.Errorf("user %q not found on Last.fm", user)
			}
			var apiErr *lastfm.Error
			if errors.As(err, &apiErr) && apiErr.Code == lastfm.ErrCodeInvalidAPIKey {
				return fmt.Errorf("the API key was rejected by Last.fm: %w", err)
			}
			return fmt.Errorf("failed to verify user: %w", err)
		}
		fmt.Fprintln(w, "✓ User found")
	}

	fmt.Fprintln(w)
	periodNames := []string{"Weekly", "Monthly", "Yearly"}
	idx, err := p.choose(fmt.Sprintf("Default period (currently %s):", cfg.Period), periodNames)
	if err != nil {
		return fmt.Errorf("failed to read period: %w", err)
	}
	cfg.Period = period.Granularity(idx + 1).String()

	fmt.Fprintln(w)
	def := cfg.Top
	if def < 1 || def > 10 {
		def = 1
	}
	if cfg.Top, err = p.askInt("Default tracks per period (1-10)", def, 1, 10); err != nil {
		return fmt.Errorf("failed to read top: %w", err)
	}

	fmt.Fprintln(w)
	names := make([]string, len(report.Formats))
	for i, f := range report.Formats {
		names[i] = formatLabel(f)
	}
	idx, err = p.choose(fmt.Sprintf("Default output format (currently %s):", cfg.Format), names)
	if err != nil {
		return fmt.Errorf("failed to read format: %w", err)
	}
	cfg.Format = string(report.Formats[idx])

	dir, err := p.ask("Output directory", cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}
	cfg.OutputDir = dir

	return nil
}

// maskKey shows only the last four characters of a key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
