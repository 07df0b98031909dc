package lastfm

import (
	"fmt"
	"net/http"
	"time"
)

// Config holds client configuration.
type Config struct {
	APIKey     string       // Required: Last.fm API key
	HTTPClient *http.Client // Optional: HTTP client (defaults to a client with Timeout)
	Timeout    time.Duration
	BaseURL    string // Optional: Base URL for API (defaults to Last.fm API, used for testing)
	UserAgent  string // Optional: User-Agent header (defaults to DefaultUserAgent)
	Logger     Logger // Optional: Logger interface for debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client is the main entry point for Last.fm API operations.
//
// A Client is safe to share across calls; it holds no per-request state.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     Logger

	user *UserService
}

const (
	// DefaultBaseURL is the default Last.fm API endpoint.
	DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "toptracks/1.0"

	// DefaultTimeout applies when neither HTTPClient nor Timeout is set.
	DefaultTimeout = 30 * time.Second
)

// NewClient creates a new Last.fm API client.
//
// Returns an error if the API key is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: APIKey is required", ErrInvalidConfig)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	c := &Client{
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  userAgent,
		logger:     cfg.Logger,
	}

	c.user = &UserService{client: c}

	return c, nil
}

// User returns the user service.
func (c *Client) User() *UserService {
	return c.user
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
