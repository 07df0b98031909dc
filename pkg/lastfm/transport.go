package lastfm

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
)

// Base represents the root XML response from Last.fm API.
type Base struct {
	XMLName xml.Name `xml:"lfm"`
	Status  string   `xml:"status,attr"`
	Inner   []byte   `xml:",innerxml"`
}

// APIError represents an error response from the Last.fm API.
type APIError struct {
	Code    int    `xml:"code,attr"`
	Message string `xml:",chardata"`
}

const (
	apiStatusOK     = "ok"
	apiStatusFailed = "failed"
)

// call makes a single unsigned GET request to the Last.fm API and returns
// the inner XML of the <lfm> envelope.
//
// call never retries. Callers that want retries own the policy, so a single
// logical request never multiplies into hidden upstream calls.
func (c *Client) call(ctx context.Context, method string, params map[string]string) ([]byte, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("method", method)
	query.Set("api_key", c.apiKey)

	reqURL := c.baseURL + "?" + query.Encode()

	c.logDebugf("lastfm: calling %s", method)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	// Last.fm reports API errors with 4xx codes and an XML body, so parse
	// before rejecting non-200 responses.
	var base Base
	if err := xml.Unmarshal(body, &base); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("failed to parse XML response: %w", err)
	}

	if base.Status == apiStatusFailed {
		var apiErr APIError
		if err := xml.Unmarshal(base.Inner, &apiErr); err != nil {
			return nil, fmt.Errorf("failed to parse error response: %w", err)
		}
		return nil, &Error{Code: apiErr.Code, Message: apiErr.Message}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	if base.Status != apiStatusOK {
		return nil, fmt.Errorf("unexpected response status %q", base.Status)
	}

	c.logDebugf("lastfm: %s succeeded", method)
	return base.Inner, nil
}

// StatusError is returned when Last.fm answers with an unexpected HTTP status
// and no parseable API error.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lastfm: unexpected status code: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether the status indicates a server-side condition.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsNetworkError reports whether err was caused by the network rather than
// by a response from Last.fm.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
