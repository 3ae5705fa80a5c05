// Package geocoder is a client for Nominatim-compatible forward and reverse
// geocoding services.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"urbanconnect-be/webclient"
)

var (
	// ErrUnavailable wraps every failure that is the provider's fault:
	// transport errors, timeouts, 5xx and undecodable responses.
	ErrUnavailable = errors.New("geocoder: service unavailable")
	// ErrNotFound is returned by Reverse when the provider has no address
	// for the coordinates.
	ErrNotFound = errors.New("geocoder: no result")
)

// Place is one forward-geocoding candidate.
type Place struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

type Client struct {
	baseURL    string
	userAgent  string
	http       *http.Client
	attempts   int
	retryDelay time.Duration
}

// NewClient returns a client for the service at baseURL. Nominatim's usage
// policy requires an identifying User-Agent.
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		http:       webclient.NewDefault(timeout),
		attempts:   2,
		retryDelay: 500 * time.Millisecond,
	}
}

// Search returns the candidates for a free-text query, best match first.
// An empty slice means the provider found nothing.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	body, err := c.get(ctx, "/search", params)
	if err != nil {
		return nil, err
	}
	var places []Place
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", ErrUnavailable, err)
	}
	return places, nil
}

// Reverse returns the display address for a coordinate pair.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("format", "json")

	body, err := c.get(ctx, "/reverse", params)
	if err != nil {
		return "", err
	}
	var out struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode reverse response: %v", ErrUnavailable, err)
	}
	if out.Error != "" || out.DisplayName == "" {
		return "", ErrNotFound
	}
	return out.DisplayName, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path + "?" + params.Encode()
	status, body, err := webclient.DoWithRetry(ctx, c.attempts, c.retryDelay, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		return webclient.Do(c.http, req)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUnavailable, path, status)
	}
	return body, nil
}
