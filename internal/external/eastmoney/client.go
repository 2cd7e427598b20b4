package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/qlab/tickscan/pkg/httputil"
	"github.com/qlab/tickscan/pkg/logger"
)

// Client handles communication with the EastMoney push gateway and the
// hot-rank service. All EastMoney calls go through this client.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger

	baseURL        string // push gateway, quotes and trade details
	hotRankBaseURL string // app ranking service
	hotRankPageURL string // HTML ranking board, scrape fallback
}

// NewClient creates a new EastMoney data client.
func NewClient(httpClient *httputil.Client, baseURL, hotRankBaseURL, hotRankPageURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		logger:         log,
		baseURL:        baseURL,
		hotRankBaseURL: hotRankBaseURL,
		hotRankPageURL: hotRankPageURL,
	}
}

// Name identifies the provider in logs and priority lists.
func (c *Client) Name() string {
	return "eastmoney"
}

// getJSON fetches a URL and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, fullURL string, params url.Values, out interface{}) error {
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// postJSON sends a JSON body and decodes the JSON response into out.
func (c *Client) postJSON(ctx context.Context, fullURL string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("failed to create POST request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// getHTML fetches a URL and returns the raw body for scraping.
func (c *Client) getHTML(ctx context.Context, fullURL string) (io.ReadCloser, error) {
	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp.Body, nil
}
