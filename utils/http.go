package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"storefront-sampler/internal/types"
)

// HTTPClient fetches pages for the static document backend
type HTTPClient struct {
	client  *http.Client
	config  *types.Config
	logger  types.Logger
	headers map[string]string
}

// NewHTTPClient creates a new HTTP client with the given configuration.
// Requests go through config.Proxy when it is set.
func NewHTTPClient(config *types.Config, logger types.Logger) (*HTTPClient, error) {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if config.Proxy != "" {
		proxyURL, err := url.Parse(config.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", config.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout:   config.NavigationTimeout,
			Transport: transport,
		},
		config:  config,
		logger:  logger,
		headers: map[string]string{},
	}, nil
}

// SetHeaders adds headers sent with every request
func (h *HTTPClient) SetHeaders(headers map[string]string) {
	for k, v := range headers {
		h.headers[k] = v
	}
}

// Get performs a single GET request and returns the body
func (h *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", h.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	h.logger.Debugf("Making request to %s", url)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	h.logger.Debugf("Successfully retrieved %d bytes from %s", len(body), url)
	return body, nil
}

// Close cleans up resources
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}
