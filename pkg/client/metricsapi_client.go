package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

const metricsAPIBaseURL = "https://api.socialdata.tools"

// MetricsAPIClient is the client for the primary metrics API. Every request
// carries the tenant's API key as a bearer token.
type MetricsAPIClient struct {
	apiKey  string
	baseURL string
	options *Options
}

// NewMetricsAPIClient creates a client for the primary metrics API.
func NewMetricsAPIClient(apiKey string, opts ...Option) (*MetricsAPIClient, error) {
	options, err := NewOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create options: %w", err)
	}

	baseURL := metricsAPIBaseURL
	if options.baseURL != "" {
		baseURL = options.baseURL
	}

	return &MetricsAPIClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		options: options,
	}, nil
}

// HTTPClient exposes the configured http client.
func (c *MetricsAPIClient) HTTPClient() *http.Client {
	return c.options.HttpClient
}

// Get executes an authenticated GET against the metrics API. Non-2xx
// responses are returned as errors with the body included for diagnosis.
func (c *MetricsAPIClient) Get(ctx context.Context, endpoint string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	logrus.Debugf("Metrics API GET: %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GET request: %w", err)
	}
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Add("Accept", "application/json")

	resp, err := c.options.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making GET request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logrus.Debugf("Metrics API returned status %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("unexpected status code %d: %s: %w", resp.StatusCode, string(body), ErrRateLimited)
		}
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
