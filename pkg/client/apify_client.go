package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

const apifyBaseURL = "https://api.apify.com/v2"

// Actor run terminal states, per the Apify run lifecycle.
const (
	runStatusSucceeded = "SUCCEEDED"
	runStatusFailed    = "FAILED"
	runStatusAborted   = "ABORTED"
	runStatusTimedOut  = "TIMED-OUT"
)

// runPollCeiling caps the wall-clock time spent waiting for an actor run.
const runPollCeiling = 60 * time.Second

// ApifyClient talks to the Apify actor platform: it starts actor runs, polls
// them to completion and pages through the run's default dataset.
type ApifyClient struct {
	apiToken string
	baseURL  string
	options  *Options
}

// ActorRunResponse represents the response from running or inspecting an actor run.
type ActorRunResponse struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetId string `json:"defaultDatasetId"`
	} `json:"data"`
}

// NewApifyClient creates a new Apify client with functional options.
func NewApifyClient(apiToken string, opts ...Option) (*ApifyClient, error) {
	options, err := NewOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create options: %w", err)
	}

	baseURL := apifyBaseURL
	if options.baseURL != "" {
		baseURL = options.baseURL
	}

	return &ApifyClient{
		apiToken: apiToken,
		baseURL:  baseURL,
		options:  options,
	}, nil
}

// HTTPClient exposes the configured http client.
func (c *ApifyClient) HTTPClient() *http.Client {
	return c.options.HttpClient
}

// RunActor starts an actor run with the given input.
func (c *ApifyClient) RunActor(ctx context.Context, actorID string, input any) (*ActorRunResponse, error) {
	url := fmt.Sprintf("%s/acts/%s/runs?token=%s", c.baseURL, actorID, c.apiToken)
	logrus.Debugf("Running Apify actor %s", actorID)

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("error marshaling actor input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(inputJSON))
	if err != nil {
		return nil, fmt.Errorf("error creating POST request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")

	body, err := c.do(req, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	var runResp ActorRunResponse
	if err := json.Unmarshal(body, &runResp); err != nil {
		return nil, fmt.Errorf("error parsing run response: %w", err)
	}

	logrus.Debugf("Actor run started with ID: %s", runResp.Data.ID)
	return &runResp, nil
}

// GetActorRun gets the status of an actor run.
func (c *ApifyClient) GetActorRun(ctx context.Context, runID string) (*ActorRunResponse, error) {
	url := fmt.Sprintf("%s/actor-runs/%s?token=%s", c.baseURL, runID, c.apiToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GET request: %w", err)
	}

	body, err := c.do(req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var runResp ActorRunResponse
	if err := json.Unmarshal(body, &runResp); err != nil {
		return nil, fmt.Errorf("error parsing run response: %w", err)
	}

	return &runResp, nil
}

// GetDatasetItems gets items from a dataset with pagination. Apify returns a
// bare array of items for this endpoint.
func (c *ApifyClient) GetDatasetItems(ctx context.Context, datasetID string, offset, limit int) ([]json.RawMessage, error) {
	url := fmt.Sprintf("%s/datasets/%s/items?token=%s&offset=%d&limit=%d",
		c.baseURL, datasetID, c.apiToken, offset, limit)
	logrus.Debugf("Getting dataset items: %s (offset: %d, limit: %d)", datasetID, offset, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GET request: %w", err)
	}

	body, err := c.do(req, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("error parsing dataset response: %w", err)
	}

	logrus.Debugf("Retrieved %d items from dataset", len(items))
	return items, nil
}

// RunActorAndWait starts an actor run and polls it until it reaches a
// terminal state, then returns the items of its default dataset. The poll
// loop is capped at runPollCeiling of wall-clock time.
func (c *ApifyClient) RunActorAndWait(ctx context.Context, actorID string, input any, limit int) ([]json.RawMessage, error) {
	run, err := c.RunActor(ctx, actorID, input)
	if err != nil {
		return nil, err
	}

	runID := run.Data.ID
	datasetID := run.Data.DefaultDatasetId

	poll := func() error {
		current, err := c.GetActorRun(ctx, runID)
		if err != nil {
			return backoff.Permanent(err)
		}
		switch current.Data.Status {
		case runStatusSucceeded:
			if current.Data.DefaultDatasetId != "" {
				datasetID = current.Data.DefaultDatasetId
			}
			return nil
		case runStatusFailed, runStatusAborted, runStatusTimedOut:
			return backoff.Permanent(fmt.Errorf("actor run %s ended with status %s", runID, current.Data.Status))
		default:
			return fmt.Errorf("actor run %s still %s", runID, current.Data.Status)
		}
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(2*time.Second), ctx)
	deadline := time.Now().Add(runPollCeiling)

	if err := backoff.Retry(func() error {
		if time.Now().After(deadline) {
			return backoff.Permanent(fmt.Errorf("actor run %s did not finish within %s", runID, runPollCeiling))
		}
		return poll()
	}, policy); err != nil {
		return nil, err
	}

	return c.GetDatasetItems(ctx, datasetID, 0, limit)
}

// ValidateApiKey tests if the API token is valid via /users/me, which does
// not consume actor runs or quota.
func (c *ApifyClient) ValidateApiKey(ctx context.Context) error {
	url := fmt.Sprintf("%s/users/me?token=%s", c.baseURL, c.apiToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating auth test request: %w", err)
	}

	resp, err := c.options.HttpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making auth test request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return fmt.Errorf("invalid Apify API token")
	default:
		return fmt.Errorf("unexpected status code %d validating Apify API token", resp.StatusCode)
	}
}

func (c *ApifyClient) do(req *http.Request, wantStatus int) ([]byte, error) {
	resp, err := c.options.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making %s request: %w", req.Method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != wantStatus {
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("unexpected status code %d: %s: %w", resp.StatusCode, string(body), ErrRateLimited)
		}
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
