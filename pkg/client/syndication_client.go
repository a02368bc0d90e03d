package client

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const syndicationBaseURL = "https://cdn.syndication.twimg.com"

// SyndicationClient fetches single tweets from the unauthenticated public
// syndication endpoint. Best effort only: no profile support, no guarantees.
type SyndicationClient struct {
	baseURL string
	client  *resty.Client
}

// NewSyndicationClient creates a client for the public syndication endpoint.
func NewSyndicationClient(opts ...Option) (*SyndicationClient, error) {
	options, err := NewOptions(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create options: %w", err)
	}

	baseURL := syndicationBaseURL
	if options.baseURL != "" {
		baseURL = options.baseURL
	}

	return &SyndicationClient{
		baseURL: baseURL,
		client: resty.New().
			SetTimeout(10*time.Second).
			SetHeader("User-Agent", "Mozilla/5.0 (compatible; metrics-worker/1.0)"),
	}, nil
}

// GetTweetResult fetches the raw tweet-result payload for a tweet id.
func (c *SyndicationClient) GetTweetResult(ctx context.Context, tweetID string) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"id":    tweetID,
			"token": syndicationToken(tweetID),
			"lang":  "en",
		}).
		Get(c.baseURL + "/tweet-result")
	if err != nil {
		return nil, fmt.Errorf("error fetching tweet-result: %w", err)
	}
	if resp.StatusCode() != 200 {
		logrus.Debugf("Syndication endpoint returned status %d for tweet %s", resp.StatusCode(), tweetID)
		if resp.StatusCode() == 429 {
			return nil, fmt.Errorf("unexpected status code %d: %s: %w", resp.StatusCode(), resp.String(), ErrRateLimited)
		}
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode(), resp.String())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("empty tweet-result payload for tweet %s", tweetID)
	}
	return body, nil
}

// syndicationToken derives the access token the endpoint expects:
// base36(id / 1e15 * pi) with zeros and the radix point stripped.
func syndicationToken(tweetID string) string {
	n, err := strconv.ParseFloat(tweetID, 64)
	if err != nil {
		return ""
	}
	v := n / 1e15 * math.Pi
	return strings.NewReplacer("0", "", ".", "").Replace(formatBase36(v))
}

// formatBase36 renders a non-negative float in base 36 with a fixed number of
// fractional digits, enough for the token derivation above.
func formatBase36(v float64) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"

	ip := int64(v)
	frac := v - float64(ip)

	var intPart []byte
	if ip == 0 {
		intPart = []byte{'0'}
	}
	for ip > 0 {
		intPart = append([]byte{digits[ip%36]}, intPart...)
		ip /= 36
	}

	var b strings.Builder
	b.Write(intPart)
	b.WriteByte('.')
	for i := 0; i < 8; i++ {
		frac *= 36
		d := int(frac)
		b.WriteByte(digits[d])
		frac -= float64(d)
	}
	return b.String()
}
