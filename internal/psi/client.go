package psi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brogergvhs/siteci/internal/util"
)

const DefaultEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

var (
	ErrNoAPIKey        = errors.New("PSI API key is not set (PSI_API_KEY)")
	ErrInvalidResponse = errors.New("invalid API response structure")
)

// Scores maps a category id such as "best-practices" to a 0-100 score.
type Scores map[string]int

type Client struct {
	HTTP       *http.Client
	Endpoint   string
	APIKey     string
	Categories []string
	Retries    int
	Backoff    time.Duration
}

type apiResponse struct {
	LighthouseResult *struct {
		Categories map[string]struct {
			Score *float64 `json:"score"`
		} `json:"categories"`
	} `json:"lighthouseResult"`
}

func (c *Client) requestURL(pageURL, strategy string) (string, error) {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("psi endpoint: %w", err)
	}

	q := u.Query()
	q.Set("key", c.APIKey)
	q.Set("url", pageURL)
	q.Set("strategy", strategy)
	for _, cat := range c.Categories {
		q.Add("category", cat)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Run analyses pageURL for one strategy (mobile or desktop).
func (c *Client) Run(ctx context.Context, pageURL, strategy string) (Scores, error) {
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	target, err := c.requestURL(pageURL, strategy)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	resp, err := util.DoWithRetry(ctx, c.HTTP, req, 1+c.Retries, backoff)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", strategy, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("API returned status %d for %s: %s",
			resp.StatusCode, strategy, strings.TrimSpace(string(body)))
	}

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", strategy, err)
	}
	if data.LighthouseResult == nil || data.LighthouseResult.Categories == nil {
		return nil, fmt.Errorf("%w for %s", ErrInvalidResponse, strategy)
	}

	scores := make(Scores, len(c.Categories))
	for _, cat := range c.Categories {
		v, ok := data.LighthouseResult.Categories[cat]
		if !ok || v.Score == nil {
			return nil, fmt.Errorf("%w for %s: no %s score", ErrInvalidResponse, strategy, cat)
		}
		scores[cat] = int(math.Round(*v.Score * 100))
	}

	return scores, nil
}
