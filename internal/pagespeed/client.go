// Package pagespeed measures page performance via the PageSpeed Insights API.
package pagespeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// NeutralScore is returned whenever a real measurement cannot be obtained:
// missing API key, network failure, or a malformed response. It is a
// deliberate midpoint so one broken external dependency cannot zero out a
// site's performance category.
const NeutralScore = 50

// Config parameterizes the speed API client.
type Config struct {
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	ProxyEndpoint string
	ProxyAPIKey   string
}

// Client calls the speed-measurement API for the mobile strategy.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type apiResponse struct {
	LighthouseResult struct {
		Categories struct {
			Performance struct {
				Score *float64 `json:"score"`
			} `json:"performance"`
		} `json:"categories"`
	} `json:"lighthouseResult"`
}

// Score returns the 0-100 mobile performance score for the URL. It never
// returns an error: every failure path degrades to NeutralScore.
func (c *Client) Score(ctx context.Context, pageURL string) (int, string) {
	if c.cfg.APIKey == "" {
		c.logger.Warn("speed API key not configured, using neutral score")
		return NeutralScore, "speed API key not configured"
	}

	requestURL, err := c.buildRequestURL(pageURL)
	if err != nil {
		c.logger.Error("build speed API request failed", zap.Error(err))
		return NeutralScore, "speed API request could not be built"
	}

	body, err := c.get(ctx, requestURL)
	if err != nil {
		c.logger.Warn("direct speed API call failed, retrying through proxy",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		body, err = c.getViaProxy(ctx, requestURL)
	}
	if err != nil {
		c.logger.Error("speed API unreachable, using neutral score",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return NeutralScore, "speed API unreachable"
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Error("malformed speed API response", zap.Error(err))
		return NeutralScore, "malformed speed API response"
	}
	score := parsed.LighthouseResult.Categories.Performance.Score
	if score == nil {
		c.logger.Error("speed API response missing performance score")
		return NeutralScore, "speed API response missing performance score"
	}
	scaled := int(math.Round(*score * 100))
	return scaled, fmt.Sprintf("mobile performance score %d/100", scaled)
}

func (c *Client) buildRequestURL(pageURL string) (string, error) {
	endpoint, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("url", pageURL)
	q.Set("strategy", "mobile")
	q.Set("key", c.cfg.APIKey)
	endpoint.RawQuery = q.Encode()
	return endpoint.String(), nil
}

func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speed API request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("speed API status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speed API body: %w", err)
	}
	return body, nil
}

func (c *Client) getViaProxy(ctx context.Context, requestURL string) ([]byte, error) {
	if c.cfg.ProxyEndpoint == "" {
		return nil, fmt.Errorf("no scrape proxy configured")
	}
	endpoint, err := url.Parse(c.cfg.ProxyEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parse proxy endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("api_key", c.cfg.ProxyAPIKey)
	q.Set("url", requestURL)
	endpoint.RawQuery = q.Encode()
	return c.get(ctx, endpoint.String())
}
