package reorder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/shelfwatch/internal/domain"
	"golang.org/x/time/rate"
)

// DefaultStore names the retailer when the lookup service does not.
const DefaultStore = "Partner"

var (
	// ErrNoEndpoint means no lookup service is configured.
	ErrNoEndpoint = errors.New("affiliate lookup endpoint not configured")
	// ErrNoLink means the service answered without a usable URL.
	ErrNoLink = errors.New("affiliate lookup returned no link")
)

// Link is a successful remote lookup.
type Link struct {
	URL   string
	Store string
}

type lookupRequest struct {
	ItemName string `json:"item_name"`
	Category string `json:"category"`
}

type lookupResponse struct {
	AffiliateURL string `json:"affiliate_url"`
	Store        string `json:"store"`
}

// Client calls the remote affiliate lookup service. Outbound calls share
// one token bucket so a burst of reorder clicks cannot flood the partner.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a lookup client. perMinute <= 0 disables limiting.
// httpClient may be nil.
func NewClient(endpoint string, perMinute, burst int, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60.0)
	}
	if burst < 1 {
		burst = 1
	}
	return &Client{
		endpoint: strings.TrimSpace(endpoint),
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

// Lookup asks the service for a reorder link. A non-2xx status, a
// malformed body or an empty URL is an error.
func (c *Client) Lookup(ctx context.Context, name string, category domain.Category) (Link, error) {
	if c.endpoint == "" {
		return Link{}, ErrNoEndpoint
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Link{}, fmt.Errorf("lookup rate limited: %w", err)
	}

	body, err := json.Marshal(lookupRequest{ItemName: name, Category: string(category)})
	if err != nil {
		return Link{}, fmt.Errorf("failed to marshal lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Link{}, fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Link{}, fmt.Errorf("lookup request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Link{}, fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}

	var out lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return Link{}, fmt.Errorf("failed to decode lookup response: %w", err)
	}
	if strings.TrimSpace(out.AffiliateURL) == "" {
		return Link{}, ErrNoLink
	}

	link := Link{URL: out.AffiliateURL, Store: out.Store}
	if link.Store == "" {
		link.Store = DefaultStore
	}
	return link, nil
}
