// Package downstream talks to the downstream PostgREST-style table
// service: it issues compiled requests and translates the wire response
// (rows plus an optional Content-Range total) into domain types.
package downstream

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gateway/internal/domain"
)

// Client is the gateway's HTTP client for the downstream table service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a Client against baseURL, applying timeout to every request
// and bounding idle connections to maxConns.
func New(baseURL string, timeout time.Duration, maxConns int) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        maxConns,
				MaxIdleConnsPerHost: maxConns,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
}

var _ domain.Downstream = (*Client)(nil)

// Fetch issues req against the downstream table service and parses the
// response body as a JSON array of row objects. total is non-nil only
// when the response carries a well-formed Content-Range header with a
// known upper bound (e.g. "0-19/137").
func (c *Client) Fetch(ctx context.Context, req domain.DownstreamRequest) ([]map[string]any, *int64, error) {
	reqURL := c.baseURL + "/" + req.Table
	if len(req.Query) > 0 {
		reqURL += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build downstream request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.RangeHeader != "" {
		httpReq.Header.Set("Range-Unit", "rows")
		httpReq.Header.Set("Range", req.RangeHeader)
		httpReq.Header.Set("Prefer", "count=exact")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, domain.ErrDownstreamUnavailable(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, nil, domain.ErrDownstreamStatus(resp.StatusCode, fmt.Errorf("downstream returned status %d", resp.StatusCode))
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, nil, domain.ErrDownstreamUnavailable(fmt.Errorf("decode downstream response: %w", err))
	}

	total := parseContentRange(resp.Header.Get("Content-Range"))
	return rows, total, nil
}

// parseContentRange extracts the total row count from a PostgREST-style
// "start-end/total" Content-Range value. Returns nil when the header is
// absent, malformed, or advertises an unknown total ("*").
func parseContentRange(header string) *int64 {
	if header == "" {
		return nil
	}
	_, totalPart, ok := strings.Cut(header, "/")
	if !ok {
		return nil
	}
	if totalPart == "*" {
		return nil
	}
	total, err := strconv.ParseInt(totalPart, 10, 64)
	if err != nil {
		return nil
	}
	return &total
}

// Ping checks that the downstream table service is reachable and healthy.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downstream health check: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 500 {
		return fmt.Errorf("downstream unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
