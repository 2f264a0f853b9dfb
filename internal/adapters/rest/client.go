package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/the-holiday/member-portal-api/internal/ports/out/identity"
)

// Client reads tables from the hosted backend's REST data API (PostgREST dialect).
//
// Requests carry the project API key and, when the context holds one, the member's
// access token so row-level security applies.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a client rooted at baseURL (for example https://x.example.co/rest/v1).
// A nil httpClient gets a traced client with the given timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
	}
}

// APIError is a non-2xx response from the data API.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("rest api status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("rest api status %d: %s", e.Status, e.Message)
}

// selectRows issues GET /<table>?<query> and decodes the JSON array into out.
func (c *Client) selectRows(ctx context.Context, table string, query url.Values, out any) error {
	u := c.baseURL + "/" + url.PathEscape(table)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", table, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	bearer := c.apiKey
	if tok, ok := identity.AccessTokenFromContext(ctx); ok {
		bearer = tok
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(body, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", table, err)
	}
	return nil
}

func eq(v string) string { return "eq." + v }
