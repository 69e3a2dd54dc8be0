// pkg/api/api.go

// Package api is a Go client for the recipevault REST service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valpere/recipevault/pkg/types"
)

// Recipe is the record exchanged with the service.
type Recipe = types.Recipe

// Error is a non-2xx response from the service.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("recipevault: %d %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*Error)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to one recipevault server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL, for example
// http://localhost:3000. A nil httpClient waits as long as the server's
// default write timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Scrape asks the server to fetch pageURL and store the result.
func (c *Client) Scrape(ctx context.Context, pageURL string) (*Recipe, error) {
	var r Recipe
	if err := c.do(ctx, http.MethodPost, "/api/scrape", map[string]string{"url": pageURL}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Preview extracts pageURL without storing it.
func (c *Client) Preview(ctx context.Context, pageURL string) (*Recipe, error) {
	var r Recipe
	if err := c.do(ctx, http.MethodPost, "/api/scrape/preview", map[string]string{"url": pageURL}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns every stored recipe, newest first.
func (c *Client) List(ctx context.Context) ([]Recipe, error) {
	var recipes []Recipe
	if err := c.do(ctx, http.MethodGet, "/api/scrape/recipes", nil, &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// Save stores a recipe the caller already has, such as an edited preview.
func (c *Client) Save(ctx context.Context, r Recipe) (*Recipe, error) {
	var saved Recipe
	if err := c.do(ctx, http.MethodPost, "/api/scrape/save", map[string]interface{}{"recipe": r}, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Delete removes the recipe stored for pageURL.
func (c *Client) Delete(ctx context.Context, pageURL string) error {
	return c.do(ctx, http.MethodDelete, "/api/scrape/recipes/"+url.PathEscape(pageURL), nil, nil)
}

// Health returns nil when the server reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &msg) != nil || msg.Message == "" {
			msg.Message = http.StatusText(resp.StatusCode)
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
