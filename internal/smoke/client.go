// Package smoke exercises a running recipe service end to end over HTTP.
package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/recipebox/internal/domain/recipe"
)

// ErrNotFound is matched by an *APIError carrying a 404.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Is reports 404 responses as ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client is a typed HTTP client for the recipe API.
type Client struct {
	http    *http.Client
	baseURL string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health calls GET /healthz.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, &h)
	return h, err
}

// List calls GET /recipes.
func (c *Client) List(ctx context.Context) ([]recipe.Recipe, error) {
	var out []recipe.Recipe
	err := c.do(ctx, http.MethodGet, "/recipes", nil, http.StatusOK, &out)
	return out, err
}

// Get calls GET /recipes/{id}.
func (c *Client) Get(ctx context.Context, id string) (recipe.Recipe, error) {
	var out recipe.Recipe
	err := c.do(ctx, http.MethodGet, recipePath(id), nil, http.StatusOK, &out)
	return out, err
}

// Create calls POST /recipes.
func (c *Client) Create(ctx context.Context, name string, ingredients []string) (recipe.Recipe, error) {
	body := map[string]any{"name": name}
	if ingredients != nil {
		body["ingredients"] = ingredients
	}
	var out recipe.Recipe
	err := c.do(ctx, http.MethodPost, "/recipes", body, http.StatusCreated, &out)
	return out, err
}

// Update calls PUT /recipes/{id} with a full replacement.
func (c *Client) Update(ctx context.Context, id, name string, ingredients []string) error {
	if ingredients == nil {
		ingredients = []string{}
	}
	body := map[string]any{"name": name, "ingredients": ingredients}
	return c.do(ctx, http.MethodPut, recipePath(id), body, http.StatusNoContent, nil)
}

// Delete calls DELETE /recipes/{id}.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, recipePath(id), nil, http.StatusNoContent, nil)
}

func recipePath(id string) string {
	return "/recipes/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != want {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return fmt.Errorf("%s %s: %w", method, path, apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
