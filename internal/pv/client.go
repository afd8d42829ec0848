// Package pv talks to control-system process variables through an HTTP
// gateway.
package pv

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
)

var (
	ErrMissingBaseURL = errors.New("missing gateway url")
	ErrMissingName    = errors.New("missing pv name")
	ErrNotFound       = errors.New("pv not found")
)

const DefaultAPIVersion = "v1"

type Client struct {
	baseURL    string
	apiVersion string
	http       *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: DefaultAPIVersion,
		http:       &http.Client{Timeout: timeout},
	}
}

// BuildPaths lists the URLs a PV may live under, versioned API first.
func BuildPaths(baseURL string, apiVersion string, name string) []string {
	baseURL = strings.TrimRight(baseURL, "/")
	apiVersion = strings.Trim(apiVersion, "/")
	if baseURL == "" || name == "" {
		return nil
	}
	escaped := url.PathEscape(name)

	paths := make([]string, 0, 2)
	if apiVersion != "" {
		paths = append(paths, baseURL+"/api/"+apiVersion+"/pv/"+escaped)
	}
	paths = append(paths, baseURL+"/pv/"+escaped)
	return paths
}

type valueBody struct {
	Value float64 `json:"value"`
}

func (c *Client) Put(ctx context.Context, name string, value float64) error {
	if err := c.check(name); err != nil {
		return err
	}
	payload, err := json.Marshal(valueBody{Value: value})
	if err != nil {
		return err
	}
	status, body, err := c.doRequest(ctx, http.MethodPut, BuildPaths(c.baseURL, c.apiVersion, name), payload)
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	if status >= 300 {
		return fmt.Errorf("put %s: http %d: %s", name, status, body)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, name string) (float64, error) {
	if err := c.check(name); err != nil {
		return 0, err
	}
	status, body, err := c.doRequest(ctx, http.MethodGet, BuildPaths(c.baseURL, c.apiVersion, name), nil)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", name, err)
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("get %s: http %d: %s", name, status, body)
	}
	value, ok := extractValue([]byte(body))
	if !ok {
		return 0, fmt.Errorf("get %s: no numeric value in %q", name, body)
	}
	return value, nil
}

func (c *Client) check(name string) error {
	if c.baseURL == "" {
		return ErrMissingBaseURL
	}
	if name == "" {
		return ErrMissingName
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method string, paths []string, payload []byte) (int, string, error) {
	var lastErr error = ErrNotFound
	for _, path := range paths {
		var body io.Reader
		if len(payload) > 0 {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, path, body)
		if err != nil {
			lastErr = err
			continue
		}
		if len(payload) > 0 {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			return resp.StatusCode, strings.TrimSpace(string(respBody)), nil
		}
		lastErr = ErrNotFound
	}
	return 0, "", lastErr
}

// extractValue accepts a bare number or a JSON object holding one under
// "value", searched recursively.
func extractValue(payload []byte) (float64, bool) {
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return 0, false
	}
	return findValue(decoded)
}

func findValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case map[string]any:
		for _, key := range []string{"value", "val"} {
			if entry, ok := v[key]; ok {
				if f, ok := findValue(entry); ok {
					return f, true
				}
			}
		}
	case []any:
		if len(v) > 0 {
			return findValue(v[0])
		}
	}
	return 0, false
}
