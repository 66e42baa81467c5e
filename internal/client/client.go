// Package client talks to a changelogd server over HTTP.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dreamware/changelogd/internal/apierr"
	"github.com/dreamware/changelogd/internal/auth"
)

// DefaultTimeout bounds each request made by a Client.
const DefaultTimeout = 10 * time.Second

// Client reads and publishes versions on a remote server.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

// New creates a client for the server at baseURL. key is sent on writes
// and may be empty for a read-only client.
func New(baseURL, key string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		key:     key,
		http: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Latest fetches the content of the greatest version of module.
func (c *Client) Latest(ctx context.Context, module string) ([]byte, error) {
	return c.get(ctx, c.url(module))
}

// Get fetches one version of module.
func (c *Client) Get(ctx context.Context, module, version string) ([]byte, error) {
	return c.get(ctx, c.url(module, version))
}

// Put publishes content as version of module.
func (c *Client) Put(ctx context.Context, module, version string, content []byte) error {
	u := c.url(module, version)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if c.key != "" {
		req.Header.Set(auth.Header, c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return statusError(http.MethodPut, u, resp.StatusCode)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := statusError(http.MethodGet, u, resp.StatusCode); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) url(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

// statusError turns a non-2xx status into a typed error.
func statusError(method, u string, status int) error {
	if status < 300 {
		return nil
	}
	return apierr.New(apierr.CodeForStatus(status), fmt.Sprintf("%s %s: http %d", method, u, status))
}
