package nhn

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

// AuthSource supplies the authentication headers for outgoing requests.
// Implementations may cache credentials; Invalidate is called after a 401 so
// the next resolution re-acquires them.
type AuthSource interface {
	Headers(ctx context.Context) (http.Header, error)
	Invalidate()
}

// Client is a JSON client for one NHN Cloud service endpoint. Auth headers
// are injected per request through the AuthSource, so a token refresh between
// calls is picked up without rebuilding the client.
type Client struct {
	base string
	http *http.Client
}

// New returns a Client rooted at base. A nil src sends requests without auth
// headers. Paths passed to the call methods are joined to base unless they
// are already absolute URLs.
func New(base string, timeout time.Duration, src AuthSource) *Client {
	hc := &http.Client{Timeout: timeout}
	if src != nil {
		hc.Transport = &authRoundTripper{base: http.DefaultTransport, src: src}
	}
	return &Client{base: strings.TrimRight(base, "/"), http: hc}
}

// authRoundTripper resolves auth headers per request and retries once after a
// 401, invalidating the source first so the retry runs with fresh credentials.
type authRoundTripper struct {
	base http.RoundTripper
	src  AuthSource
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.send(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	// The token expired server-side. Only bodiless requests are replayed;
	// all collector calls are GET or HEAD.
	if req.Body != nil {
		return resp, nil
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	t.src.Invalidate()
	return t.send(req)
}

func (t *authRoundTripper) send(req *http.Request) (*http.Response, error) {
	hdr, err := t.src.Headers(req.Context())
	if err != nil {
		return nil, fmt.Errorf("%w: resolve headers: %v", ErrAuth, err)
	}
	req = req.Clone(req.Context())
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}

// GetJSON performs a GET against path and decodes the JSON response into out.
// Query may be nil; out may be nil to discard the body.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.url(path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// PostJSON performs a POST with a JSON body and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// Head performs a HEAD against path and returns the response headers.
func (c *Client) Head(ctx context.Context, path string) (http.Header, error) {
	u := c.url(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportErr("head", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusErr(resp)
	}
	return resp.Header, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return transportErr(strings.ToLower(req.Method), req.URL.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusErr(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrTransport, req.URL, err)
	}
	return nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.base + path
}

// transportErr classifies a client.Do failure. Auth resolution errors keep
// their ErrAuth identity; everything else is a transport error.
func transportErr(op, u string, err error) error {
	if errors.Is(err, ErrAuth) {
		return err
	}
	return fmt.Errorf("%w: %s %s: %v", ErrTransport, op, u, err)
}

// statusErr maps a non-2xx response onto the sentinel taxonomy, keeping a
// short body snippet for the log line.
func statusErr(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))

	var sentinel error
	switch resp.StatusCode {
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusForbidden:
		sentinel = ErrAccessDenied
	case http.StatusUnauthorized:
		sentinel = ErrAuth
	default:
		sentinel = ErrTransport
	}
	return fmt.Errorf("%w: %s: status %d: %s",
		sentinel, resp.Request.URL, resp.StatusCode, strings.TrimSpace(string(snippet)))
}
