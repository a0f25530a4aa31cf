// Package webapi is the small JSON-over-HTTP layer shared by upstream clients.
package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxBody bounds how much of a response is read into memory.
const maxBody = 32 << 20

var ErrBodyTooLarge = errors.New("response body too large")

const DefaultUserAgent = "nitebot/1.0"

// StatusError is returned for any non-2xx upstream response.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s http %d", e.Service, e.Code)
	}
	return fmt.Sprintf("%s http %d: %s", e.Service, e.Code, e.Body)
}

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

type Client struct {
	Service   string
	UserAgent string
	HTTP      *http.Client
	MaxBody   int64 // 0 means maxBody
}

func New(service string, timeout time.Duration) *Client {
	return &Client{
		Service:   service,
		UserAgent: DefaultUserAgent,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

// Do sends req and returns the response body for 2xx statuses.
func (c *Client) Do(req *http.Request) ([]byte, error) {
	if req.Header.Get("User-Agent") == "" && c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		// Request URLs may carry credentials, keep only the cause.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("%s %s: %w", c.Service, req.Method, err)
	}
	defer resp.Body.Close()

	limit := c.MaxBody
	if limit <= 0 {
		limit = maxBody
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", c.Service, err)
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("%s: %w (over %d bytes)", c.Service, ErrBodyTooLarge, limit)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Service: c.Service, Code: resp.StatusCode, Body: snippet(raw)}
	}
	return raw, nil
}

// GetJSON issues a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	copyHeader(req.Header, header)
	req.Header.Set("Accept", "application/json")
	raw, err := c.Do(req)
	if err != nil {
		return err
	}
	return c.decode(raw, out)
}

// Fetch downloads url and returns the raw body.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// PostJSON encodes in as the request body and decodes the response into out.
// A nil out discards the response body.
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, in, out any) error {
	raw, err := c.PostJSONRaw(ctx, url, header, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return c.decode(raw, out)
}

// PostJSONRaw is PostJSON for endpoints that answer with binary content.
func (c *Client) PostJSONRaw(ctx context.Context, url string, header http.Header, in any) ([]byte, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, header)
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req)
}

func (c *Client) decode(raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode: %w", c.Service, err)
	}
	return nil
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func snippet(raw []byte) string {
	const limit = 300
	s := string(bytes.TrimSpace(raw))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
