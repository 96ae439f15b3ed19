package checker

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	consts "github.com/khanhnv2901/webaudit/internal/constants"
)

// Client wraps http.Client with the probe contract every remote call in
// the engine follows: bounded timeout, one automatic retry on transport
// failure, shared User-Agent.
type Client struct {
	HTTP      *http.Client
	UserAgent string
}

// NewClient builds a probe client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		HTTP: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
				MaxIdleConnsPerHost: 4,
			},
		},
		UserAgent: consts.UserAgent,
	}
}

// Do issues one request, retrying once on transport error. Non-2xx
// statuses are returned to the caller, never treated as errors here.
func (c *Client) Do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, fmt.Errorf("create %s request: %w", method, err)
		}
		req.Header.Set("User-Agent", c.UserAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.HTTP.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// Get issues a GET probe.
func (c *Client) Get(ctx context.Context, target string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, target, nil)
}

// Head issues a HEAD probe.
func (c *Client) Head(ctx context.Context, target string) (*http.Response, error) {
	return c.Do(ctx, http.MethodHead, target, nil)
}

// Discard drains and closes a response body so the connection can be
// reused. Nil-safe.
func Discard(resp *http.Response) {
	if resp == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, consts.MaxBodyBytes))
	_ = resp.Body.Close()
}

// Fetched is the root-page fetch result every single-response check
// reads from.
type Fetched struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	TLS        *tls.ConnectionState
	Proto      string
	TTFB       time.Duration
}

// Document parses the fetched body into a goquery document.
func (f *Fetched) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(f.Body))
}

// FetchPage downloads target and captures everything the downstream
// checks need: status, headers, body, negotiated TLS state, protocol
// version and time to first byte.
func (c *Client) FetchPage(ctx context.Context, target string) (*Fetched, error) {
	var start time.Time
	var ttfb time.Duration
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			if !start.IsZero() {
				ttfb = time.Since(start)
			}
		},
	}
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		start = time.Now()
		resp, lastErr = c.HTTP.Do(req.Clone(req.Context()))
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		Discard(resp)
		return nil, fmt.Errorf("fetch %s: status %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &Fetched{
		URL:        finalURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		TLS:        resp.TLS,
		Proto:      resp.Proto,
		TTFB:       ttfb,
	}, nil
}

// IsHTML reports whether a Content-Type header denotes an HTML page.
func IsHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
