package checker

import (
	"context"
	"io"
	"net/url"
	"strings"

	consts "github.com/khanhnv2901/webaudit/internal/constants"
)

// Exposure probes check for files and endpoints that should not be
// publicly reachable. Every probe degrades to false on failure.

// PathExists reports whether a well-known path answers with a 2xx.
func (c *Client) PathExists(ctx context.Context, siteURL, path string) bool {
	target, err := url.JoinPath(siteURL, path)
	if err != nil {
		return false
	}
	resp, err := c.Get(ctx, target)
	if err != nil {
		return false
	}
	Discard(resp)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// CheckXMLRPC reports whether xmlrpc.php responds like a live XML-RPC
// endpoint (it answers GET with 405 or an XML-RPC error body).
func (c *Client) CheckXMLRPC(ctx context.Context, siteURL string) bool {
	target, err := url.JoinPath(siteURL, "/xmlrpc.php")
	if err != nil {
		return false
	}
	resp, err := c.Get(ctx, target)
	if err != nil {
		return false
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
	Discard(resp)
	if resp.StatusCode == 405 {
		return true
	}
	if readErr != nil {
		return false
	}
	return resp.StatusCode < 400 && strings.Contains(string(body), "XML-RPC")
}

// CheckUserEnumeration reports whether the wp/v2 users endpoint leaks
// account names.
func (c *Client) CheckUserEnumeration(ctx context.Context, siteURL string) bool {
	target, err := url.JoinPath(siteURL, "/wp-json/wp/v2/users")
	if err != nil {
		return false
	}
	resp, err := c.Get(ctx, target)
	if err != nil {
		return false
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
	Discard(resp)
	if readErr != nil || resp.StatusCode >= 400 {
		return false
	}
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "[") && strings.Contains(trimmed, "\"slug\"")
}

// CheckDirectoryListing reports whether the uploads directory serves an
// auto-generated index.
func (c *Client) CheckDirectoryListing(ctx context.Context, siteURL string) bool {
	target, err := url.JoinPath(siteURL, "/wp-content/uploads/")
	if err != nil {
		return false
	}
	resp, err := c.Get(ctx, target)
	if err != nil {
		return false
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
	Discard(resp)
	if readErr != nil || resp.StatusCode >= 400 {
		return false
	}
	return strings.Contains(strings.ToLower(string(body)), "index of")
}

// CheckWPConfigBackup reports whether a stale wp-config backup is
// downloadable.
func (c *Client) CheckWPConfigBackup(ctx context.Context, siteURL string) bool {
	for _, path := range []string{"/wp-config.php.bak", "/wp-config.php~", "/wp-config.php.save"} {
		target, err := url.JoinPath(siteURL, path)
		if err != nil {
			continue
		}
		resp, err := c.Get(ctx, target)
		if err != nil {
			continue
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
		Discard(resp)
		if readErr != nil || resp.StatusCode >= 400 {
			continue
		}
		if strings.Contains(string(body), "DB_NAME") {
			return true
		}
	}
	return false
}
