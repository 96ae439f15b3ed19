package checker

import (
	"context"
	"encoding/json"
	"io"
	"net/url"

	consts "github.com/khanhnv2901/webaudit/internal/constants"
)

const DefaultSSLLabsEndpoint = "https://api.ssllabs.com/api/v3/analyze"

// SSLLabsReport carries the grade SSL Labs assigned to the audited
// host. A nil report is the neutral default: assessment unavailable,
// still running, or the target is not served over HTTPS.
type SSLLabsReport struct {
	Grade string `json:"grade"`
}

// SSLLabsChecker asks the SSL Labs analyze API for a cached grade. The
// API needs no credential; it is simply slow for cold hosts, so only
// cached assessments are consulted and anything not ready degrades to
// nil rather than blocking the audit.
type SSLLabsChecker struct {
	Client   *Client
	Endpoint string
}

func NewSSLLabsChecker(client *Client) *SSLLabsChecker {
	return &SSLLabsChecker{Client: client, Endpoint: DefaultSSLLabsEndpoint}
}

// Analyze returns the cached grade for target's host, or nil.
func (s *SSLLabsChecker) Analyze(ctx context.Context, target string) *SSLLabsReport {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	params := url.Values{}
	params.Set("host", u.Hostname())
	params.Set("fromCache", "on")
	params.Set("maxAge", "24")

	resp, err := s.Client.Get(ctx, s.Endpoint+"?"+params.Encode())
	if err != nil {
		return nil
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
	Discard(resp)
	if readErr != nil || resp.StatusCode >= 400 {
		return nil
	}

	var response struct {
		Status    string `json:"status"`
		Endpoints []struct {
			Grade string `json:"grade"`
		} `json:"endpoints"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil
	}
	if response.Status != "READY" {
		return nil
	}
	for _, ep := range response.Endpoints {
		if ep.Grade != "" {
			return &SSLLabsReport{Grade: ep.Grade}
		}
	}
	return nil
}
