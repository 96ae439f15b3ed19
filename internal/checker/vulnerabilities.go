package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	consts "github.com/khanhnv2901/webaudit/internal/constants"
)

// DefaultVulnAPIBase is the WPScan-compatible vulnerability database.
const DefaultVulnAPIBase = "https://wpscan.com/api/v3"

// Vulnerability is one known issue affecting a plugin or theme.
type Vulnerability struct {
	Title   string `json:"title"`
	FixedIn string `json:"fixedIn,omitempty"`
}

// VulnChecker queries a WPScan-style API. Without an API token the
// lookup is skipped entirely and the neutral default (empty map) is
// returned, so unauthenticated audits still complete.
type VulnChecker struct {
	Client   *Client
	BaseURL  string
	APIToken string
}

func NewVulnChecker(client *Client, token string) *VulnChecker {
	return &VulnChecker{Client: client, BaseURL: DefaultVulnAPIBase, APIToken: token}
}

// Lookup fetches known vulnerabilities for each slug. kind is "plugins"
// or "themes". Per-slug failures degrade to an absent entry.
func (v *VulnChecker) Lookup(ctx context.Context, kind string, slugs []string) map[string][]Vulnerability {
	result := map[string][]Vulnerability{}
	if v.APIToken == "" || len(slugs) == 0 {
		return result
	}
	sorted := append([]string(nil), slugs...)
	sort.Strings(sorted)
	for _, slug := range sorted {
		vulns, err := v.lookupOne(ctx, kind, slug)
		if err != nil || len(vulns) == 0 {
			continue
		}
		result[slug] = vulns
	}
	return result
}

func (v *VulnChecker) lookupOne(ctx context.Context, kind, slug string) ([]Vulnerability, error) {
	target := fmt.Sprintf("%s/%s/%s", strings.TrimRight(v.BaseURL, "/"), kind, url.PathEscape(slug))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", v.Client.UserAgent)
	req.Header.Set("Authorization", "Token token="+v.APIToken)
	resp, err := v.Client.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
	Discard(resp)
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("vulnerability lookup %s/%s: status %d", kind, slug, resp.StatusCode)
	}
	// Response shape: {"<slug>": {"vulnerabilities": [...]}}
	var payload map[string]struct {
		Vulnerabilities []struct {
			Title   string `json:"title"`
			FixedIn string `json:"fixed_in"`
		} `json:"vulnerabilities"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	entry, ok := payload[slug]
	if !ok {
		return nil, nil
	}
	vulns := make([]Vulnerability, 0, len(entry.Vulnerabilities))
	for _, item := range entry.Vulnerabilities {
		vulns = append(vulns, Vulnerability{Title: item.Title, FixedIn: item.FixedIn})
	}
	return vulns, nil
}
