package checker

import (
	"context"
	"encoding/json"
	"io"

	consts "github.com/khanhnv2901/webaudit/internal/constants"
)

// DefaultSafeBrowsingEndpoint is the Google Safe Browsing v4 lookup.
const DefaultSafeBrowsingEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"

var safeBrowsingThreatTypes = []string{
	"MALWARE",
	"SOCIAL_ENGINEERING",
	"UNWANTED_SOFTWARE",
	"POTENTIALLY_HARMFUL_APPLICATION",
}

// SafeBrowsingChecker asks Google Safe Browsing whether a URL is
// flagged. Without an API key the check is skipped and the neutral
// default (no threats) is returned.
type SafeBrowsingChecker struct {
	Client   *Client
	Endpoint string
	APIKey   string
}

func NewSafeBrowsingChecker(client *Client, apiKey string) *SafeBrowsingChecker {
	return &SafeBrowsingChecker{Client: client, Endpoint: DefaultSafeBrowsingEndpoint, APIKey: apiKey}
}

// Check returns the threat types Safe Browsing reports for target.
func (s *SafeBrowsingChecker) Check(ctx context.Context, target string) []string {
	if s.APIKey == "" {
		return []string{}
	}
	request := map[string]any{
		"client": map[string]string{
			"clientId":      "webaudit",
			"clientVersion": "1.0",
		},
		"threatInfo": map[string]any{
			"threatTypes":      safeBrowsingThreatTypes,
			"platformTypes":    []string{"ANY_PLATFORM"},
			"threatEntryTypes": []string{"URL"},
			"threatEntries":    []map[string]string{{"url": target}},
		},
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return []string{}
	}
	resp, err := s.Client.Do(ctx, "POST", s.Endpoint+"?key="+s.APIKey, payload)
	if err != nil {
		return []string{}
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
	Discard(resp)
	if readErr != nil || resp.StatusCode >= 400 {
		return []string{}
	}
	var response struct {
		Matches []struct {
			ThreatType string `json:"threatType"`
		} `json:"matches"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return []string{}
	}
	threats := make([]string, 0, len(response.Matches))
	seen := map[string]struct{}{}
	for _, m := range response.Matches {
		if _, ok := seen[m.ThreatType]; ok {
			continue
		}
		seen[m.ThreatType] = struct{}{}
		threats = append(threats, m.ThreatType)
	}
	return threats
}
