package checker

import (
	"context"
	"encoding/json"
	"io"
	"net/url"

	consts "github.com/khanhnv2901/webaudit/internal/constants"
)

// DefaultPageSpeedEndpoint is the PageSpeed Insights v5 API.
const DefaultPageSpeedEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// PageSpeedScores carries the four Lighthouse category scores (0..1).
// Nil pointers are the neutral default for categories the API did not
// return or when the whole call failed.
type PageSpeedScores struct {
	Performance   *float64 `json:"performance"`
	Accessibility *float64 `json:"accessibility"`
	BestPractices *float64 `json:"bestPractices"`
	SEO           *float64 `json:"seo"`
}

// PageSpeedChecker fetches PageSpeed Insights scores. The API key is
// optional; unauthenticated requests are allowed at a lower quota.
type PageSpeedChecker struct {
	Client   *Client
	Endpoint string
	APIKey   string
}

func NewPageSpeedChecker(client *Client, apiKey string) *PageSpeedChecker {
	return &PageSpeedChecker{Client: client, Endpoint: DefaultPageSpeedEndpoint, APIKey: apiKey}
}

// Fetch runs PageSpeed for target and extracts the category scores.
func (p *PageSpeedChecker) Fetch(ctx context.Context, target string) PageSpeedScores {
	scores := PageSpeedScores{}
	params := url.Values{}
	params.Set("url", target)
	for _, category := range []string{"performance", "accessibility", "best-practices", "seo"} {
		params.Add("category", category)
	}
	if p.APIKey != "" {
		params.Set("key", p.APIKey)
	}
	resp, err := p.Client.Get(ctx, p.Endpoint+"?"+params.Encode())
	if err != nil {
		return scores
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
	Discard(resp)
	if readErr != nil || resp.StatusCode >= 400 {
		return scores
	}
	var response struct {
		LighthouseResult struct {
			Categories map[string]struct {
				Score *float64 `json:"score"`
			} `json:"categories"`
		} `json:"lighthouseResult"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return scores
	}
	categories := response.LighthouseResult.Categories
	if c, ok := categories["performance"]; ok {
		scores.Performance = c.Score
	}
	if c, ok := categories["accessibility"]; ok {
		scores.Accessibility = c.Score
	}
	if c, ok := categories["best-practices"]; ok {
		scores.BestPractices = c.Score
	}
	if c, ok := categories["seo"]; ok {
		scores.SEO = c.Score
	}
	return scores
}
