package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	consts "github.com/khanhnv2901/webaudit/internal/constants"
)

// DefaultWordPressAPIBase is the public wordpress.org API root used for
// latest-version lookups.
const DefaultWordPressAPIBase = "https://api.wordpress.org"

// WordPressInfo is the CMS fingerprint result.
type WordPressInfo struct {
	IsWordPress bool   `json:"isWordPress"`
	Name        string `json:"name,omitempty"`
	Version     string `json:"wpVersion,omitempty"`
	IsUpToDate  bool   `json:"isUpToDate"`
	Caching     bool   `json:"caching"`
}

// AssetDetail describes one discovered plugin or theme.
type AssetDetail struct {
	Slug          string `json:"slug"`
	Version       string `json:"version,omitempty"`
	LatestVersion string `json:"latestVersion,omitempty"`
	Outdated      bool   `json:"outdated"`
}

// WordPressChecker groups the CMS probes. APIBase is configurable so
// tests can point it at a local server.
type WordPressChecker struct {
	Client  *Client
	APIBase string
}

func NewWordPressChecker(client *Client) *WordPressChecker {
	return &WordPressChecker{Client: client, APIBase: DefaultWordPressAPIBase}
}

var (
	pluginVersionPattern = regexp.MustCompile(`(?i)wp-content/plugins/([a-z0-9-]+)[^"'\s]*?ver=([0-9.]+)`)
	pluginSlugPattern    = regexp.MustCompile(`(?i)wp-content/plugins/([a-z0-9-]+)`)
	themeVersionPattern  = regexp.MustCompile(`(?i)wp-content/themes/([a-z0-9-]+)[^"'\s]*?ver=([0-9.]+)`)
	themeSlugPattern     = regexp.MustCompile(`(?i)wp-content/themes/([a-z0-9-]+)`)
	generatorWPPattern   = regexp.MustCompile(`(?i)^wordpress\s*([0-9.]+)?`)
)

// ExtractWPAssets scans page markup for plugin and theme references.
// Versioned references win over bare slug matches for the same asset.
func ExtractWPAssets(body string) (plugins, themes map[string]string) {
	plugins = map[string]string{}
	themes = map[string]string{}
	for _, m := range pluginVersionPattern.FindAllStringSubmatch(body, -1) {
		plugins[strings.ToLower(m[1])] = m[2]
	}
	for _, m := range pluginSlugPattern.FindAllStringSubmatch(body, -1) {
		slug := strings.ToLower(m[1])
		if _, ok := plugins[slug]; !ok {
			plugins[slug] = ""
		}
	}
	for _, m := range themeVersionPattern.FindAllStringSubmatch(body, -1) {
		themes[strings.ToLower(m[1])] = m[2]
	}
	for _, m := range themeSlugPattern.FindAllStringSubmatch(body, -1) {
		slug := strings.ToLower(m[1])
		if _, ok := themes[slug]; !ok {
			themes[slug] = ""
		}
	}
	return plugins, themes
}

// DetectGeneratorVersion pulls a WordPress core version out of the
// generator meta tag, when the site exposes one.
func DetectGeneratorVersion(doc *goquery.Document) string {
	content, ok := doc.Find(`meta[name="generator"]`).Attr("content")
	if !ok {
		return ""
	}
	m := generatorWPPattern.FindStringSubmatch(strings.TrimSpace(content))
	if m == nil {
		return ""
	}
	return m[1]
}

// Fingerprint probes /wp-json and combines it with markup evidence to
// decide whether the site runs WordPress. Neutral default: zero value.
func (w *WordPressChecker) Fingerprint(ctx context.Context, siteURL string, doc *goquery.Document) WordPressInfo {
	info := WordPressInfo{}
	target, err := url.JoinPath(siteURL, "/wp-json")
	if err != nil {
		return info
	}
	resp, err := w.Client.Get(ctx, target)
	if err == nil {
		var payload struct {
			Name string `json:"name"`
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
		Discard(resp)
		if readErr == nil && resp.StatusCode < 400 && json.Unmarshal(body, &payload) == nil && payload.Name != "" {
			info.IsWordPress = true
			info.Name = payload.Name
		}
	}
	if doc != nil {
		if v := DetectGeneratorVersion(doc); v != "" {
			info.IsWordPress = true
			info.Version = v
		}
	}
	if info.IsWordPress && info.Version != "" {
		if latest := w.latestCoreVersion(ctx); latest != "" {
			info.IsUpToDate = CompareVersions(info.Version, latest) >= 0
		}
	}
	return info
}

// DetectCaching looks for the usual page-cache fingerprints in response
// headers and markup.
func DetectCaching(headerGet func(string) string, body string) bool {
	for _, h := range []string{"X-Cache", "CF-Cache-Status", "X-Litespeed-Cache", "X-Cache-Enabled"} {
		if headerGet(h) != "" {
			return true
		}
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "wp-rocket") ||
		strings.Contains(lower, "w3 total cache") ||
		strings.Contains(lower, "wp super cache")
}

// Enumerate merges assets exposed by the wp/v2 REST API into the
// discovered map. Many sites deny these endpoints; failures are
// ignored.
func (w *WordPressChecker) Enumerate(ctx context.Context, siteURL, kind string, into map[string]string) {
	target, err := url.JoinPath(siteURL, "/wp-json/wp/v2/"+kind)
	if err != nil {
		return
	}
	resp, err := w.Client.Get(ctx, target)
	if err != nil {
		return
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
	Discard(resp)
	if readErr != nil || resp.StatusCode >= 400 {
		return
	}
	var entities []struct {
		Slug    string `json:"slug"`
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(body, &entities); err != nil {
		return
	}
	for _, e := range entities {
		slug := e.Slug
		if slug == "" {
			slug = e.Name
		}
		if slug == "" {
			continue
		}
		slug = strings.ToLower(slug)
		if v, ok := into[slug]; !ok || v == "" {
			into[slug] = e.Version
		}
	}
}

// LatestVersion asks the wordpress.org info API for the current release
// of a plugin or theme. kind is "plugin" or "theme". Empty string is
// the neutral default.
func (w *WordPressChecker) LatestVersion(ctx context.Context, kind, slug string) string {
	target := fmt.Sprintf("%s/%ss/info/1.0/%s.json", strings.TrimRight(w.APIBase, "/"), kind, url.PathEscape(slug))
	resp, err := w.Client.Get(ctx, target)
	if err != nil {
		return ""
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
	Discard(resp)
	if readErr != nil || resp.StatusCode >= 400 {
		return ""
	}
	var payload struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Version
}

func (w *WordPressChecker) latestCoreVersion(ctx context.Context) string {
	target := strings.TrimRight(w.APIBase, "/") + "/core/version-check/1.7/"
	resp, err := w.Client.Get(ctx, target)
	if err != nil {
		return ""
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
	Discard(resp)
	if readErr != nil || resp.StatusCode >= 400 {
		return ""
	}
	var payload struct {
		Offers []struct {
			Current string `json:"current"`
		} `json:"offers"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Offers) == 0 {
		return ""
	}
	return payload.Offers[0].Current
}

// AssetDetails resolves latest versions for every discovered asset and
// flags outdated installs. Results are sorted by slug so the summary is
// deterministic.
func (w *WordPressChecker) AssetDetails(ctx context.Context, kind string, assets map[string]string) []AssetDetail {
	details := make([]AssetDetail, 0, len(assets))
	for slug, installed := range assets {
		latest := w.LatestVersion(ctx, kind, slug)
		outdated := false
		if installed != "" && latest != "" {
			outdated = CompareVersions(installed, latest) < 0
		}
		details = append(details, AssetDetail{
			Slug:          slug,
			Version:       installed,
			LatestVersion: latest,
			Outdated:      outdated,
		})
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Slug < details[j].Slug })
	return details
}

// CompareVersions compares dotted numeric versions. Missing segments
// count as zero, so "1.0" equals "1.0.0".
func CompareVersions(a, b string) int {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	n := len(pa)
	if len(pb) > n {
		n = len(pb)
	}
	for i := 0; i < n; i++ {
		var va, vb int
		if i < len(pa) {
			va, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			vb, _ = strconv.Atoi(pb[i])
		}
		if va != vb {
			if va < vb {
				return -1
			}
			return 1
		}
	}
	return 0
}
