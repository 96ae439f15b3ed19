package checker

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageInfo holds everything derived from the single root-page response:
// SEO metadata, social tags, asset counts, cookie flags, mixed content
// and transport characteristics. It is a pure function of the fetched
// page; no network activity happens here.
type PageInfo struct {
	Title            string            `json:"title"`
	MetaDescPresent  bool              `json:"metaDescPresent"`
	CanonicalURL     string            `json:"canonicalUrl,omitempty"`
	RobotsMeta       string            `json:"robotsMeta,omitempty"`
	RobotsNoindex    bool              `json:"robotsNoindex"`
	RobotsNofollow   bool              `json:"robotsNofollow"`
	OpenGraph        map[string]string `json:"openGraph"`
	TwitterCard      map[string]string `json:"twitterCard"`
	MissingOpenGraph []string          `json:"missingOpenGraph"`
	MissingTwitter   []string          `json:"missingTwitter"`
	H1Count          int               `json:"h1Count"`
	HasMultipleH1    bool              `json:"hasMultipleH1"`
	ImagesWithoutAlt int               `json:"imagesWithoutAlt"`
	JSAssetCount     int               `json:"jsAssetCount"`
	CSSAssetCount    int               `json:"cssAssetCount"`

	UsesHTTPS              bool     `json:"usesHttps"`
	CookiesMissingSecure   int      `json:"cookiesMissingSecure"`
	CookiesMissingHTTPOnly int      `json:"cookiesMissingHttpOnly"`
	MixedContent           []string `json:"-"`

	TTFBMillis    int64  `json:"ttfb,omitempty"`
	HTTPVersion   string `json:"httpVersion,omitempty"`
	SupportsHTTP3 bool   `json:"supportsHttp3"`
	Compression   string `json:"compression,omitempty"`
	CacheControl  string `json:"cacheControl,omitempty"`
	Expires       string `json:"expires,omitempty"`
}

var requiredOpenGraphTags = []string{"og:title", "og:description", "og:image"}

var requiredTwitterTags = []string{
	"twitter:card",
	"twitter:title",
	"twitter:description",
	"twitter:image",
}

var h3AltSvcPattern = regexp.MustCompile(`(?i)h3`)

// AnalyzePage extracts the single-response feature set from an already
// fetched page.
func AnalyzePage(pageURL string, doc *goquery.Document, header http.Header, proto string) *PageInfo {
	info := &PageInfo{
		OpenGraph:        map[string]string{},
		TwitterCard:      map[string]string{},
		MissingOpenGraph: []string{},
		MissingTwitter:   []string{},
		UsesHTTPS:        strings.HasPrefix(pageURL, "https://"),
	}

	info.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if v, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && v != "" {
		info.MetaDescPresent = true
	}
	info.CanonicalURL, _ = doc.Find(`link[rel="canonical"]`).Attr("href")
	info.RobotsMeta, _ = doc.Find(`meta[name="robots"]`).Attr("content")
	if info.RobotsMeta != "" {
		lower := strings.ToLower(info.RobotsMeta)
		info.RobotsNoindex = strings.Contains(lower, "noindex")
		info.RobotsNofollow = strings.Contains(lower, "nofollow")
	}

	doc.Find(`meta[property^="og:"], meta[name^="og:"]`).Each(func(_ int, sel *goquery.Selection) {
		prop, ok := sel.Attr("property")
		if !ok {
			prop, _ = sel.Attr("name")
		}
		content, _ := sel.Attr("content")
		if prop != "" && content != "" {
			info.OpenGraph[strings.ToLower(prop)] = content
		}
	})
	doc.Find(`meta[name^="twitter:"]`).Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		content, _ := sel.Attr("content")
		if name != "" && content != "" {
			info.TwitterCard[strings.ToLower(name)] = content
		}
	})
	for _, tag := range requiredOpenGraphTags {
		if info.OpenGraph[tag] == "" {
			info.MissingOpenGraph = append(info.MissingOpenGraph, tag)
		}
	}
	for _, tag := range requiredTwitterTags {
		if info.TwitterCard[tag] == "" {
			info.MissingTwitter = append(info.MissingTwitter, tag)
		}
	}

	info.H1Count = doc.Find("h1").Length()
	info.HasMultipleH1 = info.H1Count != 1
	info.ImagesWithoutAlt = CountImagesWithoutAlt(doc)
	info.JSAssetCount = doc.Find("script[src]").Length()
	info.CSSAssetCount = doc.Find(`link[rel="stylesheet"]`).Length()

	for _, raw := range header.Values("Set-Cookie") {
		lower := strings.ToLower(raw)
		if !strings.Contains(lower, "secure") {
			info.CookiesMissingSecure++
		}
		if !strings.Contains(lower, "httponly") {
			info.CookiesMissingHTTPOnly++
		}
	}

	if info.UsesHTTPS {
		doc.Find("script[src], link[href], img[src], iframe[src]").Each(func(_ int, sel *goquery.Selection) {
			src, ok := sel.Attr("src")
			if !ok {
				src, _ = sel.Attr("href")
			}
			if strings.HasPrefix(src, "http://") {
				info.MixedContent = append(info.MixedContent, src)
			}
		})
	}

	info.HTTPVersion = proto
	info.SupportsHTTP3 = h3AltSvcPattern.MatchString(header.Get("Alt-Svc"))
	info.Compression = header.Get("Content-Encoding")
	info.CacheControl = header.Get("Cache-Control")
	info.Expires = header.Get("Expires")

	return info
}

// CountImagesWithoutAlt counts img elements lacking an alt attribute or
// carrying an empty one.
func CountImagesWithoutAlt(doc *goquery.Document) int {
	count := 0
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		alt, ok := sel.Attr("alt")
		if !ok || alt == "" {
			count++
		}
	})
	return count
}
