package checker

import (
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title> Example Site </title>
<meta name="description" content="A sample page">
<meta name="robots" content="NOINDEX, follow">
<link rel="canonical" href="https://example.com/">
<meta property="og:title" content="Example">
<meta name="twitter:card" content="summary">
<link rel="stylesheet" href="/main.css">
<script src="/app.js"></script>
<script src="http://cdn.example.net/legacy.js"></script>
</head>
<body>
<h1>First</h1>
<h1>Second</h1>
<img src="/a.png" alt="a">
<img src="/b.png">
<img src="/c.png" alt="">
</body>
</html>`

func TestAnalyzePage(t *testing.T) {
	header := http.Header{}
	header.Add("Set-Cookie", "session=abc; HttpOnly")
	header.Add("Set-Cookie", "theme=dark")
	header.Set("Alt-Svc", `h3=":443"; ma=86400`)
	header.Set("Content-Encoding", "gzip")
	header.Set("Cache-Control", "max-age=3600")

	info := AnalyzePage("https://example.com", mustDoc(t, samplePage), header, "HTTP/2.0")

	if info.Title != "Example Site" {
		t.Errorf("title = %q", info.Title)
	}
	if !info.MetaDescPresent {
		t.Error("expected meta description to be detected")
	}
	if info.CanonicalURL != "https://example.com/" {
		t.Errorf("canonical = %q", info.CanonicalURL)
	}
	if !info.RobotsNoindex || info.RobotsNofollow {
		t.Errorf("robots flags = noindex %v nofollow %v", info.RobotsNoindex, info.RobotsNofollow)
	}
	if len(info.MissingOpenGraph) != 2 {
		t.Errorf("missing og tags = %v", info.MissingOpenGraph)
	}
	if len(info.MissingTwitter) != 3 {
		t.Errorf("missing twitter tags = %v", info.MissingTwitter)
	}
	if info.H1Count != 2 || !info.HasMultipleH1 {
		t.Errorf("h1 count = %d, multiple = %v", info.H1Count, info.HasMultipleH1)
	}
	if info.ImagesWithoutAlt != 2 {
		t.Errorf("images without alt = %d", info.ImagesWithoutAlt)
	}
	if info.JSAssetCount != 2 || info.CSSAssetCount != 1 {
		t.Errorf("asset counts = js %d css %d", info.JSAssetCount, info.CSSAssetCount)
	}
	if info.CookiesMissingSecure != 2 {
		t.Errorf("cookies missing secure = %d", info.CookiesMissingSecure)
	}
	if info.CookiesMissingHTTPOnly != 1 {
		t.Errorf("cookies missing httponly = %d", info.CookiesMissingHTTPOnly)
	}
	if len(info.MixedContent) != 1 || info.MixedContent[0] != "http://cdn.example.net/legacy.js" {
		t.Errorf("mixed content = %v", info.MixedContent)
	}
	if !info.SupportsHTTP3 {
		t.Error("expected Alt-Svc h3 to be detected")
	}
	if info.Compression != "gzip" || info.HTTPVersion != "HTTP/2.0" {
		t.Errorf("transport fields = %q %q", info.Compression, info.HTTPVersion)
	}
	if !info.UsesHTTPS {
		t.Error("expected https target to be flagged")
	}
}

func TestAnalyzePageSkipsMixedContentOverHTTP(t *testing.T) {
	info := AnalyzePage("http://example.com", mustDoc(t, samplePage), http.Header{}, "HTTP/1.1")
	if len(info.MixedContent) != 0 {
		t.Errorf("expected no mixed content findings for http target, got %v", info.MixedContent)
	}
	if info.UsesHTTPS {
		t.Error("expected http target to not be flagged as https")
	}
}

func TestHasMultipleH1IsFalseForSingleHeading(t *testing.T) {
	info := AnalyzePage("https://example.com", mustDoc(t, "<html><body><h1>Only</h1></body></html>"), http.Header{}, "HTTP/1.1")
	if info.H1Count != 1 || info.HasMultipleH1 {
		t.Errorf("h1 count = %d, multiple = %v", info.H1Count, info.HasMultipleH1)
	}
}
