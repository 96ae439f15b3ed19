// Package crawler visits a bounded set of same-origin pages reachable
// from the audited URL and extracts a lightweight feature sample from
// each.
package crawler

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/khanhnv2901/webaudit/internal/checker"
	consts "github.com/khanhnv2901/webaudit/internal/constants"
	"github.com/khanhnv2901/webaudit/internal/urlx"
)

// PageSample is the per-page feature set persisted in bulk when the
// crawl finishes. Status is zero when the page could not be reached at
// the transport level.
type PageSample struct {
	URL               string `json:"url"`
	Status            int    `json:"status,omitempty"`
	Title             string `json:"title,omitempty"`
	HeadingCount      int    `json:"headingCount"`
	MetaDescPresent   bool   `json:"metaDescriptionPresent"`
	CanonicalURL      string `json:"canonicalUrl,omitempty"`
	ImagesWithoutAlt  int    `json:"imagesWithoutAltCount"`
	ScriptAssetCount  int    `json:"scriptAssetCount"`
	StyleAssetCount   int    `json:"styleAssetCount"`
	LargestImageBytes int64  `json:"largestImageBytes"`
}

// Crawler walks same-origin links breadth-first. One Crawl call keeps
// no state behind; the visited set and queue live on the stack.
type Crawler struct {
	Client   *checker.Client
	MaxDepth int
	MaxPages int
	Logger   *zap.Logger
}

func New(client *checker.Client, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		Client:   client,
		MaxDepth: consts.DefaultMaxCrawlDepth,
		MaxPages: consts.DefaultMaxCrawlPages,
		Logger:   logger,
	}
}

type queueItem struct {
	url   string
	depth int
}

// Crawl builds the initial queue from rootHTML and processes it
// breadth-first within the depth and page budgets. Individual page
// failures produce a minimal sample and never abort the crawl.
func (c *Crawler) Crawl(ctx context.Context, baseURL, rootHTML string) []PageSample {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	visited := map[string]struct{}{}
	results := make([]PageSample, 0, c.MaxPages)
	var queue []queueItem

	enqueue := func(doc *goquery.Document, pageURL string, depth int) {
		page, err := url.Parse(pageURL)
		if err != nil {
			return
		}
		doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if len(results)+len(queue) >= c.MaxPages {
				return false
			}
			href, ok := sel.Attr("href")
			if !ok || href == "" {
				return true
			}
			resolved, err := page.Parse(href)
			if err != nil {
				return true
			}
			abs := resolved.String()
			if !urlx.SameOrigin(base, resolved) || abs == baseURL {
				return true
			}
			if _, seen := visited[abs]; seen {
				return true
			}
			for _, item := range queue {
				if item.url == abs {
					return true
				}
			}
			queue = append(queue, queueItem{url: abs, depth: depth})
			return true
		})
	}

	rootDoc, err := goquery.NewDocumentFromReader(strings.NewReader(rootHTML))
	if err != nil {
		return nil
	}
	enqueue(rootDoc, baseURL, 1)

	for len(queue) > 0 && len(results) < c.MaxPages {
		if ctx.Err() != nil {
			break
		}
		item := queue[0]
		queue = queue[1:]
		if item.depth > c.MaxDepth {
			continue
		}
		if _, seen := visited[item.url]; seen {
			continue
		}
		visited[item.url] = struct{}{}

		resp, err := c.Client.Get(ctx, item.url)
		if err != nil {
			c.Logger.Debug("crawl fetch failed", zap.String("url", item.url), zap.Error(err))
			results = append(results, PageSample{URL: item.url})
			continue
		}
		if resp.StatusCode >= 400 {
			checker.Discard(resp)
			results = append(results, PageSample{URL: item.url, Status: resp.StatusCode})
			continue
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, consts.MaxBodyBytes))
		_ = resp.Body.Close()
		if readErr != nil {
			results = append(results, PageSample{URL: item.url, Status: resp.StatusCode})
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
		if err != nil {
			results = append(results, PageSample{URL: item.url, Status: resp.StatusCode})
			continue
		}

		sample := c.samplePage(ctx, item.url, resp.StatusCode, doc)
		results = append(results, sample)

		if item.depth < c.MaxDepth && len(results) < c.MaxPages {
			enqueue(doc, item.url, item.depth+1)
		}
	}

	return results
}

func (c *Crawler) samplePage(ctx context.Context, pageURL string, status int, doc *goquery.Document) PageSample {
	return PageSample{
		URL:               pageURL,
		Status:            status,
		Title:             strings.TrimSpace(doc.Find("title").First().Text()),
		HeadingCount:      doc.Find("h1").Length(),
		MetaDescPresent:   doc.Find(`meta[name="description"]`).Length() > 0,
		CanonicalURL:      attrOr(doc, `link[rel="canonical"]`, "href"),
		ImagesWithoutAlt:  checker.CountImagesWithoutAlt(doc),
		ScriptAssetCount:  doc.Find("script[src]").Length(),
		StyleAssetCount:   doc.Find(`link[rel="stylesheet"]`).Length(),
		LargestImageBytes: c.largestImage(ctx, pageURL, doc),
	}
}

// largestImage HEAD-probes up to a handful of the page's images and
// returns the biggest Content-Length seen. Per-image failures are
// ignored.
func (c *Crawler) largestImage(ctx context.Context, pageURL string, doc *goquery.Document) int64 {
	page, err := url.Parse(pageURL)
	if err != nil {
		return 0
	}
	var max int64
	sampled := 0
	doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sampled >= consts.MaxSampledImagesPerPage {
			return false
		}
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			return true
		}
		resolved, err := page.Parse(src)
		if err != nil {
			return true
		}
		sampled++
		resp, err := c.Client.Head(ctx, resolved.String())
		if err != nil {
			return true
		}
		length, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
		checker.Discard(resp)
		if length > max {
			max = length
		}
		return true
	})
	return max
}

func attrOr(doc *goquery.Document, selector, attr string) string {
	v, _ := doc.Find(selector).Attr(attr)
	return v
}
