// Package links validates discovered link and image URLs with a
// bounded worker pool.
package links

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/webaudit/internal/checker"
	consts "github.com/khanhnv2901/webaudit/internal/constants"
)

// Kind selects which element set to validate.
type Kind string

const (
	KindLink  Kind = "link"
	KindImage Kind = "image"
)

// Result is the validation outcome. Total always equals the number of
// distinct resolved http(s) candidates; the order of Broken is not
// defined because workers race to claim URLs.
type Result struct {
	Total  int      `json:"total"`
	Broken []string `json:"broken"`
}

// Validator probes candidate URLs for reachability.
type Validator struct {
	Client      *checker.Client
	Concurrency int
	Limiter     *rate.Limiter
	Logger      *zap.Logger
}

func NewValidator(client *checker.Client, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		Client:      client,
		Concurrency: consts.DefaultLinkConcurrency,
		Limiter:     rate.NewLimiter(rate.Limit(consts.DefaultProbeRate), consts.DefaultProbeRate),
		Logger:      logger,
	}
}

// Check extracts candidates of the requested kind from html, resolves
// them against baseURL and probes each distinct URL once.
func (v *Validator) Check(ctx context.Context, baseURL, html string, kind Kind) Result {
	candidates := Extract(baseURL, html, kind)
	broken := v.probeAll(ctx, candidates)
	return Result{Total: len(candidates), Broken: broken}
}

// Extract returns the deduplicated absolute http(s) URLs referenced by
// anchors (kind link) or images (kind image). Unparseable references
// and non-http schemes are dropped.
func Extract(baseURL, html string, kind Kind) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	selector, attr := "a[href]", "href"
	if kind == KindImage {
		selector, attr = "img[src]", "src"
	}

	seen := map[string]struct{}{}
	var ordered []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		raw, ok := sel.Attr(attr)
		if !ok || raw == "" {
			return
		}
		resolved, err := base.Parse(raw)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		key := resolved.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		ordered = append(ordered, key)
	})
	return ordered
}

// probeAll runs the worker pool. Workers claim the next candidate via
// an atomic cursor so no URL is probed twice or skipped.
func (v *Validator) probeAll(ctx context.Context, urls []string) []string {
	if len(urls) == 0 {
		return []string{}
	}
	workers := v.Concurrency
	if workers > len(urls) {
		workers = len(urls)
	}
	if workers < 1 {
		workers = 1
	}

	var cursor atomic.Int64
	var mu sync.Mutex
	broken := []string{}
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := int(cursor.Add(1)) - 1
				if idx >= len(urls) {
					return
				}
				if v.Limiter != nil {
					if err := v.Limiter.Wait(ctx); err != nil {
						return
					}
				}
				target := urls[idx]
				if !v.reachable(ctx, target) {
					mu.Lock()
					broken = append(broken, target)
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	return broken
}

// reachable probes one URL. HEAD first; when the server rejects the
// method (405/501) a full GET decides. Transport errors and final
// statuses >= 400 both count as broken.
func (v *Validator) reachable(ctx context.Context, target string) bool {
	resp, err := v.Client.Head(ctx, target)
	if err != nil {
		return false
	}
	status := resp.StatusCode
	checker.Discard(resp)

	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		getResp, err := v.Client.Get(ctx, target)
		if err != nil {
			return false
		}
		status = getResp.StatusCode
		checker.Discard(getResp)
	}
	if status >= 400 {
		v.Logger.Debug("broken url",
			zap.String("url", target),
			zap.Int("status", status),
		)
		return false
	}
	return true
}
