package links

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khanhnv2901/webaudit/internal/checker"
)

func TestExtractDeduplicatesAndResolves(t *testing.T) {
	html := `<html><body>
<a href="/about">About</a>
<a href="/about">About again</a>
<a href="https://other.example.com/page">External</a>
<a href="mailto:team@example.com">Mail</a>
<a href="javascript:void(0)">JS</a>
<img src="/hero.png">
</body></html>`

	links := Extract("https://example.com", html, KindLink)
	want := []string{
		"https://example.com/about",
		"https://other.example.com/page",
	}
	if len(links) != len(want) {
		t.Fatalf("links = %v", links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("links[%d] = %q, want %q", i, links[i], want[i])
		}
	}

	images := Extract("https://example.com", html, KindImage)
	if len(images) != 1 || images[0] != "https://example.com/hero.png" {
		t.Errorf("images = %v", images)
	}
}

func TestCheckFindsBrokenTargets(t *testing.T) {
	var headOnlyGets atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/gone":
			http.NotFound(w, r)
		case "/no-head":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			headOnlyGets.Add(1)
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	html := fmt.Sprintf(`<html><body>
<a href="%s/ok">ok</a>
<a href="%s/gone">gone</a>
<a href="%s/no-head">no head</a>
</body></html>`, server.URL, server.URL, server.URL)

	v := NewValidator(checker.NewClient(2*time.Second), nil)
	result := v.Check(context.Background(), server.URL, html, KindLink)

	if result.Total != 3 {
		t.Errorf("total = %d, want 3", result.Total)
	}
	if len(result.Broken) != 1 || result.Broken[0] != server.URL+"/gone" {
		t.Errorf("broken = %v", result.Broken)
	}
	if headOnlyGets.Load() != 1 {
		t.Errorf("expected one GET fallback after 405 HEAD, got %d", headOnlyGets.Load())
	}
}

func TestProbeAllCoversEveryURLOnce(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	urls := make([]string, 20)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/page-%d", server.URL, i)
	}

	v := NewValidator(checker.NewClient(2*time.Second), nil)
	v.Limiter = nil
	broken := v.probeAll(context.Background(), urls)

	if len(broken) != 0 {
		t.Errorf("broken = %v", broken)
	}
	if hits.Load() != int64(len(urls)) {
		t.Errorf("expected %d probes, got %d", len(urls), hits.Load())
	}
}

func TestCheckEmptyPage(t *testing.T) {
	v := NewValidator(checker.NewClient(time.Second), nil)
	result := v.Check(context.Background(), "https://example.com", "<html></html>", KindLink)
	if result.Total != 0 {
		t.Errorf("total = %d", result.Total)
	}
	if result.Broken == nil || len(result.Broken) != 0 {
		t.Errorf("broken = %v", result.Broken)
	}
}
