package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPageSpeedFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != "https://example.com" {
			t.Errorf("url param = %q", got)
		}
		if got := r.URL.Query()["category"]; len(got) != 4 {
			t.Errorf("expected 4 categories, got %v", got)
		}
		_, _ = w.Write([]byte(`{"lighthouseResult":{"categories":{
			"performance":{"score":0.92},
			"accessibility":{"score":0.88},
			"best-practices":{"score":1},
			"seo":{"score":0.75}
		}}}`))
	}))
	defer server.Close()

	checker := &PageSpeedChecker{Client: NewClient(time.Second), Endpoint: server.URL}
	scores := checker.Fetch(context.Background(), "https://example.com")
	if scores.Performance == nil || *scores.Performance != 0.92 {
		t.Errorf("performance = %v", scores.Performance)
	}
	if scores.SEO == nil || *scores.SEO != 0.75 {
		t.Errorf("seo = %v", scores.SEO)
	}
	if scores.BestPractices == nil || *scores.BestPractices != 1 {
		t.Errorf("best practices = %v", scores.BestPractices)
	}
}

func TestPageSpeedFetchDegradesOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	checker := &PageSpeedChecker{Client: NewClient(time.Second), Endpoint: server.URL}
	scores := checker.Fetch(context.Background(), "https://example.com")
	if scores.Performance != nil || scores.Accessibility != nil || scores.BestPractices != nil || scores.SEO != nil {
		t.Fatalf("expected neutral scores, got %+v", scores)
	}
}
