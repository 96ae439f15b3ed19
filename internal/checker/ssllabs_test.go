package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSSLLabsGradeFromCachedAssessment(t *testing.T) {
	var gotHost, gotFromCache string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.URL.Query().Get("host")
		gotFromCache = r.URL.Query().Get("fromCache")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"READY","endpoints":[{"grade":"A"},{"grade":"B"}]}`))
	}))
	defer server.Close()

	checker := &SSLLabsChecker{Client: NewClient(2 * time.Second), Endpoint: server.URL}
	report := checker.Analyze(context.Background(), "https://example.com/some/page")

	if report == nil || report.Grade != "A" {
		t.Fatalf("report = %+v", report)
	}
	if gotHost != "example.com" {
		t.Errorf("host param = %q", gotHost)
	}
	if gotFromCache != "on" {
		t.Errorf("fromCache param = %q", gotFromCache)
	}
}

func TestSSLLabsNotReadyIsNeutral(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"IN_PROGRESS","endpoints":[]}`))
	}))
	defer server.Close()

	checker := &SSLLabsChecker{Client: NewClient(2 * time.Second), Endpoint: server.URL}
	if report := checker.Analyze(context.Background(), "https://example.com"); report != nil {
		t.Errorf("expected nil for an unfinished assessment, got %+v", report)
	}
}

func TestSSLLabsFailureIsNeutral(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	checker := &SSLLabsChecker{Client: NewClient(2 * time.Second), Endpoint: server.URL}
	if report := checker.Analyze(context.Background(), "https://example.com"); report != nil {
		t.Errorf("expected nil on API failure, got %+v", report)
	}
}
