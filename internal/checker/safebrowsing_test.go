package checker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSafeBrowsingCheckWithoutKeyIsNeutral(t *testing.T) {
	checker := NewSafeBrowsingChecker(NewClient(time.Second), "")
	threats := checker.Check(context.Background(), "https://example.com")
	if threats == nil || len(threats) != 0 {
		t.Fatalf("expected empty threat list, got %v", threats)
	}
}

func TestSafeBrowsingCheckDeduplicatesThreatTypes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query: %s", r.URL.RawQuery)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"matches":[
			{"threatType":"MALWARE"},
			{"threatType":"MALWARE"},
			{"threatType":"SOCIAL_ENGINEERING"}
		]}`))
	}))
	defer server.Close()

	checker := &SafeBrowsingChecker{Client: NewClient(time.Second), Endpoint: server.URL, APIKey: "test-key"}
	threats := checker.Check(context.Background(), "https://bad.example.com")
	if len(threats) != 2 {
		t.Fatalf("expected 2 unique threats, got %v", threats)
	}
	if threats[0] != "MALWARE" || threats[1] != "SOCIAL_ENGINEERING" {
		t.Errorf("unexpected threats: %v", threats)
	}
}

func TestSafeBrowsingCheckDegradesOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	checker := &SafeBrowsingChecker{Client: NewClient(time.Second), Endpoint: server.URL, APIKey: "k"}
	if threats := checker.Check(context.Background(), "https://example.com"); len(threats) != 0 {
		t.Fatalf("expected neutral result, got %v", threats)
	}
}
