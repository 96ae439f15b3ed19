package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVulnLookupWithoutTokenIsNeutral(t *testing.T) {
	checker := NewVulnChecker(NewClient(time.Second), "")
	result := checker.Lookup(context.Background(), "plugins", []string{"akismet"})
	if result == nil || len(result) != 0 {
		t.Fatalf("expected empty map, got %v", result)
	}
}

func TestVulnLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token token=secret" {
			t.Errorf("authorization header = %q", got)
		}
		switch r.URL.Path {
		case "/plugins/contact-form-7":
			_, _ = w.Write([]byte(`{"contact-form-7":{"vulnerabilities":[
				{"title":"Stored XSS","fixed_in":"5.8.1"}
			]}}`))
		case "/plugins/akismet":
			_, _ = w.Write([]byte(`{"akismet":{"vulnerabilities":[]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	checker := &VulnChecker{Client: NewClient(time.Second), BaseURL: server.URL, APIToken: "secret"}
	result := checker.Lookup(context.Background(), "plugins", []string{"contact-form-7", "akismet", "unknown"})

	if len(result) != 1 {
		t.Fatalf("expected one entry, got %v", result)
	}
	vulns := result["contact-form-7"]
	if len(vulns) != 1 || vulns[0].Title != "Stored XSS" || vulns[0].FixedIn != "5.8.1" {
		t.Errorf("unexpected vulnerabilities: %+v", vulns)
	}
}
