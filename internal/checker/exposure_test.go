package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func exposedSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\n"))
	})
	mux.HandleFunc("/xmlrpc.php", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	mux.HandleFunc("/wp-json/wp/v2/users", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"slug":"admin"}]`))
	})
	mux.HandleFunc("/wp-content/uploads/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><title>Index of /wp-content/uploads</title></html>"))
	})
	mux.HandleFunc("/wp-config.php.bak", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`define('DB_NAME', 'wp');`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestExposureProbesOnLeakySite(t *testing.T) {
	site := exposedSite(t)
	client := NewClient(2 * time.Second)
	ctx := context.Background()

	if !client.PathExists(ctx, site.URL, "/robots.txt") {
		t.Error("expected robots.txt to be found")
	}
	if client.PathExists(ctx, site.URL, "/sitemap.xml") {
		t.Error("expected sitemap.xml to be absent")
	}
	if !client.CheckXMLRPC(ctx, site.URL) {
		t.Error("expected XML-RPC endpoint to be detected via 405")
	}
	if !client.CheckUserEnumeration(ctx, site.URL) {
		t.Error("expected user enumeration to be detected")
	}
	if !client.CheckDirectoryListing(ctx, site.URL) {
		t.Error("expected directory listing to be detected")
	}
	if !client.CheckWPConfigBackup(ctx, site.URL) {
		t.Error("expected wp-config backup to be detected")
	}
}

func TestExposureProbesOnHardenedSite(t *testing.T) {
	site := httptest.NewServer(http.NotFoundHandler())
	defer site.Close()
	client := NewClient(2 * time.Second)
	ctx := context.Background()

	if client.PathExists(ctx, site.URL, "/robots.txt") {
		t.Error("expected no robots.txt")
	}
	if client.CheckXMLRPC(ctx, site.URL) {
		t.Error("expected no XML-RPC detection")
	}
	if client.CheckUserEnumeration(ctx, site.URL) {
		t.Error("expected no user enumeration")
	}
	if client.CheckDirectoryListing(ctx, site.URL) {
		t.Error("expected no directory listing")
	}
	if client.CheckWPConfigBackup(ctx, site.URL) {
		t.Error("expected no wp-config backup")
	}
}
