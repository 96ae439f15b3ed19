package middleware

import (
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audits", nil))

	if ctxID == "" {
		t.Fatal("no request ID in context")
	}
	if raw, err := hex.DecodeString(ctxID); err != nil || len(raw) != 8 {
		t.Errorf("generated ID %q is not 8 random bytes in hex", ctxID)
	}
	if got := rec.Header().Get("X-Request-ID"); got != ctxID {
		t.Errorf("response header %q does not match context ID %q", got, ctxID)
	}
}

func TestRequestIDHonorsClientHeader(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/audits", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if ctxID != "trace-42" {
		t.Errorf("context ID = %q", ctxID)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "trace-42" {
		t.Errorf("echoed header = %q", got)
	}
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("expected empty ID outside the middleware, got %q", id)
	}
}

func TestGeneratedRequestIDsAreUnique(t *testing.T) {
	seen := map[string]struct{}{}
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[GetRequestID(r.Context())] = struct{}{}
	}))

	for i := 0; i < 50; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if len(seen) != 50 {
		t.Errorf("expected 50 distinct IDs, got %d", len(seen))
	}
}
