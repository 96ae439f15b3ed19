package api

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/khanhnv2901/webaudit/internal/audit"
	"github.com/khanhnv2901/webaudit/internal/events"
	"github.com/khanhnv2901/webaudit/internal/storage"
)

func readFramePayload(t *testing.T, r *bufio.Reader) (json.RawMessage, bool) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			return nil, false
		}
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			t.Fatalf("unexpected stream line %q", line)
		}
		return json.RawMessage(payload), true
	}
}

func readFrame(t *testing.T, r *bufio.Reader) (streamFrame, bool) {
	t.Helper()
	payload, ok := readFramePayload(t, r)
	if !ok {
		return streamFrame{}, false
	}
	var frame streamFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("decode frame %q: %v", payload, err)
	}
	return frame, true
}

func TestStreamTerminalAuditSendsSnapshotAndCloses(t *testing.T) {
	stub := newStubAudits()
	stub.audits["done-audit"] = &storage.Audit{
		ID:      "done-audit",
		Status:  storage.StatusDone,
		Summary: json.RawMessage(`{"status":200,"title":"Example"}`),
	}
	server := httptest.NewServer(newTestServer(stub))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/audits/done-audit/events")
	if err != nil {
		t.Fatalf("get stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	br := bufio.NewReader(resp.Body)
	frame, ok := readFrame(t, br)
	if !ok {
		t.Fatal("expected a snapshot frame")
	}
	if frame.Status != storage.StatusDone {
		t.Errorf("snapshot status = %s", frame.Status)
	}
	if !strings.Contains(string(frame.Summary), `"title":"Example"`) {
		t.Errorf("snapshot summary = %s", frame.Summary)
	}
	if _, ok := readFrame(t, br); ok {
		t.Error("expected stream to close after terminal snapshot")
	}
}

func TestStreamLiveAuditForwardsEventsUntilDone(t *testing.T) {
	stub := newStubAudits()
	stub.audits["live"] = &storage.Audit{ID: "live", Status: storage.StatusRunning}
	ch := stub.registry.Create("live")

	server := httptest.NewServer(newTestServer(stub))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/audits/live/events")
	if err != nil {
		t.Fatalf("get stream: %v", err)
	}
	defer resp.Body.Close()
	br := bufio.NewReader(resp.Body)

	snapshot, ok := readFrame(t, br)
	if !ok || snapshot.Status != storage.StatusRunning {
		t.Fatalf("snapshot = %+v ok=%v", snapshot, ok)
	}

	// The handler subscribed before it wrote the snapshot, so events
	// published from here on are guaranteed to be delivered.
	ch.Publish(events.Event{Kind: events.KindProgress, Step: "links", Message: "Checking for broken links..."})
	ch.Publish(events.Event{Kind: events.KindError, Message: "fetch failed"})

	progress, ok := readFrame(t, br)
	if !ok || progress.Step != "links" {
		t.Fatalf("progress frame = %+v ok=%v", progress, ok)
	}
	terminal, ok := readFrame(t, br)
	if !ok || terminal.Status != storage.StatusError || terminal.Message != "fetch failed" {
		t.Fatalf("terminal frame = %+v ok=%v", terminal, ok)
	}
	if _, ok := readFrame(t, br); ok {
		t.Error("expected stream to close after terminal event")
	}
}

func TestStreamDoneFrameFlattensSummary(t *testing.T) {
	stub := newStubAudits()
	stub.audits["live"] = &storage.Audit{ID: "live", Status: storage.StatusRunning}
	ch := stub.registry.Create("live")

	server := httptest.NewServer(newTestServer(stub))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/audits/live/events")
	if err != nil {
		t.Fatalf("get stream: %v", err)
	}
	defer resp.Body.Close()
	br := bufio.NewReader(resp.Body)

	if _, ok := readFrame(t, br); !ok {
		t.Fatal("expected snapshot frame")
	}

	summary := &audit.Summary{
		BrokenLinkCount: 1,
		BrokenLinks:     []string{"https://example.com/x"},
	}
	summary.Title = "Example"
	ch.Publish(events.Event{Kind: events.KindDone, Payload: summary})

	payload, ok := readFramePayload(t, br)
	if !ok {
		t.Fatal("expected terminal frame")
	}
	var frame map[string]any
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("decode terminal frame: %v", err)
	}
	if frame["status"] != "done" {
		t.Errorf("status = %v", frame["status"])
	}
	// Summary fields sit at the top level of the terminal frame, not
	// inside a nested summary object.
	if _, nested := frame["summary"]; nested {
		t.Error("terminal frame nests the summary instead of flattening it")
	}
	if frame["brokenLinkCount"] != float64(1) {
		t.Errorf("brokenLinkCount = %v", frame["brokenLinkCount"])
	}
	links, _ := frame["brokenLinks"].([]any)
	if len(links) != 1 || links[0] != "https://example.com/x" {
		t.Errorf("brokenLinks = %v", frame["brokenLinks"])
	}
	if frame["title"] != "Example" {
		t.Errorf("title = %v", frame["title"])
	}
}

func TestStreamSendsKeepAlivePings(t *testing.T) {
	stub := newStubAudits()
	stub.audits["live"] = &storage.Audit{ID: "live", Status: storage.StatusRunning}
	stub.registry.Create("live")

	server := httptest.NewServer(NewServer(Config{Audits: stub, PingInterval: 20 * time.Millisecond}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/audits/live/events")
	if err != nil {
		t.Fatalf("get stream: %v", err)
	}
	defer resp.Body.Close()
	br := bufio.NewReader(resp.Body)

	// Skip the snapshot frame, then expect a comment ping.
	if _, ok := readFrame(t, br); !ok {
		t.Fatal("expected snapshot frame")
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if strings.HasPrefix(line, ": ping") {
			return
		}
	}
	t.Fatal("no keep-alive ping observed")
}

func TestStreamUnknownAudit(t *testing.T) {
	server := httptest.NewServer(newTestServer(newStubAudits()))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/audits/nope/events")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
