package checker

import (
	"strings"
	"testing"
)

func TestScanAccessibilityFindsViolations(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<img src="hero.png">
<a href="/empty"></a>
<button></button>
<input type="text" name="q">
<iframe src="/widget"></iframe>
</body></html>`)

	report := ScanAccessibility(doc)
	if report.ViolationCount != 6 {
		t.Fatalf("expected 6 violations, got %d: %v", report.ViolationCount, report.Violations)
	}

	rules := map[string]bool{}
	for _, v := range report.Violations {
		rule, _, _ := strings.Cut(v, ":")
		rules[rule] = true
	}
	for _, want := range []string{"html-has-lang", "image-alt", "link-name", "button-name", "label", "frame-title"} {
		if !rules[want] {
			t.Errorf("expected a %s violation, got %v", want, report.Violations)
		}
	}
}

func TestScanAccessibilityAcceptsLabelledMarkup(t *testing.T) {
	doc := mustDoc(t, `<html lang="en"><body>
<img src="hero.png" alt="Hero">
<a href="/about">About us</a>
<a href="/logo" aria-label="Home"></a>
<button aria-label="Close"></button>
<label for="q">Search</label><input type="text" id="q">
<label>Email <input type="email"></label>
<input type="hidden" name="token">
<iframe src="/widget" title="Widget"></iframe>
</body></html>`)

	report := ScanAccessibility(doc)
	if report.ViolationCount != 0 {
		t.Fatalf("expected no violations, got %v", report.Violations)
	}
	if report.Violations == nil {
		t.Error("expected empty slice, not nil")
	}
}

func TestScanAccessibilityCapsReportedList(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<html lang="en"><body>`)
	for i := 0; i < 25; i++ {
		sb.WriteString(`<img src="x.png">`)
	}
	sb.WriteString(`</body></html>`)

	report := ScanAccessibility(mustDoc(t, sb.String()))
	if report.ViolationCount != 25 {
		t.Errorf("expected full count 25, got %d", report.ViolationCount)
	}
	if len(report.Violations) != 10 {
		t.Errorf("expected reported list capped at 10, got %d", len(report.Violations))
	}
}
