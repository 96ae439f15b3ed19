package checker

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	consts "github.com/khanhnv2901/webaudit/internal/constants"
)

// AccessibilityReport is the static accessibility scan result. The
// count covers every violation found; the message list is capped so a
// pathological page cannot inflate the summary.
type AccessibilityReport struct {
	ViolationCount int      `json:"accessibilityViolationCount"`
	Violations     []string `json:"accessibilityViolations"`
}

// ScanAccessibility runs a static rule set over the parsed page. It is
// intentionally markup-only: anything requiring a rendered DOM is left
// to the PageSpeed accessibility score.
func ScanAccessibility(doc *goquery.Document) AccessibilityReport {
	var found []string
	add := func(rule, detail string) {
		found = append(found, fmt.Sprintf("%s: %s", rule, detail))
	}

	if lang, ok := doc.Find("html").Attr("lang"); !ok || strings.TrimSpace(lang) == "" {
		add("html-has-lang", "<html> element has no lang attribute")
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if alt, ok := sel.Attr("alt"); !ok || alt == "" {
			src, _ := sel.Attr("src")
			add("image-alt", fmt.Sprintf("image %q has no alternative text", src))
		}
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if strings.TrimSpace(sel.Text()) != "" {
			return
		}
		if _, ok := sel.Attr("aria-label"); ok {
			return
		}
		if sel.Find("img[alt]").Length() > 0 {
			return
		}
		href, _ := sel.Attr("href")
		add("link-name", fmt.Sprintf("link to %q has no accessible name", href))
	})

	doc.Find("button").Each(func(_ int, sel *goquery.Selection) {
		if strings.TrimSpace(sel.Text()) != "" {
			return
		}
		if _, ok := sel.Attr("aria-label"); ok {
			return
		}
		add("button-name", "button has no accessible name")
	})

	labelled := map[string]struct{}{}
	doc.Find("label[for]").Each(func(_ int, sel *goquery.Selection) {
		if id, ok := sel.Attr("for"); ok {
			labelled[id] = struct{}{}
		}
	})
	doc.Find("input, select, textarea").Each(func(_ int, sel *goquery.Selection) {
		typ, _ := sel.Attr("type")
		switch strings.ToLower(typ) {
		case "hidden", "submit", "button", "reset", "image":
			return
		}
		if _, ok := sel.Attr("aria-label"); ok {
			return
		}
		if sel.ParentsFiltered("label").Length() > 0 {
			return
		}
		if id, ok := sel.Attr("id"); ok {
			if _, ok := labelled[id]; ok {
				return
			}
		}
		add("label", "form field has no associated label")
	})

	doc.Find("iframe").Each(func(_ int, sel *goquery.Selection) {
		if title, ok := sel.Attr("title"); !ok || strings.TrimSpace(title) == "" {
			add("frame-title", "iframe has no title attribute")
		}
	})

	report := AccessibilityReport{
		ViolationCount: len(found),
		Violations:     found,
	}
	if len(report.Violations) > consts.MaxReportedItems {
		report.Violations = report.Violations[:consts.MaxReportedItems]
	}
	if report.Violations == nil {
		report.Violations = []string{}
	}
	return report
}
