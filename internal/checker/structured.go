package checker

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SchemaError describes one ld+json block that failed validation.
type SchemaError struct {
	Raw   string `json:"raw"`
	Error string `json:"error"`
}

// StructuredDataReport summarizes JSON-LD blocks found on a page.
type StructuredDataReport struct {
	Present        bool          `json:"structuredDataPresent"`
	ValidCount     int           `json:"validCount"`
	InvalidSchemas []SchemaError `json:"invalidSchemas"`
}

// ValidateStructuredData parses script[type="application/ld+json"]
// blocks. An item is valid when it parses as JSON and carries both
// @context and @type; arrays are validated item by item.
func ValidateStructuredData(doc *goquery.Document) StructuredDataReport {
	report := StructuredDataReport{InvalidSchemas: []SchemaError{}}
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		report.Present = true
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		var parsed any
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			report.InvalidSchemas = append(report.InvalidSchemas, SchemaError{Raw: text, Error: err.Error()})
			return
		}
		items, ok := parsed.([]any)
		if !ok {
			items = []any{parsed}
		}
		for _, item := range items {
			if isSchemaThing(item) {
				report.ValidCount++
				continue
			}
			raw, _ := json.Marshal(item)
			report.InvalidSchemas = append(report.InvalidSchemas, SchemaError{
				Raw:   string(raw),
				Error: "missing @context or @type",
			})
		}
	})
	return report
}

func isSchemaThing(v any) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return false
	}
	t, ok := obj["@type"].(string)
	if !ok || t == "" {
		return false
	}
	_, hasContext := obj["@context"]
	return hasContext
}
