package checker

import (
	"net/http"
	"strings"
)

// requiredSecurityHeaders is the set every audited site should send.
var requiredSecurityHeaders = []string{
	"content-security-policy",
	"x-frame-options",
	"x-content-type-options",
	"strict-transport-security",
	"referrer-policy",
	"permissions-policy",
	"cross-origin-opener-policy",
	"cross-origin-embedder-policy",
}

// recommendedSecurityHeaderValues maps headers with a small accepted
// value set. A present header whose value matches none of the accepted
// substrings is reported as misconfigured.
var recommendedSecurityHeaderValues = map[string][]string{
	"x-frame-options":              {"deny", "sameorigin"},
	"x-content-type-options":       {"nosniff"},
	"cross-origin-opener-policy":   {"same-origin"},
	"cross-origin-embedder-policy": {"require-corp"},
}

// SecurityHeadersReport lists which required headers are absent and
// which present ones carry unexpected values.
type SecurityHeadersReport struct {
	Missing       []string `json:"missingSecurityHeaders"`
	Misconfigured []string `json:"misconfiguredSecurityHeaders"`
}

// AnalyzeSecurityHeaders inspects a response header set against the
// required list. Pure function of the headers; order of the reported
// lists follows the declaration order above.
func AnalyzeSecurityHeaders(header http.Header) SecurityHeadersReport {
	report := SecurityHeadersReport{
		Missing:       []string{},
		Misconfigured: []string{},
	}
	for _, name := range requiredSecurityHeaders {
		if header.Get(name) == "" {
			report.Missing = append(report.Missing, name)
		}
	}
	for _, name := range requiredSecurityHeaders {
		accepted, ok := recommendedSecurityHeaderValues[name]
		if !ok {
			continue
		}
		actual := strings.ToLower(strings.Join(header.Values(name), ","))
		if actual == "" {
			continue
		}
		matched := false
		for _, want := range accepted {
			if strings.Contains(actual, want) {
				matched = true
				break
			}
		}
		if !matched {
			report.Misconfigured = append(report.Misconfigured, name)
		}
	}
	return report
}
