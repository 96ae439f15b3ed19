package audit

import (
	"github.com/khanhnv2901/webaudit/internal/checker"
	"github.com/khanhnv2901/webaudit/internal/crawler"
)

// VulnerabilityReport groups lookup results by asset kind.
type VulnerabilityReport struct {
	Plugins map[string][]checker.Vulnerability `json:"plugins"`
	Themes  map[string][]checker.Vulnerability `json:"themes"`
}

// Summary is the merged result of every check, keyed deterministically
// by field. Embedded reports marshal flat, so the wire shape is one
// object. Counts over collections are derived in finalize from the
// collections themselves; nothing computes them independently.
type Summary struct {
	Status int `json:"status"`

	checker.PageInfo
	checker.SecurityHeadersReport
	checker.AccessibilityReport
	checker.StructuredDataReport
	checker.WordPressInfo
	checker.PageSpeedScores

	MixedContentCount int      `json:"mixedContentCount"`
	MixedContent      []string `json:"mixedContent"`

	BrokenLinkCount  int      `json:"brokenLinkCount"`
	BrokenLinks      []string `json:"brokenLinks"`
	BrokenImageCount int      `json:"brokenImageCount"`
	BrokenImages     []string `json:"brokenImages"`

	RobotsTxtPresent bool                   `json:"robotsTxtPresent"`
	SitemapPresent   bool                   `json:"sitemapPresent"`
	SSL              *checker.CertInfo      `json:"ssl"`
	SSLLabs          *checker.SSLLabsReport `json:"sslLabs"`

	XMLRPCEnabled          bool `json:"xmlRpcEnabled"`
	UserEnumerationEnabled bool `json:"userEnumerationEnabled"`
	DirectoryListing       bool `json:"directoryListing"`
	WPConfigBakExposed     bool `json:"wpConfigBakExposed"`

	Plugins         []checker.AssetDetail `json:"plugins"`
	Themes          []checker.AssetDetail `json:"themes"`
	Vulnerabilities VulnerabilityReport   `json:"vulnerabilities"`

	SafeBrowsingThreats []string `json:"safeBrowsingThreats"`

	PageSamples []crawler.PageSample `json:"pageSamples"`
}

// finalize derives every collection count and replaces nil slices with
// empty ones so the marshaled summary has a stable shape.
func (s *Summary) finalize() {
	if s.BrokenLinks == nil {
		s.BrokenLinks = []string{}
	}
	if s.BrokenImages == nil {
		s.BrokenImages = []string{}
	}
	if s.MixedContent == nil {
		s.MixedContent = []string{}
	}
	if s.SafeBrowsingThreats == nil {
		s.SafeBrowsingThreats = []string{}
	}
	if s.Plugins == nil {
		s.Plugins = []checker.AssetDetail{}
	}
	if s.Themes == nil {
		s.Themes = []checker.AssetDetail{}
	}
	if s.PageSamples == nil {
		s.PageSamples = []crawler.PageSample{}
	}
	if s.Vulnerabilities.Plugins == nil {
		s.Vulnerabilities.Plugins = map[string][]checker.Vulnerability{}
	}
	if s.Vulnerabilities.Themes == nil {
		s.Vulnerabilities.Themes = map[string][]checker.Vulnerability{}
	}
	s.BrokenLinkCount = len(s.BrokenLinks)
	s.BrokenImageCount = len(s.BrokenImages)
	s.MixedContentCount = len(s.MixedContent)
}
