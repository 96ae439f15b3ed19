// Package constants centralizes tunables shared across the audit engine.
package constants

import "time"

const (
	// UserAgent is sent with every outbound probe.
	UserAgent = "webaudit/1.0"

	// RootFetchTimeout bounds the initial fetch of the audited page.
	RootFetchTimeout = 12 * time.Second

	// ProbeTimeout bounds lightweight existence probes (links, images,
	// exposure paths, CMS endpoints).
	ProbeTimeout = 8 * time.Second

	// CrawlFetchTimeout bounds each crawled page fetch.
	CrawlFetchTimeout = 10 * time.Second

	// PageSpeedTimeout bounds the PageSpeed Insights call, which is
	// noticeably slower than everything else.
	PageSpeedTimeout = 15 * time.Second

	// AuditTimeout bounds one complete audit end to end.
	AuditTimeout = 5 * time.Minute
)

const (
	// DefaultLinkConcurrency is the worker-pool size for link/image probes.
	DefaultLinkConcurrency = 5

	// DefaultProbeRate limits outbound probes per second across a pool.
	DefaultProbeRate = 10

	// DefaultMaxCrawlDepth bounds how many hops from the root the crawler
	// will follow.
	DefaultMaxCrawlDepth = 1

	// DefaultMaxCrawlPages bounds how many pages one crawl may visit.
	DefaultMaxCrawlPages = 5

	// MaxSampledImagesPerPage caps per-page image size probes.
	MaxSampledImagesPerPage = 5

	// MaxReportedItems caps the accessibility violation detail list.
	// Counted collections (mixed content, broken links) are reported in
	// full so their counts always equal their lengths.
	MaxReportedItems = 10
)

const (
	// KeepAliveInterval is the SSE ping cadence.
	KeepAliveInterval = 15 * time.Second

	// MaxBodyBytes caps how much of a fetched page is read into memory.
	MaxBodyBytes = 2 * 1024 * 1024
)
