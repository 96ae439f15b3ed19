// Package audit owns the lifecycle of one audit: record creation, the
// concurrent fan-out of checks, deterministic merge, persistence and
// progress event delivery.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/webaudit/internal/checker"
	consts "github.com/khanhnv2901/webaudit/internal/constants"
	"github.com/khanhnv2901/webaudit/internal/crawler"
	"github.com/khanhnv2901/webaudit/internal/events"
	"github.com/khanhnv2901/webaudit/internal/links"
	"github.com/khanhnv2901/webaudit/internal/storage"
)

// Config wires the orchestrator's collaborators. Store is required;
// everything else defaults to production implementations so tests can
// override only what they stub.
type Config struct {
	Store    storage.Store
	Registry *events.Registry
	Logger   *zap.Logger

	Crawler      *crawler.Crawler
	Validator    *links.Validator
	WordPress    *checker.WordPressChecker
	Vulns        *checker.VulnChecker
	SafeBrowsing *checker.SafeBrowsingChecker
	PageSpeed    *checker.PageSpeedChecker
	SSLLabs      *checker.SSLLabsChecker

	SafeBrowsingAPIKey string
	PageSpeedAPIKey    string
	VulnAPIToken       string
}

// Service runs audits. One Service handles many audits concurrently;
// audits share no mutable state beyond the channel registry.
type Service struct {
	store      storage.Store
	registry   *events.Registry
	logger     *zap.Logger
	rootClient *checker.Client

	crawler      *crawler.Crawler
	validator    *links.Validator
	wp           *checker.WordPressChecker
	vulns        *checker.VulnChecker
	safeBrowsing *checker.SafeBrowsingChecker
	pagespeed    *checker.PageSpeedChecker
	sslLabs      *checker.SSLLabsChecker
}

func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = events.NewRegistry()
	}
	probeClient := checker.NewClient(consts.ProbeTimeout)

	s := &Service{
		store:        cfg.Store,
		registry:     registry,
		logger:       logger,
		rootClient:   checker.NewClient(consts.RootFetchTimeout),
		crawler:      cfg.Crawler,
		validator:    cfg.Validator,
		wp:           cfg.WordPress,
		vulns:        cfg.Vulns,
		safeBrowsing: cfg.SafeBrowsing,
		pagespeed:    cfg.PageSpeed,
		sslLabs:      cfg.SSLLabs,
	}
	if s.crawler == nil {
		s.crawler = crawler.New(checker.NewClient(consts.CrawlFetchTimeout), logger)
	}
	if s.validator == nil {
		s.validator = links.NewValidator(probeClient, logger)
	}
	if s.wp == nil {
		s.wp = checker.NewWordPressChecker(probeClient)
	}
	if s.vulns == nil {
		s.vulns = checker.NewVulnChecker(probeClient, cfg.VulnAPIToken)
	}
	if s.safeBrowsing == nil {
		s.safeBrowsing = checker.NewSafeBrowsingChecker(probeClient, cfg.SafeBrowsingAPIKey)
	}
	if s.pagespeed == nil {
		s.pagespeed = checker.NewPageSpeedChecker(checker.NewClient(consts.PageSpeedTimeout), cfg.PageSpeedAPIKey)
	}
	if s.sslLabs == nil {
		s.sslLabs = checker.NewSSLLabsChecker(probeClient)
	}
	return s
}

// Registry exposes the channel registry for stream handlers.
func (s *Service) Registry() *events.Registry {
	return s.registry
}

// Channel returns the live event channel for a running audit.
func (s *Service) Channel(id string) (*events.Channel, bool) {
	return s.registry.Get(id)
}

// GetAudit returns the persisted record.
func (s *Service) GetAudit(ctx context.Context, id string) (*storage.Audit, error) {
	return s.store.GetAudit(ctx, id)
}

// StartAudit creates the record, registers the progress channel and
// schedules processing. It returns the audit ID immediately; no check
// work happens before the caller gets its response.
func (s *Service) StartAudit(ctx context.Context, url string) (string, error) {
	record, err := s.store.CreateAudit(ctx, url)
	if err != nil {
		return "", fmt.Errorf("create audit: %w", err)
	}
	s.registry.Create(record.ID)
	go s.process(record.ID, url)
	return record.ID, nil
}

// process drives one audit to a terminal state. The registry entry is
// removed unconditionally, and exactly one terminal persist + event
// happens on every path, including panics inside checks.
func (s *Service) process(id, targetURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), consts.AuditTimeout)
	defer cancel()
	defer s.registry.Remove(id)

	ch, ok := s.registry.Get(id)
	if !ok {
		ch = s.registry.Create(id)
	}

	started := time.Now()
	summary, err := s.runSupervised(ctx, id, targetURL, ch)
	if err != nil {
		s.logger.Warn("audit failed",
			zap.String("audit_id", id),
			zap.String("url", targetURL),
			zap.Error(err),
		)
		s.terminateError(ctx, id, ch, err)
		return
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		s.terminateError(ctx, id, ch, fmt.Errorf("encode summary: %w", err))
		return
	}
	if err := s.store.UpdateAudit(ctx, id, storage.StatusDone, payload); err != nil {
		s.terminateError(ctx, id, ch, fmt.Errorf("persist summary: %w", err))
		return
	}
	s.logger.Info("audit done",
		zap.String("audit_id", id),
		zap.String("url", targetURL),
		zap.Duration("took", time.Since(started)),
		zap.Int("broken_links", summary.BrokenLinkCount),
		zap.Int("pages_crawled", len(summary.PageSamples)),
	)
	ch.Publish(events.Event{Kind: events.KindDone, Payload: summary})
}

func (s *Service) terminateError(ctx context.Context, id string, ch *events.Channel, cause error) {
	diagnostic, _ := json.Marshal(cause.Error())
	if err := s.store.UpdateAudit(ctx, id, storage.StatusError, diagnostic); err != nil {
		s.logger.Error("failed to persist audit error",
			zap.String("audit_id", id),
			zap.Error(err),
		)
	}
	ch.Publish(events.Event{Kind: events.KindError, Message: cause.Error()})
}

// runSupervised converts panics from misbehaving checks into an error
// result so the audit still reaches a terminal state.
func (s *Service) runSupervised(ctx context.Context, id, targetURL string, ch *events.Channel) (summary *Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			summary = nil
			err = fmt.Errorf("audit panicked: %v", r)
		}
	}()
	return s.run(ctx, id, targetURL, ch)
}

func progress(ch *events.Channel, step, message string) {
	ch.Publish(events.Event{Kind: events.KindProgress, Step: step, Message: message})
}

func (s *Service) run(ctx context.Context, id, targetURL string, ch *events.Channel) (*Summary, error) {
	progress(ch, "fetch", fmt.Sprintf("Fetching %s...", targetURL))
	if err := s.store.UpdateAudit(ctx, id, storage.StatusRunning, nil); err != nil {
		return nil, fmt.Errorf("mark running: %w", err)
	}

	fetched, err := s.rootClient.FetchPage(ctx, targetURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", targetURL, err)
	}
	doc, err := fetched.Document()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", targetURL, err)
	}
	body := string(fetched.Body)

	// Single-response checks: pure functions of the fetched page.
	page := checker.AnalyzePage(targetURL, doc, fetched.Header, fetched.Proto)
	page.TTFBMillis = fetched.TTFB.Milliseconds()
	headers := checker.AnalyzeSecurityHeaders(fetched.Header)
	structured := checker.ValidateStructuredData(doc)
	a11y := checker.ScanAccessibility(doc)

	var ssl *checker.CertInfo
	if page.UsesHTTPS {
		ssl = checker.CertInfoFromState(fetched.TLS, time.Now())
		if ssl == nil {
			ssl = checker.FetchCertInfo(ctx, targetURL, consts.ProbeTimeout)
		}
	}

	pluginAssets, themeAssets := checker.ExtractWPAssets(body)

	var (
		samples     []crawler.PageSample
		linkResult  links.Result
		imageResult links.Result
		threats     []string
		wpInfo      checker.WordPressInfo
		plugins     []checker.AssetDetail
		themes      []checker.AssetDetail
		vulnReport  VulnerabilityReport
		psi         checker.PageSpeedScores
		sslLabs     *checker.SSLLabsReport

		robotsTxt, sitemap, xmlRPC, userEnum, dirListing, configBak bool
	)

	var wg sync.WaitGroup
	launch := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	progress(ch, "crawl", "Crawling additional pages...")
	launch(func() { samples = s.crawler.Crawl(ctx, targetURL, body) })

	progress(ch, "links", "Checking for broken links...")
	launch(func() { linkResult = s.validator.Check(ctx, targetURL, body, links.KindLink) })

	progress(ch, "images", "Checking for broken images...")
	launch(func() { imageResult = s.validator.Check(ctx, targetURL, body, links.KindImage) })

	progress(ch, "safe-browsing", "Checking Safe Browsing...")
	launch(func() { threats = s.safeBrowsing.Check(ctx, targetURL) })

	progress(ch, "wordpress", "Checking CMS info...")
	launch(func() {
		wpInfo = s.wp.Fingerprint(ctx, targetURL, doc)
		wpInfo.Caching = checker.DetectCaching(fetched.Header.Get, body)
		s.wp.Enumerate(ctx, targetURL, "plugins", pluginAssets)
		s.wp.Enumerate(ctx, targetURL, "themes", themeAssets)
		plugins = s.wp.AssetDetails(ctx, "plugin", pluginAssets)
		themes = s.wp.AssetDetails(ctx, "theme", themeAssets)
		vulnReport = VulnerabilityReport{
			Plugins: s.vulns.Lookup(ctx, "plugins", slugs(pluginAssets)),
			Themes:  s.vulns.Lookup(ctx, "themes", slugs(themeAssets)),
		}
	})
	if page.UsesHTTPS {
		launch(func() { sslLabs = s.sslLabs.Analyze(ctx, targetURL) })
	}
	launch(func() { robotsTxt = s.wp.Client.PathExists(ctx, targetURL, "/robots.txt") })
	launch(func() { sitemap = s.wp.Client.PathExists(ctx, targetURL, "/sitemap.xml") })
	launch(func() { xmlRPC = s.wp.Client.CheckXMLRPC(ctx, targetURL) })
	launch(func() { userEnum = s.wp.Client.CheckUserEnumeration(ctx, targetURL) })
	launch(func() { dirListing = s.wp.Client.CheckDirectoryListing(ctx, targetURL) })
	launch(func() { configBak = s.wp.Client.CheckWPConfigBackup(ctx, targetURL) })

	progress(ch, "pagespeed", "Fetching PageSpeed Insights...")
	launch(func() { psi = s.pagespeed.Fetch(ctx, targetURL) })

	wg.Wait()

	summary := &Summary{
		Status:                 fetched.StatusCode,
		PageInfo:               *page,
		SecurityHeadersReport:  headers,
		AccessibilityReport:    a11y,
		StructuredDataReport:   structured,
		WordPressInfo:          wpInfo,
		PageSpeedScores:        psi,
		MixedContent:           page.MixedContent,
		BrokenLinks:            linkResult.Broken,
		BrokenImages:           imageResult.Broken,
		RobotsTxtPresent:       robotsTxt,
		SitemapPresent:         sitemap,
		SSL:                    ssl,
		SSLLabs:                sslLabs,
		XMLRPCEnabled:          xmlRPC,
		UserEnumerationEnabled: userEnum,
		DirectoryListing:       dirListing,
		WPConfigBakExposed:     configBak,
		Plugins:                plugins,
		Themes:                 themes,
		Vulnerabilities:        vulnReport,
		SafeBrowsingThreats:    threats,
		PageSamples:            samples,
	}
	summary.finalize()

	if len(samples) > 0 {
		if err := s.store.CreatePageSamples(ctx, id, samples); err != nil {
			return nil, fmt.Errorf("persist page samples: %w", err)
		}
	}
	return summary, nil
}

func slugs(assets map[string]string) []string {
	out := make([]string, 0, len(assets))
	for slug := range assets {
		out = append(out, slug)
	}
	return out
}
