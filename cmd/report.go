package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/spf13/cobra"

	"github.com/khanhnv2901/webaudit/internal/audit"
	"github.com/khanhnv2901/webaudit/internal/storage"
	"github.com/khanhnv2901/webaudit/internal/storage/jsonstore"
)

var reportCmd = &cobra.Command{
	Use:   "report <audit-id>",
	Short: "Export a completed audit as a PDF report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		store, err := jsonstore.New(dataDir)
		if err != nil {
			return err
		}
		record, err := store.GetAudit(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if record.Status != storage.StatusDone {
			return fmt.Errorf("audit %s is %s; only completed audits can be exported", record.ID, record.Status)
		}
		var summary audit.Summary
		if err := json.Unmarshal(record.Summary, &summary); err != nil {
			return fmt.Errorf("decode summary: %w", err)
		}

		data, err := generatePDFReportBytes(record, &summary)
		if err != nil {
			return fmt.Errorf("generate PDF: %w", err)
		}
		if output == "" {
			output = fmt.Sprintf("audit-%s.pdf", record.ID)
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("%s Report written to %s\n", colorSuccess("✓"), output)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringP("output", "O", "", "Output file (default audit-<id>.pdf)")
}

func generatePDFReportBytes(record *storage.Audit, s *audit.Summary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Website Audit Report: %s", record.URL), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Metadata section
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Audit ID: %s", record.ID), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Started: %s", record.CreatedAt.Format("Jan 02 2006 15:04")), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Completed: %s", record.UpdatedAt.Format("Jan 02 2006 15:04")), "", 1, "", false, 0, "")
	pdf.Ln(5)

	// Overview section
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Overview", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("HTTP status: %d | TTFB: %dms | HTTPS: %v | HTTP/3: %v",
		s.Status, s.TTFBMillis, s.UsesHTTPS, s.SupportsHTTP3), "", 1, "", false, 0, "")
	if s.Title != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Title: %s", s.Title), "", 1, "", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Broken links: %d | Broken images: %d | Mixed content: %d",
		s.BrokenLinkCount, s.BrokenImageCount, s.MixedContentCount), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("robots.txt: %v | sitemap.xml: %v | Accessibility violations: %d",
		s.RobotsTxtPresent, s.SitemapPresent, s.ViolationCount), "", 1, "", false, 0, "")
	pdf.Ln(5)

	// Security section
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Security", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if len(s.Missing) > 0 {
		pdf.MultiCell(0, 5, fmt.Sprintf("Missing headers: %s", strings.Join(s.Missing, ", ")), "", "", false)
	} else {
		pdf.CellFormat(0, 6, "All required security headers present", "", 1, "", false, 0, "")
	}
	if len(s.Misconfigured) > 0 {
		pdf.MultiCell(0, 5, fmt.Sprintf("Misconfigured headers: %s", strings.Join(s.Misconfigured, ", ")), "", "", false)
	}
	if s.SSL != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Certificate: %s, valid until %s (%d days)",
			s.SSL.Issuer, s.SSL.ValidTo, s.SSL.DaysUntilExpiration), "", 1, "", false, 0, "")
	}
	if s.SSLLabs != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("SSL Labs grade: %s", s.SSLLabs.Grade), "", 1, "", false, 0, "")
	}
	if len(s.SafeBrowsingThreats) > 0 {
		pdf.MultiCell(0, 5, fmt.Sprintf("Safe Browsing threats: %s", strings.Join(s.SafeBrowsingThreats, ", ")), "", "", false)
	}
	pdf.Ln(3)

	// WordPress section
	if s.IsWordPress {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "WordPress", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		version := s.Version
		if version == "" {
			version = "unknown"
		}
		pdf.CellFormat(0, 6, fmt.Sprintf("Core version: %s (up to date: %v) | Caching: %v",
			version, s.IsUpToDate, s.Caching), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("XML-RPC: %v | User enumeration: %v | Directory listing: %v | wp-config backup: %v",
			s.XMLRPCEnabled, s.UserEnumerationEnabled, s.DirectoryListing, s.WPConfigBakExposed), "", 1, "", false, 0, "")
		pdf.Ln(2)

		pdf.SetFont("Arial", "", 9)
		for _, p := range s.Plugins {
			line := fmt.Sprintf("- plugin %s %s", p.Slug, p.Version)
			if p.Outdated {
				line += fmt.Sprintf(" (latest %s)", p.LatestVersion)
			}
			if vulns := s.Vulnerabilities.Plugins[p.Slug]; len(vulns) > 0 {
				line += fmt.Sprintf(" [%d known vulnerabilities]", len(vulns))
			}
			pdf.MultiCell(0, 5, line, "", "", false)
		}
		for _, t := range s.Themes {
			line := fmt.Sprintf("- theme %s %s", t.Slug, t.Version)
			if t.Outdated {
				line += fmt.Sprintf(" (latest %s)", t.LatestVersion)
			}
			if vulns := s.Vulnerabilities.Themes[t.Slug]; len(vulns) > 0 {
				line += fmt.Sprintf(" [%d known vulnerabilities]", len(vulns))
			}
			pdf.MultiCell(0, 5, line, "", "", false)
		}
		pdf.Ln(3)
	}

	// PageSpeed section
	if s.Performance != nil || s.SEO != nil {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "PageSpeed Insights", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Performance: %s | Accessibility: %s | Best Practices: %s | SEO: %s",
			scoreLabel(s.Performance), scoreLabel(s.Accessibility),
			scoreLabel(s.BestPractices), scoreLabel(s.SEO)), "", 1, "", false, 0, "")
		pdf.Ln(3)
	}

	// Crawled pages section
	if len(s.PageSamples) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Crawled Pages", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, sample := range s.PageSamples {
			if pdf.GetY() > 250 {
				pdf.AddPage()
			}
			pdf.MultiCell(0, 5, fmt.Sprintf("%s (status %d, h1s %d, images without alt %d)",
				sample.URL, sample.Status, sample.HeadingCount, sample.ImagesWithoutAlt), "", "", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func scoreLabel(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f", *v)
}
