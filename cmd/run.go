package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/webaudit/internal/audit"
	"github.com/khanhnv2901/webaudit/internal/storage"
	"github.com/khanhnv2901/webaudit/internal/storage/jsonstore"
	"github.com/khanhnv2901/webaudit/internal/urlx"
)

var runCmd = &cobra.Command{
	Use:   "run <url>",
	Short: "Audit a site and print the results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		target, err := urlx.Normalize(args[0])
		if err != nil {
			return fmt.Errorf("invalid url %q: %w", args[0], err)
		}

		store, err := jsonstore.New(dataDir)
		if err != nil {
			return err
		}
		pageSpeedKey, safeBrowsingKey, wpscanToken := apiKeys()
		audits := audit.NewService(audit.Config{
			Store:              store,
			Logger:             logger.Desugar(),
			PageSpeedAPIKey:    pageSpeedKey,
			SafeBrowsingAPIKey: safeBrowsingKey,
			VulnAPIToken:       wpscanToken,
		})

		ctx := cmd.Context()
		id, err := audits.StartAudit(ctx, target)
		if err != nil {
			return err
		}
		if !asJSON {
			fmt.Printf("%s Auditing %s (audit %s)\n", colorInfo("→"), target, id)
		}

		ch, ok := audits.Channel(id)
		if ok {
			updates, unsubscribe := ch.Subscribe()
			defer unsubscribe()
			for ev := range updates {
				switch {
				case ev.Terminal():
					// Fall through to the persisted record below; the
					// store is updated before the terminal event fires.
				case asJSON:
					continue
				default:
					fmt.Printf("  %s %s\n", colorInfo("•"), ev.Message)
				}
			}
		}

		record, err := audits.GetAudit(ctx, id)
		if err != nil {
			return err
		}
		if record.Status == storage.StatusError {
			var msg string
			_ = json.Unmarshal(record.Summary, &msg)
			return fmt.Errorf("audit failed: %s", msg)
		}

		if asJSON {
			_, err := os.Stdout.Write(append(record.Summary, '\n'))
			return err
		}

		var summary audit.Summary
		if err := json.Unmarshal(record.Summary, &summary); err != nil {
			return fmt.Errorf("decode summary: %w", err)
		}
		printSummary(record.Status, &summary)
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("json", false, "Print the raw summary JSON")
}

func printSummary(status storage.Status, s *audit.Summary) {
	fmt.Printf("\n%s Audit %s\n", colorSuccess("✓"), formatStatusWithColor(string(status)))
	fmt.Printf("  Status: %d  TTFB: %dms  HTTPS: %v\n", s.Status, s.TTFBMillis, s.UsesHTTPS)
	if s.Title != "" {
		fmt.Printf("  Title: %s\n", s.Title)
	}

	fmt.Printf("  Broken links: %s  Broken images: %s  Mixed content: %s\n",
		countLabel(s.BrokenLinkCount), countLabel(s.BrokenImageCount), countLabel(s.MixedContentCount))
	if len(s.Missing) > 0 {
		fmt.Printf("  Missing security headers: %s\n", colorWarn(strings.Join(s.Missing, ", ")))
	}
	if s.SSL != nil {
		fmt.Printf("  Certificate: %s, expires in %d days\n", s.SSL.Issuer, s.SSL.DaysUntilExpiration)
	}
	if s.SSLLabs != nil {
		fmt.Printf("  SSL Labs grade: %s\n", s.SSLLabs.Grade)
	}
	fmt.Printf("  Accessibility violations: %s\n", countLabel(s.ViolationCount))

	if s.IsWordPress {
		version := s.Version
		if version == "" {
			version = "unknown"
		}
		fmt.Printf("  WordPress: %s (core %s, up to date: %v)\n", s.Name, version, s.IsUpToDate)
		fmt.Printf("  Plugins: %d  Themes: %d\n", len(s.Plugins), len(s.Themes))
	}

	if len(s.SafeBrowsingThreats) > 0 {
		fmt.Printf("  %s Safe Browsing threats: %s\n", colorError("!"), strings.Join(s.SafeBrowsingThreats, ", "))
	}

	if s.Performance != nil {
		fmt.Printf("  PageSpeed: perf %.0f, a11y %.0f, best practices %.0f, seo %.0f\n",
			deref(s.Performance), deref(s.Accessibility), deref(s.BestPractices), deref(s.SEO))
	}

	fmt.Printf("  Pages sampled: %d\n", len(s.PageSamples))
}

func countLabel(n int) string {
	if n == 0 {
		return colorSuccess("0")
	}
	return colorError(fmt.Sprintf("%d", n))
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
