package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/khanhnv2901/webaudit/internal/api"
	"github.com/khanhnv2901/webaudit/internal/audit"
	"github.com/khanhnv2901/webaudit/internal/storage/jsonstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the audit engine as a REST API service",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		authToken, _ := cmd.Flags().GetString("auth-token")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		rateBurst, _ := cmd.Flags().GetInt("rate-burst")

		// Initialize structured logger
		zlog, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer func() {
			if err := zlog.Sync(); err != nil {
				fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
			}
		}()

		store, err := jsonstore.New(dataDir)
		if err != nil {
			return err
		}
		pageSpeedKey, safeBrowsingKey, wpscanToken := apiKeys()
		audits := audit.NewService(audit.Config{
			Store:              store,
			Logger:             zlog,
			PageSpeedAPIKey:    pageSpeedKey,
			SafeBrowsingAPIKey: safeBrowsingKey,
			VulnAPIToken:       wpscanToken,
		})

		server := api.NewServer(api.Config{
			Audits:      audits,
			AuthToken:   authToken,
			Logger:      zlog,
			CORSOrigins: corsOrigins,
			RateLimit:   rateLimit,
			RateBurst:   rateBurst,
		})

		httpServer := &http.Server{
			Addr:        addr,
			Handler:     server,
			ReadTimeout: 15 * time.Second,
			// No WriteTimeout: event streams stay open for the life of
			// an audit and are kept alive by pings.
			IdleTimeout: 120 * time.Second,
		}

		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("%s API server listening on %s (data dir: %s)\n", colorInfo("→"), addr, dataDir)
			fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Printf("\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Printf("%s Server shutdown complete\n", colorSuccess("✓"))
		}

		return nil
	},
}

func registerServeFlags(fs *pflag.FlagSet) {
	fs.String("addr", "127.0.0.1:8080", "Address for the API server")
	fs.String("auth-token", "", "Optional shared secret for API requests")
	fs.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	fs.StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	fs.Int("rate-limit", 10, "Rate limit per IP (requests/second, 0 = disabled)")
	fs.Int("rate-burst", 20, "Rate limit burst size")
}

func init() {
	registerServeFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}
