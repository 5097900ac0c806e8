package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/maltedev/listing-scraper/internal/api"
	"github.com/maltedev/listing-scraper/internal/jobs"
	"github.com/maltedev/listing-scraper/internal/metrics"
	"github.com/maltedev/listing-scraper/internal/queue"
	"github.com/maltedev/listing-scraper/internal/scraper"
)

var servePort string

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "HTTP port (default from SERVER_PORT)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--port <port>]",
	Short: "Serves an HTTP API that queues scrape runs and exposes metrics.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		m := metrics.New()
		sink, closeSinks := openSinks(ctx)
		defer closeSinks()

		s := scraper.New(playwrightDriver(), sink, log,
			scraper.WithTimings(timings()),
			scraper.WithMetrics(m))

		q := queue.NewInMemoryQueue()
		manager := jobs.NewManager(s, q, log)

		workerDone := make(chan struct{})
		go func() {
			manager.StartWorker(ctx)
			close(workerDone)
		}()

		handlers := api.NewHandlers(manager, api.Defaults{
			URL:       cfg.Run.URL,
			PageCount: cfg.Run.PageCount,
		}, log)

		srv := &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      api.NewRouter(handlers, m),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErr := make(chan error, 1)
		go func() {
			log.Info("starting server", "port", cfg.Server.Port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()

		select {
		case <-ctx.Done():
			log.Info("shutting down server")
		case err := <-serverErr:
			cancel()
			q.Close()
			<-workerDone
			return fmt.Errorf("server error: %w", err)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", "error", err)
		}
		q.Close()
		<-workerDone

		log.Info("server exited")
		return nil
	},
}
