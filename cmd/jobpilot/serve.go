package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jobpilot/internal/aggregate"
	"jobpilot/internal/domain"
	"jobpilot/internal/events"
	"jobpilot/internal/httpapi"
	"jobpilot/internal/scheduler"
)

var serveInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the status HTTP API with periodic background searches",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 6*time.Hour, "Background search interval (0 disables)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.openStore(); err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub()
	runner := a.runner()
	runner.OnNewLead = func(lead domain.Lead) {
		hub.Publish(events.MakeEvent("", "lead_created", 1, map[string]any{
			"id": lead.ID, "title": lead.Title, "company": lead.Company,
		}))
	}

	var searchStatus atomic.Value
	searchStatus.Store(httpapi.SearchStatus{})

	runSearch := func(ctx context.Context, regions []domain.Region, role string) (aggregate.Summary, error) {
		if len(regions) == 0 {
			var err error
			regions, err = a.regionsArg(nil)
			if err != nil {
				return aggregate.Summary{}, err
			}
		}
		sum, err := runner.Run(ctx, regions, role)
		if err == nil {
			snapshotLeads(ctx, a)
		}
		return sum, err
	}

	mux := httpapi.NewMux(httpapi.Deps{
		Store:        a.DB,
		Hub:          hub,
		SearchStatus: &searchStatus,
		RunSearch:    runSearch,
	})

	if serveInterval > 0 {
		go scheduler.Every(ctx, serveInterval, "search", func(ctx context.Context) error {
			regions, err := a.regionsArg(nil)
			if err != nil {
				return err
			}
			sum, err := runner.Run(ctx, regions, "")
			if err != nil {
				return err
			}
			snapshotLeads(ctx, a)
			log.Printf("[search] periodic run: %d new, %d duplicates", sum.New, sum.Duplicates)
			return nil
		})
	}

	addr := fmt.Sprintf("127.0.0.1:%d", a.Cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("[serve] listening on http://%s", addr)

	srv := &http.Server{
		Handler: httpapi.Chain(mux,
			httpapi.Recover,
			httpapi.RequestID,
			httpapi.AccessLog,
			httpapi.Cors,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
