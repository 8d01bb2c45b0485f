package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/foldingtext/ftbundle/internal/build"
	"github.com/foldingtext/ftbundle/internal/logging"
)

func newWatchCommand(p *params) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch [target...]",
		Short: "Bundle the given targets (default: all) and rebuild them on change",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := p.logger()
			root, base, err := p.load()
			if err != nil {
				return err
			}
			tasks, err := p.tasks(root, base, log, args...)
			if err != nil {
				return err
			}
			w, err := build.NewWatcher(base, log, tasks...)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if metricsAddr != "" {
				go serveMetrics(ctx, metricsAddr, log)
			}
			log.Infof("watching %s", base)
			return w.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. localhost:9090)")
	cmd.Flags().BoolVar(&p.noWrite, "dry-run", false, "bundle without writing output files")
	return cmd
}

func serveMetrics(ctx context.Context, addr string, log *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Infof("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("metrics server: %v", err)
	}
}
