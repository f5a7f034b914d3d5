package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/atikulmunna/lograte/internal/hub"
	"github.com/atikulmunna/lograte/internal/metrics"
	"github.com/atikulmunna/lograte/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyzer over HTTP",
		Long: `Start an HTTP server that analyzes uploaded logs.

  POST /api/analyze?name=app.log.gz   body is the log; .gz names are decompressed
  GET  /ws                            live bucket and total events from every run
  GET  /metrics                       Prometheus metrics
  GET  /healthz                       liveness

Examples:
  lograte serve --addr :8080
  curl --data-binary @app.log.gz 'localhost:8080/api/analyze?name=app.log.gz'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runServe(cmd, v)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Int64("max-upload", server.DefaultMaxUpload, "largest accepted request body in bytes")
	_ = v.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("serve.max-upload", cmd.Flags().Lookup("max-upload"))
	return cmd
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := newAnalyzer(v, cmd.ErrOrStderr(), metrics.New(reg))
	if err != nil {
		return err
	}

	cfg := server.Config{
		Addr:      v.GetString("serve.addr"),
		MaxUpload: v.GetInt64("serve.max-upload"),
	}
	srv := server.New(cfg, a, hub.New(), reg)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	fmt.Fprintf(cmd.ErrOrStderr(), "lograte serving on %s\n", cfg.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "lograte shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
