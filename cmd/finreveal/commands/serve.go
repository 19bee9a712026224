package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finreveal/site/internal/config"
	"github.com/finreveal/site/internal/delivery"
	"github.com/finreveal/site/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var (
	// serveAddr overrides web.addr.
	serveAddr string

	// shutdownTimeout bounds the graceful shutdown.
	shutdownTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the FinReveal site",
	Long: `Serve the marketing pages, the contact form, its JSON and WebSocket
API, and Prometheus metrics on /metrics.

EmailJS credentials are read from the config file or the
FINREVEAL_EMAILJS_* environment variables.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(
		&serveAddr, "addr", "",
		"Listen address (overrides web.addr)",
	)
	serveCmd.Flags().DurationVar(
		&shutdownTimeout, "shutdown-timeout", 10*time.Second,
		"How long to wait for open requests on shutdown",
	)
}

// runServe runs the web server until SIGINT or SIGTERM.
func runServe(cmd *cobra.Command, _ []string) error {
	cfg := appCfg
	if serveAddr != "" {
		cfg.Web.Addr = serveAddr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := cfg.DeliveryClient(delivery.NewMetrics(reg))
	if err != nil {
		return err
	}

	server, err := web.NewServer(webConfig(cfg, client, reg))
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	ctx, stop := signal.NotifyContext(
		cmd.Context(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web server: %w", err)
		}

		return nil

	case <-ctx.Done():
	}

	rootLogger.Infof("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), shutdownTimeout,
	)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// webConfig maps the web section onto the server config.
func webConfig(cfg *config.Config, client delivery.Client,
	reg *prometheus.Registry) *web.Config {

	webCfg := web.DefaultConfig()
	webCfg.Addr = cfg.Web.Addr
	webCfg.Client = client
	webCfg.Routing = cfg.Routing
	webCfg.SessionTTL = cfg.Web.SessionTTL
	webCfg.MaxSessions = cfg.Web.MaxSessions
	webCfg.SubmitWait = cfg.Web.SubmitWait
	webCfg.SubmitRate = cfg.Web.SubmitRate
	webCfg.SubmitBurst = cfg.Web.SubmitBurst
	webCfg.Registry = reg

	return webCfg
}
