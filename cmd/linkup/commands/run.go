package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/CodingInGreen/linkup/internal/config"
	"github.com/CodingInGreen/linkup/internal/entropy"
	linkmetrics "github.com/CodingInGreen/linkup/internal/metrics"
	"github.com/CodingInGreen/linkup/internal/netstack"
	"github.com/CodingInGreen/linkup/internal/session"
	appversion "github.com/CodingInGreen/linkup/internal/version"
	"github.com/CodingInGreen/linkup/internal/wifi"
)

// shutdownTimeout is the maximum time to wait for the metrics server to
// drain active scrapes once the bring-up pipeline has finished.
const shutdownTimeout = 10 * time.Second

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Bring the wireless link up and perform the secure exchange",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.OutOrStdout())
		},
	}
}

// run loads the configuration and drives the whole pipeline: associate,
// wait for an address, exchange, exit. The response text is written to out.
func run(out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := newLogger(cfg.Log)
	logger.Info("linkup starting",
		slog.String("version", appversion.Version),
		slog.String("interface", cfg.Wireless.Interface),
		slog.String("ssid", cfg.Wireless.SSID),
		slog.String("endpoint", net.JoinHostPort(cfg.Session.Host, fmt.Sprint(cfg.Session.Port))),
	)

	reg := prometheus.NewRegistry()
	collector := linkmetrics.NewCollector(reg)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	// The pipeline cancels this context when it finishes, taking the
	// stack driver and the metrics server down with it.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)

	if cfg.Metrics.Addr != "" {
		startMetricsServer(gCtx, g, cfg.Metrics, reg, logger)
	}

	var text string
	g.Go(func() error {
		defer cancel()
		var err error
		text, err = bringup(gCtx, g, cfg, collector, logger)
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("linkup exited with error", slog.String("error", err.Error()))
		return err
	}

	fmt.Fprintln(out, text)
	logger.Info("linkup done")
	return nil
}

// bringup runs the three bring-up stages in order and returns the
// response text. The stack driver is registered on g and pumps for the
// remainder of the run.
func bringup(
	ctx context.Context,
	g *errgroup.Group,
	cfg *config.Config,
	collector *linkmetrics.Collector,
	logger *slog.Logger,
) (string, error) {
	// Stage 1: associate with the wireless network.
	ctrl, err := wifi.NewWPAController(ctx, cfg.Wireless.Interface, logger)
	if err != nil {
		return "", fmt.Errorf("attach to supplicant: %w", err)
	}
	defer ctrl.Close()

	mgr := wifi.NewManager(
		ctrl,
		wifi.Credentials{SSID: cfg.Wireless.SSID, Passphrase: cfg.Wireless.Passphrase},
		cfg.Bringup.MaxAttempts,
		cfg.Bringup.RetryDelay,
		logger,
		wifi.WithManagerMetrics(collector),
	)
	if err := mgr.Associate(ctx); err != nil {
		return "", fmt.Errorf("associate: %w", err)
	}

	// Stage 2: pump the stack and wait for an address.
	stack := netstack.NewHostStack(cfg.Wireless.Interface, logger)
	netstack.NewDriver(stack, logger).Start(ctx, g)

	monitor := netstack.NewMonitor(
		stack,
		cfg.Bringup.AddressTimeout,
		cfg.Bringup.PollInterval,
		cfg.Bringup.LogInterval,
		logger,
		netstack.WithMonitorMetrics(collector),
		netstack.WithClock(selectClock(cfg.Bringup.Timer)),
	)
	addr, err := monitor.WaitForAddress(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire address: %w", err)
	}
	logger.Info("link configured", slog.String("address", addr.String()))

	// Stage 3: the secure session exchange.
	client, err := newSessionClient(stack, cfg, collector, logger)
	if err != nil {
		return "", err
	}
	text, err := client.Exchange(ctx, cfg.Session.RequestBytes())
	if err != nil {
		return "", fmt.Errorf("exchange: %w", err)
	}
	logger.Info("exchange complete", slog.Int("response_bytes", len(text)))
	return text, nil
}

// newSessionClient assembles the buffer arena, entropy source, and
// verification policy from the configuration.
func newSessionClient(
	dialer session.Dialer,
	cfg *config.Config,
	collector *linkmetrics.Collector,
	logger *slog.Logger,
) (*session.Client, error) {
	host, err := cfg.Session.HostAddr()
	if err != nil {
		return nil, err
	}

	bufs, err := session.NewBuffers(
		cfg.Session.TLSReadBuffer,
		cfg.Session.TLSWriteBuffer,
		cfg.Session.SocketReadBuffer,
		cfg.Session.SocketWriteBuffer,
	)
	if err != nil {
		return nil, fmt.Errorf("size session buffers: %w", err)
	}
	resp, err := session.NewResponseBuffer(cfg.Session.ResponseBuffer)
	if err != nil {
		return nil, fmt.Errorf("size response buffer: %w", err)
	}

	policy := session.VerifySystemRoots
	if cfg.Session.Verify == "none" {
		policy = session.VerifyNone
	}

	endpoint := session.Endpoint{
		Host:       host,
		Port:       cfg.Session.Port,
		ServerName: cfg.Session.ServerName,
	}

	return session.NewClient(
		dialer, endpoint, bufs, resp,
		selectEntropy(cfg.Entropy.Source), policy, logger,
		session.WithClientMetrics(collector),
	), nil
}

// selectClock maps the configured timer discipline to a Clock.
func selectClock(timer string) netstack.Clock {
	if timer == "spin" {
		return netstack.SpinClock{}
	}
	return netstack.SleepClock{}
}

// selectEntropy maps the configured entropy source name to a reader.
func selectEntropy(source string) io.Reader {
	if source == "counter" {
		return entropy.NewCounterSource()
	}
	return entropy.DeviceSource{}
}

// -------------------------------------------------------------------------
// Metrics Server
// -------------------------------------------------------------------------

// startMetricsServer registers the Prometheus endpoint goroutines on g:
// one serving, one shutting down on context cancellation.
func startMetricsServer(
	ctx context.Context,
	g *errgroup.Group,
	cfg config.MetricsConfig,
	reg *prometheus.Registry,
	logger *slog.Logger,
) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc := net.ListenConfig{}
	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Addr),
			slog.String("path", cfg.Path),
		)
		return listenAndServe(ctx, &lc, srv)
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
}

// listenAndServe binds srv.Addr with the given ListenConfig and serves
// until Shutdown. http.ErrServerClosed is the normal exit and is mapped
// to nil.
func listenAndServe(ctx context.Context, lc *net.ListenConfig, srv *http.Server) error {
	ln, err := lc.Listen(ctx, "tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", srv.Addr, err)
	}
	return nil
}

// -------------------------------------------------------------------------
// Logging
// -------------------------------------------------------------------------

// newLogger builds the process logger from the log configuration.
func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.Level)}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
