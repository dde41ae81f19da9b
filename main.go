package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"stakefetcher/internal/blockfrost"
	"stakefetcher/internal/config"
	"stakefetcher/internal/coordinator"
	"stakefetcher/internal/display"
	"stakefetcher/internal/fetcher"
	"stakefetcher/internal/metrics"
	"stakefetcher/internal/netcheck"
	"stakefetcher/internal/ratelimit"
	"stakefetcher/internal/stake"
)

const (
	resetCommand      = "/reset"
	idlePollInterval  = 50 * time.Millisecond
	metricsReadHeader = 5 * time.Second
)

func main() {
	fs := config.Flags()
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("Invalid arguments: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := setupLogging(cfg); err != nil {
		log.Fatalf("Invalid log configuration: %v", err)
	}

	// Cancel on interrupt for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.SkipConnectivityCheck {
		if err := netcheck.Check(ctx, cfg.ConnectivityAddress, cfg.ConnectivityTimeout); err != nil {
			log.Fatalf("Connectivity check failed: %v", err)
		}
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr)
	}

	os.Exit(run(ctx, cfg, os.Stdin, os.Stdout))
}

// run wires the pipeline and drives it from in until the input is exhausted
// and the last fetch has settled, or ctx is done. It returns the exit code.
func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) int {
	limiter := ratelimit.New()
	limiter.Set(ratelimit.APIBlockfrost, cfg.RateLimitRPS, cfg.RateLimitBurst)

	httpClient := fetcher.NewHTTPClient(cfg.BlockfrostBaseURL, cfg.BlockfrostProjectID, cfg.RequestTimeout)
	defer httpClient.Close()

	aggregator := blockfrost.NewAggregator(blockfrost.NewClient(httpClient, limiter))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Key != "" {
		return runOnce(ctx, cancel, cfg, aggregator, out)
	}

	coord := coordinator.New(aggregator, display.NewTerminal(out), coordinator.WithWorkers(cfg.Workers))

	go func() {
		readInput(ctx, coord, in)
		waitIdle(ctx, coord)
		cancel()
	}()

	if err := coord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("Coordinator failed: %v", err)
		return 1
	}
	return 0
}

// runOnce fetches cfg.Key a single time and exits non-zero when no snapshot
// could be shown.
func runOnce(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, f fetcher.Fetcher, out io.Writer) int {
	if !stake.Key(cfg.Key).Complete() {
		log.Errorf("Stake key must be %d characters long, got %d", stake.KeyLength, len(cfg.Key))
		return 1
	}

	view := &onceView{Terminal: display.NewTerminal(out), done: cancel}
	coord := coordinator.New(f, view, coordinator.WithWorkers(1))
	coord.OnKeyChanged(cfg.Key)

	if err := coord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("Coordinator failed: %v", err)
		return 1
	}
	if !view.rendered {
		return 1
	}
	return 0
}

// onceView stops the program after the first outcome.
type onceView struct {
	*display.Terminal
	done     context.CancelFunc
	rendered bool
}

func (v *onceView) Render(snap stake.Snapshot) {
	v.Terminal.Render(snap)
	v.rendered = true
	v.done()
}

func (v *onceView) Failed(key stake.Key, err error) {
	v.Terminal.Failed(key, err)
	log.Errorf("Fetch failed for %s: %v", key, err)
	v.done()
}

// readInput treats every line as the new content of the key field.
func readInput(ctx context.Context, coord *coordinator.Coordinator, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == resetCommand {
			coord.Reset()
			continue
		}
		coord.OnKeyChanged(line)
	}
	if err := scanner.Err(); err != nil {
		log.Errorf("Error reading input: %v", err)
	}
}

// waitIdle returns once the latest accepted fetch has settled.
func waitIdle(ctx context.Context, coord *coordinator.Coordinator) {
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()

	for {
		if current, _ := coord.State(); current == coordinator.PhaseIdle {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func setupLogging(cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	switch cfg.LogFormat {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeader,
	}

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	log.Infof("Serving metrics on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("Metrics server failed: %v", err)
	}
}
