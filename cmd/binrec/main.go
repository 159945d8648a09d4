// Command binrec inspects and converts binary record files.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hupe1980/binrec"
	"github.com/hupe1980/binrec/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// exitError ends the process with code without printing anything.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// app carries the state shared by all commands of one invocation.
type app struct {
	configPath string
	flags      Config
	cfg        Config
	settings   settings

	// fatal installs binrec.FatalHandler on every file.
	fatal   bool
	failure binrec.FailureHandler

	logger   *binrec.Logger
	registry *binrec.Registry
	metrics  binrec.MetricsCollector
	archiver binrec.Archiver
	server   *http.Server
}

func newApp() *app {
	return &app{flags: DefaultConfig(), fatal: true}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:               "binrec",
		Short:             "Inspect and convert binary record files",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	a.flags.bindFlags(root.PersistentFlags())

	root.AddCommand(
		newCompressCmd(a),
		newDumpCmd(a),
		newStatCmd(a),
		newExistsCmd(a),
		newRmCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	a.cfg = DefaultConfig()
	if a.configPath != "" {
		cfg, err := LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	a.cfg.merge(&a.flags, cmd.Flags())

	s, err := a.cfg.parse()
	if err != nil {
		return err
	}
	a.settings = s

	if strings.EqualFold(a.cfg.LogFormat, "json") {
		a.logger = binrec.NewJSONLogger(s.logLevel)
	} else {
		a.logger = binrec.NewTextLogger(s.logLevel)
	}

	a.registry = binrec.NewRegistry(binrec.RegistryConfig{
		MaxOpenFiles:       a.cfg.MaxOpenFiles,
		MaxPipes:           a.cfg.MaxPipes,
		IOLimitBytesPerSec: s.ioLimit,
	})

	a.metrics = binrec.NoopMetricsCollector{}
	if a.cfg.MetricsAddr != "" {
		if err := a.serveMetrics(); err != nil {
			return err
		}
	}
	a.registry.SetMetricsCollector(a.metrics)
	if a.fatal {
		a.failure = binrec.FatalHandler(a.logger, a.registry)
	}

	a.archiver, err = newArchiver(cmd.Context(), a.cfg.Archive)
	return err
}

func (a *app) serveMetrics() error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pc, err := observability.NewPrometheusCollector(reg)
	if err != nil {
		return err
	}
	a.metrics = pc

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.server = &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server", "addr", a.cfg.MetricsAddr, "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", a.cfg.MetricsAddr)
	return nil
}

func (a *app) teardown() error {
	if a.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}

// fileOptions returns the binrec options derived from the configuration.
func (a *app) fileOptions(ctx context.Context) []binrec.Option {
	opts := []binrec.Option{
		binrec.WithContext(ctx),
		binrec.WithRegistry(a.registry),
		binrec.WithLogger(a.logger),
		binrec.WithMetricsCollector(a.metrics),
		binrec.WithCodec(a.settings.codec),
		binrec.WithLevel(a.settings.level),
		binrec.WithSegmentLimit(a.settings.segmentLimit),
		binrec.WithBufferSize(a.settings.bufferSize),
		binrec.WithReport(a.cfg.Report),
	}
	if a.archiver != nil {
		opts = append(opts, binrec.WithArchiver(a.archiver))
	}
	if a.failure != nil {
		opts = append(opts, binrec.WithFailureHandler(a.failure))
	}
	return opts
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(newApp())
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
