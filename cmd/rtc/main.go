// Command rtc runs the Service Cartographer ingestion pipeline: it
// reads logs and traces from a configured back-end, reconstructs a
// service-topology graph, and writes it to a graph database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kemicofa/rtc/internal/config"
	"github.com/kemicofa/rtc/internal/graphstore/falkor"
	"github.com/kemicofa/rtc/internal/logging"
	"github.com/kemicofa/rtc/internal/logsource"
	"github.com/kemicofa/rtc/internal/logsource/eventstream"
	"github.com/kemicofa/rtc/internal/logsource/fake"
	"github.com/kemicofa/rtc/internal/logsource/gcp"
	"github.com/kemicofa/rtc/internal/metrics"
	"github.com/kemicofa/rtc/internal/pathnorm"
	"github.com/kemicofa/rtc/internal/pipeline"
	"github.com/kemicofa/rtc/internal/telemetry"
	"github.com/kemicofa/rtc/internal/tracesource"
	faketrace "github.com/kemicofa/rtc/internal/tracesource/fake"
	gcptrace "github.com/kemicofa/rtc/internal/tracesource/gcp"
)

const pollInterval = 10 * time.Second

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		fs := flag.NewFlagSet("run", flag.ExitOnError)
		path := fs.String("config", "./rtc.toml", "path to the TOML configuration file")
		_ = fs.Parse(os.Args[2:])
		err = runPipeline(*path, config.Load)
	case "demo":
		err = runPipeline("./rtc.demo.toml", config.LoadDemo)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: rtc run [--config PATH] | rtc demo")
}

func runPipeline(path string, load func(string) (*config.Config, error)) error {
	cfg, err := load(path)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := logging.New(cfg.Log)

	tracer, err := telemetry.Init(context.Background(), cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			log.Warn("failed to shut down telemetry", "err", err)
		}
	}()

	m := metrics.New(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)

	logSource, projectID, err := buildLogSource(cfg)
	if err != nil {
		return fmt.Errorf("building log source: %w", err)
	}

	traceSource := buildTraceSource(cfg)

	store, err := falkor.New(falkor.Options{
		DatabaseURL: cfg.GraphEngine.Falkor.DatabaseURL,
		GraphName:   cfg.GraphEngine.Falkor.GraphName,
		MaxPool:     cfg.GraphEngine.Falkor.MaxPool,
	}, log, m, tracer)
	if err != nil {
		return fmt.Errorf("connecting to graph store: %w", err)
	}
	defer store.Close()

	families, err := pathnorm.WithCustomFamily(pathnorm.DefaultFamilies(), cfg.HTTP.RequestPaths.CustomNormalizePatterns)
	if err != nil {
		return fmt.Errorf("compiling custom_normalize_patterns: %w", err)
	}

	p := pipeline.New(pipeline.Config{
		ProjectID:    projectID,
		PollInterval: pollInterval,
		Families:     families,
	}, logSource, traceSource, store, log, m, tracer)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("starting rtc pipeline", "log_engine", cfg.LogEngine.Active, "graph", cfg.GraphEngine.Falkor.GraphName)
	return p.Run(ctx)
}

func buildLogSource(cfg *config.Config) (logsource.Source, string, error) {
	switch cfg.LogEngine.Active {
	case "gcp":
		src := gcp.New(gcp.Config{
			ProjectID:       cfg.LogEngine.GCP.ProjectID,
			PageSize:        cfg.LogEngine.GCP.PageSize,
			CustomLogFilter: cfg.LogEngine.GCP.CustomLogFilter,
			MaxPages:        cfg.LogEngine.GCP.MaxPages,
		}, googleADCTokenSource{})
		return src, cfg.LogEngine.GCP.ProjectID, nil
	case "event-stream":
		src := eventstream.New(eventstream.Config{
			APIURL: cfg.LogEngine.EventStream.APIURL,
			APIKey: cfg.LogEngine.EventStream.APIKey,
			AppKey: cfg.LogEngine.EventStream.AppKey,
			Query:  cfg.LogEngine.EventStream.Query,
		})
		return src, "", nil
	case "fake":
		return fake.New(), fake.ProjectID, nil
	default:
		return nil, "", fmt.Errorf("unsupported log_engine.active %q", cfg.LogEngine.Active)
	}
}

func buildTraceSource(cfg *config.Config) tracesource.Source {
	if cfg.LogEngine.Active == "fake" {
		return faketrace.New()
	}
	return gcptrace.New(googleADCTokenSource{})
}

// googleADCTokenSource is a placeholder TokenSource: production
// deployments inject a real Application Default Credentials token
// provider here (see gcp.TokenSource); the interface boundary is what
// the pipeline depends on, not any particular credential flow.
type googleADCTokenSource struct{}

func (googleADCTokenSource) Token(ctx context.Context) (string, error) {
	return "", fmt.Errorf("rtc: no credentials provider configured for the gcp log/trace source")
}
