// Package pipeline wires the Log Fetcher, Trace Fetcher, and Graph
// Writer into the bounded-channel pipeline described by the ingestion
// design: log source -> Log Fetcher -> (Graph Builder <-> Trace
// Fetcher) -> snapshot channel -> Graph Writer -> graph database.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kemicofa/rtc/internal/graphbuilder"
	"github.com/kemicofa/rtc/internal/graphstore"
	"github.com/kemicofa/rtc/internal/logfetcher"
	"github.com/kemicofa/rtc/internal/logsource"
	"github.com/kemicofa/rtc/internal/metrics"
	"github.com/kemicofa/rtc/internal/model"
	"github.com/kemicofa/rtc/internal/pathnorm"
	"github.com/kemicofa/rtc/internal/telemetry"
	"github.com/kemicofa/rtc/internal/tracefetcher"
	"github.com/kemicofa/rtc/internal/tracesource"
)

// ChannelBufferSize bounds both the snapshot channel and the
// trace-request channel, providing the pipeline's backpressure.
const ChannelBufferSize = 32

// Config configures one pipeline run.
type Config struct {
	ProjectID    string
	PollInterval time.Duration
	Families     []pathnorm.Family
}

// Pipeline owns the single Graph Builder shared by the Log Fetcher and
// Trace Fetcher, and the Graph Writer that drains their combined
// snapshot stream.
type Pipeline struct {
	logFetcher   *logfetcher.Fetcher
	traceFetcher *tracefetcher.Fetcher
	store        graphstore.Store
	log          *slog.Logger
}

func New(cfg Config, logSource logsource.Source, traceSource tracesource.Source, store graphstore.Store, log *slog.Logger, m *metrics.Metrics, tracer *telemetry.Provider) *Pipeline {
	builder := graphbuilder.New(log)

	return &Pipeline{
		logFetcher:   logfetcher.New(logSource, builder, cfg.Families, cfg.ProjectID, cfg.PollInterval, log, m, tracer),
		traceFetcher: tracefetcher.New(traceSource, builder, log, m, tracer),
		store:        store,
		log:          log,
	}
}

// Run blocks until the Log Fetcher terminates (source exhausted), the
// Trace Fetcher drains the remaining trace batches, and the Graph Writer
// has applied every snapshot already in flight. When ctx is canceled,
// Run returns as soon as the Graph Writer observes the cancellation;
// snapshots still queued at that point are not applied. It
// always returns nil: steady-state errors are contained within their
// stage and logged there, per the error-handling design's propagation
// policy — only configuration/startup errors are fatal, and those are
// surfaced before Run is ever called.
func (p *Pipeline) Run(ctx context.Context) error {
	refs := make(chan []tracefetcher.Ref, ChannelBufferSize)
	snapshots := make(chan *model.ServiceNodeGraph, ChannelBufferSize)

	var producers sync.WaitGroup
	producers.Add(2)

	go func() {
		defer producers.Done()
		p.logFetcher.Run(ctx, refs, snapshots)
	}()

	go func() {
		defer producers.Done()
		p.traceFetcher.Run(ctx, refs, snapshots)
	}()

	go func() {
		producers.Wait()
		close(snapshots)
	}()

	p.runGraphWriter(ctx, snapshots)
	return nil
}

func (p *Pipeline) runGraphWriter(ctx context.Context, snapshots <-chan *model.ServiceNodeGraph) {
	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := p.store.Upsert(ctx, snap); err != nil {
				p.log.Warn("failed to upsert snapshot", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
