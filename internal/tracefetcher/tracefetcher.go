// Package tracefetcher translates batches of newly-observed trace
// references into joined graph edges, bounding outbound concurrency and
// deduplicating across the process lifetime.
package tracefetcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kemicofa/rtc/internal/graphbuilder"
	"github.com/kemicofa/rtc/internal/metrics"
	"github.com/kemicofa/rtc/internal/model"
	"github.com/kemicofa/rtc/internal/telemetry"
	"github.com/kemicofa/rtc/internal/tracesource"
)

// Concurrency bounds the number of in-flight trace-fetch requests, per
// spec.md §4.4's TRACE_CONCURRENCY.
const Concurrency = 10

// Ref identifies one trace to fetch and join.
type Ref struct {
	ProjectID string
	TraceID   string
}

// Fetcher consumes batches of Refs, fetches each unseen one with bounded
// concurrency, joins successes into the shared Builder, and emits a
// snapshot after each batch completes.
type Fetcher struct {
	source  tracesource.Source
	builder *graphbuilder.Builder
	log     *slog.Logger
	metrics *metrics.Metrics
	tracer  *telemetry.Provider

	mu   sync.Mutex
	seen map[Ref]struct{}
}

func New(source tracesource.Source, builder *graphbuilder.Builder, log *slog.Logger, m *metrics.Metrics, tracer *telemetry.Provider) *Fetcher {
	return &Fetcher{
		source:  source,
		builder: builder,
		log:     log,
		metrics: m,
		tracer:  tracer,
		seen:    map[Ref]struct{}{},
	}
}

// Run consumes batches from refs until it is closed or ctx is canceled.
// The snapshot channel is shared with the Log Fetcher (which also
// writes to it directly), so closing it is the caller's responsibility
// once every producer has returned. A batch whose refs were all seen
// before produces no snapshot; any batch with an unseen ref produces one
// after its fetches finish, even when every fetch failed.
func (f *Fetcher) Run(ctx context.Context, refs <-chan []Ref, snapshots chan<- *model.ServiceNodeGraph) {
	for {
		select {
		case batch, ok := <-refs:
			if !ok {
				return
			}
			if f.joinBatch(ctx, batch) == 0 {
				continue
			}
			select {
			case snapshots <- f.builder.Snapshot():
				f.metrics.SnapshotsTotal.WithLabelValues("sent").Inc()
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// joinBatch fetches every unseen ref in batch with bounded concurrency
// and joins successful fetches into the builder, returning how many
// refs were newly attempted. A fetch failure marks the ref seen without
// retry (see DESIGN.md's Open Question decision) rather than risking a
// retry storm against an unreachable trace API.
func (f *Fetcher) joinBatch(ctx context.Context, batch []Ref) int {
	unseen := f.filterUnseen(batch)
	if len(unseen) == 0 {
		return 0
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Concurrency)

	for _, ref := range unseen {
		g.Go(func() error {
			spanCtx, span := f.tracer.StartSpan(gctx, "trace_fetcher.fetch")
			defer span.End()

			start := time.Now()
			trace, err := f.source.GetTrace(spanCtx, ref.ProjectID, ref.TraceID)
			f.metrics.TraceFetchDuration.Observe(time.Since(start).Seconds())

			f.mu.Lock()
			f.seen[ref] = struct{}{}
			f.mu.Unlock()

			if err != nil {
				f.log.Warn("failed to fetch trace", "project_id", ref.ProjectID, "trace_id", ref.TraceID, "err", err)
				f.metrics.TracesFetchedTotal.WithLabelValues("error").Inc()
				telemetry.SetError(spanCtx, err)
				return nil
			}

			f.metrics.TracesFetchedTotal.WithLabelValues("ok").Inc()
			f.builder.ProcessTrace(trace)
			return nil
		})
	}

	_ = g.Wait()
	return len(unseen)
}

func (f *Fetcher) filterUnseen(batch []Ref) []Ref {
	f.mu.Lock()
	defer f.mu.Unlock()

	unseen := make([]Ref, 0, len(batch))
	for _, ref := range batch {
		if _, ok := f.seen[ref]; !ok {
			unseen = append(unseen, ref)
		}
	}
	return unseen
}
