// Package logfetcher drives the paginated log source, normalizes each
// entry into the Graph Builder, and forwards newly-observed trace
// references to the Trace Fetcher.
package logfetcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kemicofa/rtc/internal/graphbuilder"
	"github.com/kemicofa/rtc/internal/logsource"
	"github.com/kemicofa/rtc/internal/logsource/gcp"
	"github.com/kemicofa/rtc/internal/metrics"
	"github.com/kemicofa/rtc/internal/model"
	"github.com/kemicofa/rtc/internal/normalize"
	"github.com/kemicofa/rtc/internal/pathnorm"
	"github.com/kemicofa/rtc/internal/telemetry"
	"github.com/kemicofa/rtc/internal/tracefetcher"
)

// ErrBackoff is how long the fetcher waits before retrying a failed page
// fetch without advancing the page cursor.
const ErrBackoff = 30 * time.Second

// Fetcher drives one logsource.Source to completion (or until ctx is
// canceled).
type Fetcher struct {
	source       logsource.Source
	builder      *graphbuilder.Builder
	families     []pathnorm.Family
	log          *slog.Logger
	pollInterval time.Duration
	errBackoff   time.Duration
	metrics      *metrics.Metrics
	tracer       *telemetry.Provider

	// projectID scopes every trace reference this fetcher emits; it is
	// the coordinate the paired TraceSource expects as GetTrace's first
	// argument.
	projectID string
}

func New(source logsource.Source, builder *graphbuilder.Builder, families []pathnorm.Family, projectID string, pollInterval time.Duration, log *slog.Logger, m *metrics.Metrics, tracer *telemetry.Provider) *Fetcher {
	return &Fetcher{
		source:       source,
		builder:      builder,
		families:     families,
		log:          log,
		pollInterval: pollInterval,
		errBackoff:   ErrBackoff,
		metrics:      m,
		tracer:       tracer,
		projectID:    projectID,
	}
}

// Run pages through source until it reports an empty NextPageToken or
// ctx is canceled, closing refs when it returns (refs is owned by this
// Fetcher) and writing directly into the shared snapshots channel
// (which it does not close; see tracefetcher.Run for the shared-channel
// contract).
func (f *Fetcher) Run(ctx context.Context, refs chan<- []tracefetcher.Ref, snapshots chan<- *model.ServiceNodeGraph) {
	defer close(refs)

	pageToken := ""
	for {
		if ctx.Err() != nil {
			return
		}

		spanCtx, span := f.tracer.StartSpan(ctx, "log_fetcher.page")
		page, err := f.source.FetchPage(spanCtx, pageToken)
		if err != nil {
			f.metrics.PagesFetchedTotal.WithLabelValues("error").Inc()
			telemetry.SetError(spanCtx, err)
			span.End()
			if errors.Is(err, context.Canceled) {
				return
			}
			if errors.Is(err, gcp.ErrMaxPagesReached) {
				f.log.Info("max_pages reached, terminating log fetcher")
				return
			}
			f.log.Error("failed to fetch log page", "err", err)
			if !f.sleep(ctx, f.errBackoff) {
				return
			}
			continue
		}
		f.metrics.PagesFetchedTotal.WithLabelValues("ok").Inc()
		span.End()

		f.processPage(page, refs)

		select {
		case snapshots <- f.builder.Snapshot():
			f.metrics.SnapshotsTotal.WithLabelValues("sent").Inc()
		case <-ctx.Done():
			return
		}

		if page.NextPageToken == "" {
			f.log.Info("next page token was empty, terminating log fetcher")
			return
		}
		pageToken = page.NextPageToken

		if !f.sleep(ctx, f.pollInterval) {
			return
		}
	}
}

// processPage normalizes every entry in page, folds accepted ones into
// the builder, collects the page's distinct trace references, and
// sends them to refs (logged and dropped when the channel is full,
// since the pipeline tolerates a missed trace batch).
func (f *Fetcher) processPage(page logsource.Page, refs chan<- []tracefetcher.Ref) {
	hist := normalize.NewHistogram()
	seen := map[tracefetcher.Ref]struct{}{}
	var batch []tracefetcher.Ref

	for _, raw := range page.Entries {
		entry, err := normalize.Normalize(raw, f.families)
		if err != nil {
			hist.Record(err)
			f.metrics.EntriesRejectedTotal.WithLabelValues(err.Error()).Inc()
			continue
		}
		f.metrics.EntriesNormalized.Inc()

		entry.ProjectID = f.projectID
		f.builder.ProcessLog(entry)

		if entry.TraceID == nil {
			continue
		}
		ref := tracefetcher.Ref{ProjectID: f.projectID, TraceID: *entry.TraceID}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		batch = append(batch, ref)
	}

	if hist.Total() > 0 {
		f.log.Warn("rejected log entries", "count", hist.Total(), "reasons", hist.Counts())
	}

	if len(batch) == 0 {
		return
	}

	select {
	case refs <- batch:
	default:
		f.log.Error("trace-request channel full or unready, dropping batch", "batch_size", len(batch))
	}
}

func (f *Fetcher) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
