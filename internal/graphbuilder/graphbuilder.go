// Package graphbuilder holds the pipeline's single stateful stage: it
// folds normalized log entries into the service-node graph, joins
// fetched traces against the spans seen so far to add invocation edges,
// and hands out point-in-time snapshots for the writer stage.
package graphbuilder

import (
	"log/slog"
	"sync"

	"github.com/kemicofa/rtc/internal/model"
)

type spanOwner struct {
	service   model.ServiceName
	operation model.Operation
}

// Builder is safe for concurrent use: ProcessLog is called from the log
// fetcher's goroutine, ProcessTrace from the trace fetcher's, and
// Snapshot from whichever goroutine is about to hand a copy to the
// graph writer. All three share one mutex.
type Builder struct {
	log *slog.Logger

	mu       sync.Mutex
	graph    *model.ServiceNodeGraph
	traceMap map[string]map[string]spanOwner
}

func New(log *slog.Logger) *Builder {
	return &Builder{
		log:      log,
		graph:    model.NewServiceNodeGraph(),
		traceMap: map[string]map[string]spanOwner{},
	}
}

// ProcessLog folds one normalized entry into the graph and, when it
// carries trace/span identifiers, records which (service, operation)
// owns that span so a later trace join can resolve it.
func (b *Builder) ProcessLog(entry model.NormalizedLogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.graph.AddOperationToService(entry.ServiceName, entry.Operation)

	if entry.TraceID == nil || entry.SpanID == nil {
		return
	}

	owner := spanOwner{service: entry.ServiceName, operation: entry.Operation}
	ref := model.TraceRef(entry.ProjectID, *entry.TraceID)
	spans, ok := b.traceMap[ref]
	if !ok {
		spans = map[string]spanOwner{}
		b.traceMap[ref] = spans
	}
	spans[*entry.SpanID] = owner
}

// ProcessTrace joins a fetched trace's parent/child span pairs against
// the spans already recorded by ProcessLog, adding one invocation edge
// per pair where both sides resolve to a known (service, operation).
// A span whose root has no parent, or whose parent or self is unknown
// to the trace map (not yet processed, possibly on a different log
// page), is skipped silently: the association can still be made later
// from a different trace with a similar call shape.
func (b *Builder) ProcessTrace(trace model.Trace) {
	ref := model.TraceRef(trace.ProjectID, trace.TraceID)

	b.mu.Lock()
	defer b.mu.Unlock()

	spans, ok := b.traceMap[ref]
	if !ok {
		b.log.Warn("processed a trace linked to nothing", "trace", ref)
		return
	}

	for _, span := range trace.Spans {
		if span.ParentSpanID == nil {
			continue
		}

		parent, parentKnown := spans[*span.ParentSpanID]
		child, childKnown := spans[span.SpanID]
		if !parentKnown || !childKnown {
			continue
		}

		b.graph.AddTargetToService(parent.service, child.service, child.operation)
	}

	// TODO: evict ref from traceMap once every span in it has been
	// joined; trace_map otherwise grows without bound for the lifetime
	// of the process.
}

// Snapshot returns an independent copy of the graph accumulated so far,
// safe to hand to the graph writer while ProcessLog/ProcessTrace keep
// mutating the live graph concurrently.
func (b *Builder) Snapshot() *model.ServiceNodeGraph {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.graph.Clone()
}
