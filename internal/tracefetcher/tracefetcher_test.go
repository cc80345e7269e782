package tracefetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kemicofa/rtc/internal/config"
	"github.com/kemicofa/rtc/internal/graphbuilder"
	"github.com/kemicofa/rtc/internal/metrics"
	"github.com/kemicofa/rtc/internal/model"
	"github.com/kemicofa/rtc/internal/telemetry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *metrics.Metrics {
	return metrics.New("test", prometheus.NewRegistry())
}

func noopTracer() *telemetry.Provider {
	p, _ := telemetry.Init(context.Background(), config.TracingConfig{Enabled: false, ServiceName: "test"})
	return p
}

type stubSource struct {
	calls   atomic.Int32
	traces  map[string]model.Trace
	failFor map[string]bool
}

func (s *stubSource) GetTrace(ctx context.Context, projectID, traceID string) (model.Trace, error) {
	s.calls.Add(1)
	if s.failFor[traceID] {
		return model.Trace{}, errors.New("boom")
	}
	return s.traces[traceID], nil
}

func strp(s string) *string { return &s }

func TestRunJoinsAndEmitsSnapshot(t *testing.T) {
	builder := graphbuilder.New(discardLogger())
	builder.ProcessLog(model.NormalizedLogEntry{
		ServiceName: "gateway",
		Operation:   model.NewHTTPOperation("post", "/"),
		ProjectID:   "proj",
		TraceID:     strp("t1"),
		SpanID:      strp("root"),
	})
	builder.ProcessLog(model.NormalizedLogEntry{
		ServiceName: "users-service",
		Operation:   model.NewHTTPOperation("get", "/users/{id}"),
		ProjectID:   "proj",
		TraceID:     strp("t1"),
		SpanID:      strp("child"),
	})

	source := &stubSource{
		traces: map[string]model.Trace{
			"t1": {
				ProjectID: "proj",
				TraceID:   "t1",
				Spans: []model.Span{
					{SpanID: "root"},
					{SpanID: "child", ParentSpanID: strp("root")},
				},
			},
		},
	}

	f := New(source, builder, discardLogger(), testMetrics(), noopTracer())

	refs := make(chan []Ref, 1)
	snapshots := make(chan *model.ServiceNodeGraph, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		f.Run(ctx, refs, snapshots)
		close(done)
	}()

	refs <- []Ref{{ProjectID: "proj", TraceID: "t1"}}
	close(refs)

	select {
	case snap := <-snapshots:
		id := model.HashServiceOperationID("users-service", model.NewHTTPOperation("get", "/users/{id}"))
		assert.Contains(t, snap.Services["gateway"].Invokes["users-service"], id)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}

	<-done
}

func TestJoinBatchDedupesSeenRefs(t *testing.T) {
	builder := graphbuilder.New(discardLogger())
	source := &stubSource{traces: map[string]model.Trace{}}
	f := New(source, builder, discardLogger(), testMetrics(), noopTracer())

	ref := Ref{ProjectID: "proj", TraceID: "t1"}
	f.joinBatch(context.Background(), []Ref{ref})
	f.joinBatch(context.Background(), []Ref{ref})

	require.EqualValues(t, 1, source.calls.Load())
}

func TestJoinBatchMarksFailedTraceSeen(t *testing.T) {
	builder := graphbuilder.New(discardLogger())
	source := &stubSource{failFor: map[string]bool{"t1": true}}
	f := New(source, builder, discardLogger(), testMetrics(), noopTracer())

	ref := Ref{ProjectID: "proj", TraceID: "t1"}
	n := f.joinBatch(context.Background(), []Ref{ref})
	assert.Equal(t, 1, n)

	n = f.joinBatch(context.Background(), []Ref{ref})
	assert.Equal(t, 0, n)
}
