package graphbuilder

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kemicofa/rtc/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strp(s string) *string { return &s }

func TestProcessLogAddsOperationToGraph(t *testing.T) {
	b := New(discardLogger())
	b.ProcessLog(model.NormalizedLogEntry{
		ServiceName: "users-service",
		Operation:   model.NewHTTPOperation("get", "/users/{id}"),
	})

	snap := b.Snapshot()
	require.Contains(t, snap.Services, "users-service")
	assert.Len(t, snap.Services["users-service"].Operations, 1)
}

func TestProcessTraceJoinsKnownSpans(t *testing.T) {
	b := New(discardLogger())

	usersOp := model.NewHTTPOperation("get", "/books/{id}")
	b.ProcessLog(model.NormalizedLogEntry{
		ServiceName: "users-service",
		Operation:   model.NewHTTPOperation("get", "/users/{id}"),
		ProjectID:   "proj",
		TraceID:     strp("t1"),
		SpanID:      strp("span-parent"),
	})
	b.ProcessLog(model.NormalizedLogEntry{
		ServiceName: "books-service",
		Operation:   usersOp,
		ProjectID:   "proj",
		TraceID:     strp("t1"),
		SpanID:      strp("span-child"),
	})

	b.ProcessTrace(model.Trace{
		ProjectID: "proj",
		TraceID:   "t1",
		Spans: []model.Span{
			{SpanID: "span-parent"},
			{SpanID: "span-child", ParentSpanID: strp("span-parent")},
		},
	})

	snap := b.Snapshot()
	id := model.HashServiceOperationID("books-service", usersOp)
	assert.Contains(t, snap.Services["users-service"].Invokes["books-service"], id)
}

func TestProcessTraceSkipsUnknownSpans(t *testing.T) {
	b := New(discardLogger())
	b.ProcessLog(model.NormalizedLogEntry{
		ServiceName: "users-service",
		Operation:   model.NewHTTPOperation("get", "/users/{id}"),
		ProjectID:   "proj",
		TraceID:     strp("t1"),
		SpanID:      strp("span-parent"),
	})

	b.ProcessTrace(model.Trace{
		ProjectID: "proj",
		TraceID:   "t1",
		Spans: []model.Span{
			{SpanID: "span-parent"},
			{SpanID: "span-child-unknown", ParentSpanID: strp("span-parent")},
		},
	})

	snap := b.Snapshot()
	assert.Empty(t, snap.Services["users-service"].Invokes)
}

func TestProcessTraceOnUnknownTraceIsNoop(t *testing.T) {
	b := New(discardLogger())
	b.ProcessTrace(model.Trace{ProjectID: "proj", TraceID: "does-not-exist"})
	assert.Empty(t, b.Snapshot().Services)
}

func TestSnapshotIsIndependentOfLiveGraph(t *testing.T) {
	b := New(discardLogger())
	b.ProcessLog(model.NormalizedLogEntry{ServiceName: "a", Operation: model.NewHTTPOperation("get", "/")})
	snap := b.Snapshot()

	b.ProcessLog(model.NormalizedLogEntry{ServiceName: "b", Operation: model.NewHTTPOperation("get", "/")})

	assert.NotContains(t, snap.Services, "b")
}
