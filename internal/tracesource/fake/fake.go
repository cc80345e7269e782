// Package fake implements tracesource.Source with the single trace that
// links the logsource/fake fixture's spans, so "rtc demo" can exercise
// the Trace Fetcher's join logic without a real trace backend.
package fake

import (
	"context"
	"fmt"

	"github.com/kemicofa/rtc/internal/logsource/fake"
	"github.com/kemicofa/rtc/internal/model"
)

type Source struct{}

func New() *Source { return &Source{} }

func (s *Source) GetTrace(ctx context.Context, projectID, traceID string) (model.Trace, error) {
	if projectID != fake.ProjectID || traceID != fake.TraceID {
		return model.Trace{}, fmt.Errorf("fake tracesource: no demo trace for %s/%s", projectID, traceID)
	}

	spans := fake.Spans()
	trace := model.Trace{
		ProjectID: projectID,
		TraceID:   traceID,
		Spans:     make([]model.Span, 0, len(spans)),
	}
	for _, s := range spans {
		span := model.Span{SpanID: s.SpanID}
		if s.Parent != "" {
			parent := s.Parent
			span.ParentSpanID = &parent
		}
		trace.Spans = append(trace.Spans, span)
	}
	return trace, nil
}
