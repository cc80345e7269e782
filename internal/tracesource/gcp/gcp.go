// Package gcp implements tracesource.Source against Cloud Trace's v1
// projects.traces.get REST API.
package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kemicofa/rtc/internal/model"
)

// TokenSource supplies the bearer token used to authenticate against the
// Cloud Trace API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Source fetches individual traces from Cloud Trace.
type Source struct {
	tokens TokenSource
	client *http.Client
}

func New(tokens TokenSource) *Source {
	return &Source{tokens: tokens, client: &http.Client{Timeout: 30 * time.Second}}
}

type traceSpan struct {
	SpanID       string `json:"spanId"`
	ParentSpanID string `json:"parentSpanId"`
}

type traceResponse struct {
	ProjectID string      `json:"projectId"`
	TraceID   string      `json:"traceId"`
	Spans     []traceSpan `json:"spans"`
}

func (s *Source) GetTrace(ctx context.Context, projectID, traceID string) (model.Trace, error) {
	url := fmt.Sprintf("https://cloudtrace.googleapis.com/v1/projects/%s/traces/%s", projectID, traceID)

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return model.Trace{}, fmt.Errorf("gcp tracesource: loading credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Trace{}, fmt.Errorf("gcp tracesource: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return model.Trace{}, fmt.Errorf("gcp tracesource: get trace request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Trace{}, fmt.Errorf("gcp tracesource: reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Trace{}, fmt.Errorf("gcp tracesource: trace API error %s: %s", resp.Status, string(body))
	}

	var decoded traceResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return model.Trace{}, fmt.Errorf("gcp tracesource: decoding response: %w", err)
	}

	trace := model.Trace{
		ProjectID: decoded.ProjectID,
		TraceID:   decoded.TraceID,
		Spans:     make([]model.Span, 0, len(decoded.Spans)),
	}
	for _, s := range decoded.Spans {
		span := model.Span{SpanID: s.SpanID}
		if s.ParentSpanID != "" {
			parent := s.ParentSpanID
			span.ParentSpanID = &parent
		}
		trace.Spans = append(trace.Spans, span)
	}

	return trace, nil
}
