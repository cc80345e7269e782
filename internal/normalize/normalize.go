// Package normalize turns a raw, source-specific log record into the
// canonical model.NormalizedLogEntry every downstream pipeline stage
// consumes, rejecting records that don't carry enough information to be
// placed on the graph.
package normalize

import (
	"errors"
	"strings"

	"github.com/kemicofa/rtc/internal/model"
	"github.com/kemicofa/rtc/internal/pathnorm"
)

// Errors returned by Normalize. Callers that aggregate per-page rejection
// counts should match against these with errors.Is rather than parsing
// messages.
var (
	ErrMissingResource     = errors.New("normalize: log entry missing resource")
	ErrUnsupportedResource = errors.New("normalize: resource type is not supported")
	ErrMissingServiceName  = errors.New("normalize: resource has no service_name label")
	ErrMissingHTTPRequest  = errors.New("normalize: log entry missing http_request")
	ErrMalformedURL        = errors.New("normalize: http_request.request_url is malformed")
)

// RawLogEntry is the subset of fields a log-source backend must extract
// from its native format before handing a record to Normalize. Backends
// own translating their wire format into this shape; Normalize owns
// deciding whether the result is usable.
type RawLogEntry struct {
	ResourceType   string
	ServiceName    string
	RequestMethod  string
	RequestURL     string
	HasHTTPRequest bool
	Trace          string
	SpanID         string
}

// Normalize validates e and folds its http_request into a templated
// Operation, returning ErrMissingResource, ErrUnsupportedResource,
// ErrMissingServiceName, ErrMissingHTTPRequest, or ErrMalformedURL when e
// cannot be placed on the graph.
func Normalize(e RawLogEntry, families []pathnorm.Family) (model.NormalizedLogEntry, error) {
	if e.ResourceType == "" {
		return model.NormalizedLogEntry{}, ErrMissingResource
	}
	if e.ResourceType != string(model.ResourceKindCloudRunRevision) {
		return model.NormalizedLogEntry{}, ErrUnsupportedResource
	}
	if strings.TrimSpace(e.ServiceName) == "" {
		return model.NormalizedLogEntry{}, ErrMissingServiceName
	}
	if !e.HasHTTPRequest {
		return model.NormalizedLogEntry{}, ErrMissingHTTPRequest
	}

	path, err := pathnorm.Normalize(e.RequestURL, families)
	if err != nil {
		return model.NormalizedLogEntry{}, ErrMalformedURL
	}

	entry := model.NormalizedLogEntry{
		ServiceName:  e.ServiceName,
		Operation:    model.NewHTTPOperation(e.RequestMethod, path),
		ResourceKind: model.ResourceKindCloudRunRevision,
	}

	if traceID := lastTraceSegment(e.Trace); traceID != "" {
		entry.TraceID = &traceID
	}
	if spanID := strings.TrimSpace(e.SpanID); spanID != "" {
		entry.SpanID = &spanID
	}

	return entry, nil
}

// lastTraceSegment extracts the trailing trace_id from a GCP-style full
// trace path (projects/{project}/traces/{trace_id}); it returns the
// input unchanged when there is no "/" to split on, so a bare trace id
// normalizes to itself.
func lastTraceSegment(trace string) string {
	trace = strings.TrimSpace(trace)
	if trace == "" {
		return ""
	}
	if i := strings.LastIndex(trace, "/"); i >= 0 {
		return trace[i+1:]
	}
	return trace
}
