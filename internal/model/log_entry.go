package model

// ResourceKind identifies the monitored-resource type a raw log entry was
// emitted for. Only CloudRunRevision is accepted by the normalizer today.
type ResourceKind string

const ResourceKindCloudRunRevision ResourceKind = "cloud_run_revision"

// NormalizedLogEntry is the canonical form every log-source backend
// normalizes its raw records into.
type NormalizedLogEntry struct {
	ServiceName ServiceName
	Operation   Operation

	// ProjectID scopes TraceID into the same projects/{id}/traces/{id}
	// coordinate space ProcessTrace joins against (see TraceRef); it is
	// the log fetcher's configured project, not a field Normalize can
	// derive from the raw record alone.
	ProjectID string
	TraceID   *string
	SpanID    *string

	ResourceKind ResourceKind
}

// Span is one node of a distributed trace's call tree.
type Span struct {
	SpanID       string
	ParentSpanID *string
}

// Trace is a fetched distributed trace: a flat list of spans linked by
// ParentSpanID.
type Trace struct {
	ProjectID string
	TraceID   string
	Spans     []Span
}

// TraceRef is the canonical full trace path, projects/{project_id}/traces/{trace_id},
// used as the key into the trace→span map.
func TraceRef(projectID, traceID string) string {
	return "projects/" + projectID + "/traces/" + traceID
}
