// Package fake implements logsource.Source with a hard-coded demo
// topology, for the "rtc demo" CLI path. It drives the same
// normalize/graph-builder machinery as a real backend rather than
// fabricating a ServiceNodeGraph directly, so a demo run exercises the
// whole ingestion pipeline.
package fake

import (
	"context"

	"github.com/kemicofa/rtc/internal/logsource"
	"github.com/kemicofa/rtc/internal/normalize"
)

// ProjectID and TraceID are the fixed trace coordinates every demo entry
// shares, so a single call to the matching fake tracesource.Source joins
// the whole fixture topology in one pass.
const (
	ProjectID = "demo-project"
	TraceID   = "demo-trace-1"
)

type entry struct {
	service string
	method  string
	path    string
	spanID  string
	parent  string
}

// fixture reproduces web-app -> graphql-service -> {books-service,
// users-service, auth-service}, plus auth-service -> users-service.
var fixture = []entry{
	{service: "web-app", method: "POST", path: "/", spanID: "span-web-app"},
	{service: "graphql-service", method: "POST", path: "/", spanID: "span-graphql", parent: "span-web-app"},

	{service: "books-service", method: "POST", path: "/books", spanID: "span-books-create", parent: "span-graphql"},
	{service: "books-service", method: "GET", path: "/books/12345", spanID: "span-books-get", parent: "span-graphql"},
	{service: "books-service", method: "POST", path: "/books/12345/chapters", spanID: "span-chapters-create", parent: "span-graphql"},
	{service: "books-service", method: "GET", path: "/books/12345/chapters/1", spanID: "span-chapters-get", parent: "span-graphql"},

	{service: "users-service", method: "POST", path: "/users", spanID: "span-users-create", parent: "span-graphql"},
	{service: "users-service", method: "GET", path: "/users/12345", spanID: "span-users-get", parent: "span-graphql"},

	{service: "auth-service", method: "POST", path: "/login", spanID: "span-login", parent: "span-graphql"},
	{service: "auth-service", method: "POST", path: "/logout", spanID: "span-logout", parent: "span-graphql"},

	{service: "users-service", method: "GET", path: "/users/12345", spanID: "span-auth-users-get", parent: "span-login"},
}

// Source serves the fixture exactly once: the first FetchPage call
// returns the whole topology with an empty NextPageToken, matching the
// Log Fetcher's "empty token terminates cleanly" contract.
type Source struct {
	served bool
}

func New() *Source {
	return &Source{}
}

func (s *Source) FetchPage(ctx context.Context, pageToken string) (logsource.Page, error) {
	if s.served {
		return logsource.Page{}, nil
	}
	s.served = true

	entries := make([]normalize.RawLogEntry, 0, len(fixture))
	for _, e := range fixture {
		entries = append(entries, normalize.RawLogEntry{
			ResourceType:   "cloud_run_revision",
			ServiceName:    e.service,
			RequestMethod:  e.method,
			RequestURL:     "https://demo.local" + e.path,
			HasHTTPRequest: true,
			Trace:          "projects/" + ProjectID + "/traces/" + TraceID,
			SpanID:         e.spanID,
		})
	}

	return logsource.Page{Entries: entries, NextPageToken: ""}, nil
}

// Spans exposes the fixture's parent/child span relationships so the
// matching fake tracesource.Source can build the same Trace value
// without duplicating this table.
func Spans() []struct {
	SpanID string
	Parent string
} {
	out := make([]struct {
		SpanID string
		Parent string
	}, 0, len(fixture))
	for _, e := range fixture {
		out = append(out, struct {
			SpanID string
			Parent string
		}{SpanID: e.spanID, Parent: e.parent})
	}
	return out
}
