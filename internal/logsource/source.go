// Package logsource defines the capability every log engine backend
// (GCP Cloud Logging, a generic event-stream API, or the in-memory demo
// fixture) implements: paginated retrieval of raw log entries.
package logsource

import (
	"context"

	"github.com/kemicofa/rtc/internal/normalize"
)

// Page is one page of raw log entries plus the token to fetch the next
// one. NextPageToken is empty when the page retrieved was the last.
type Page struct {
	Entries       []normalize.RawLogEntry
	NextPageToken string
}

// Source is implemented by every log engine backend. FetchPage is called
// repeatedly with the token returned by the previous call (empty on the
// first call) until NextPageToken comes back empty, at which point the
// caller stops fetching.
type Source interface {
	FetchPage(ctx context.Context, pageToken string) (Page, error)
}
