// Package eventstream implements logsource.Source against a generic
// time-windowed event-log search API (the shape Datadog's Logs Search
// API exposes): a fixed time window, ascending sort, and an opaque
// pagination cursor returned inside the response body.
package eventstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kemicofa/rtc/internal/logsource"
	"github.com/kemicofa/rtc/internal/normalize"
)

const lookback = 7 * 24 * time.Hour

// Config configures one Source instance, mirroring spec.md §6.2's
// log_engine.event-stream options.
type Config struct {
	APIURL string
	APIKey string
	AppKey string
	Query  string
}

// Source polls a generic event-log search endpoint.
type Source struct {
	cfg    Config
	client *http.Client
	from   time.Time
}

func New(cfg Config) *Source {
	return &Source{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		from:   time.Now().Add(-lookback),
	}
}

type searchRequest struct {
	Query string `json:"query"`
	Sort  string `json:"sort"`
	From  string `json:"from"`
	To    string `json:"to"`
	Page  struct {
		Cursor string `json:"cursor,omitempty"`
	} `json:"page"`
}

type searchHit struct {
	Attributes struct {
		ResourceType string `json:"resource_type"`
		ServiceName  string `json:"service_name"`
		Method       string `json:"method"`
		URL          string `json:"url"`
		TraceID      string `json:"trace_id"`
		SpanID       string `json:"span_id"`
	} `json:"attributes"`
}

type searchResponse struct {
	Data []searchHit `json:"data"`
	Meta struct {
		Page struct {
			After string `json:"after"`
		} `json:"page"`
	} `json:"meta"`
}

func (s *Source) FetchPage(ctx context.Context, pageToken string) (logsource.Page, error) {
	reqBody := searchRequest{
		Query: s.cfg.Query,
		Sort:  "timestamp",
		From:  s.from.UTC().Format(time.RFC3339),
		To:    time.Now().UTC().Format(time.RFC3339),
	}
	reqBody.Page.Cursor = pageToken

	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return logsource.Page{}, fmt.Errorf("eventstream logsource: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(encoded))
	if err != nil {
		return logsource.Page{}, fmt.Errorf("eventstream logsource: building request: %w", err)
	}
	req.Header.Set("DD-API-KEY", s.cfg.APIKey)
	req.Header.Set("DD-APPLICATION-KEY", s.cfg.AppKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return logsource.Page{}, fmt.Errorf("eventstream logsource: search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return logsource.Page{}, fmt.Errorf("eventstream logsource: reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return logsource.Page{}, fmt.Errorf("eventstream logsource: search returned %s: %s", resp.Status, string(body))
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return logsource.Page{}, fmt.Errorf("eventstream logsource: decoding response: %w", err)
	}

	entries := make([]normalize.RawLogEntry, 0, len(decoded.Data))
	for _, hit := range decoded.Data {
		entries = append(entries, normalize.RawLogEntry{
			ResourceType:   hit.Attributes.ResourceType,
			ServiceName:    hit.Attributes.ServiceName,
			RequestMethod:  hit.Attributes.Method,
			RequestURL:     hit.Attributes.URL,
			HasHTTPRequest: hit.Attributes.URL != "",
			Trace:          hit.Attributes.TraceID,
			SpanID:         hit.Attributes.SpanID,
		})
	}

	return logsource.Page{Entries: entries, NextPageToken: decoded.Meta.Page.After}, nil
}
