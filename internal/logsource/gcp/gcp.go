// Package gcp implements logsource.Source against Google Cloud Logging's
// entries.list REST API, scoped to Cloud Run revision logs carrying an
// http_request sub-structure.
package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kemicofa/rtc/internal/logsource"
	"github.com/kemicofa/rtc/internal/normalize"
)

const (
	baseLogFilter = "resource.type:cloud_run_revision AND http_request:*"
	entriesURL    = "https://logging.googleapis.com/v2/entries:list"
	lookback      = 7 * 24 * time.Hour
)

// TokenSource supplies the bearer token used to authenticate against the
// Cloud Logging API. Production wiring obtains one from Application
// Default Credentials; tests supply a stub.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config configures one Source instance, mirroring spec.md §6.2's
// log_engine.gcp options plus the supplemented max_pages bound.
type Config struct {
	ProjectID       string
	PageSize        int32
	CustomLogFilter string
	MaxPages        int
}

// Source polls Cloud Logging's entries.list endpoint.
type Source struct {
	cfg    Config
	tokens TokenSource
	client *http.Client

	filter     string
	pagesFetch int
}

func New(cfg Config, tokens TokenSource) *Source {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	clauses := []string{
		baseLogFilter,
		fmt.Sprintf("timestamp>=%q", time.Now().Add(-lookback).UTC().Format(time.RFC3339)),
	}
	if strings.TrimSpace(cfg.CustomLogFilter) != "" {
		clauses = append(clauses, cfg.CustomLogFilter)
	}

	return &Source{
		cfg:    cfg,
		tokens: tokens,
		client: &http.Client{Timeout: 30 * time.Second},
		filter: strings.Join(clauses, " AND "),
	}
}

type listEntriesRequest struct {
	ResourceNames []string `json:"resourceNames"`
	Filter        string   `json:"filter"`
	PageSize      int32    `json:"pageSize"`
	OrderBy       string   `json:"orderBy"`
	PageToken     string   `json:"pageToken,omitempty"`
}

type logEntry struct {
	Resource struct {
		Type   string            `json:"type"`
		Labels map[string]string `json:"labels"`
	} `json:"resource"`
	HTTPRequest *struct {
		RequestMethod string `json:"requestMethod"`
		RequestURL    string `json:"requestUrl"`
	} `json:"httpRequest"`
	Trace  string `json:"trace"`
	SpanID string `json:"spanId"`
}

type listEntriesResponse struct {
	Entries       []logEntry `json:"entries"`
	NextPageToken string     `json:"nextPageToken"`
}

// ErrMaxPagesReached signals that Config.MaxPages pages have already been
// fetched by this Source instance; the caller should terminate cleanly.
var ErrMaxPagesReached = fmt.Errorf("gcp logsource: max_pages reached")

func (s *Source) FetchPage(ctx context.Context, pageToken string) (logsource.Page, error) {
	if s.cfg.MaxPages > 0 && s.pagesFetch >= s.cfg.MaxPages {
		return logsource.Page{}, ErrMaxPagesReached
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return logsource.Page{}, fmt.Errorf("gcp logsource: loading credentials: %w", err)
	}

	reqBody, err := json.Marshal(listEntriesRequest{
		ResourceNames: []string{"projects/" + s.cfg.ProjectID},
		Filter:        s.filter,
		PageSize:      s.cfg.PageSize,
		OrderBy:       "timestamp asc",
		PageToken:     pageToken,
	})
	if err != nil {
		return logsource.Page{}, fmt.Errorf("gcp logsource: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, entriesURL, bytes.NewReader(reqBody))
	if err != nil {
		return logsource.Page{}, fmt.Errorf("gcp logsource: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return logsource.Page{}, fmt.Errorf("gcp logsource: list entries request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return logsource.Page{}, fmt.Errorf("gcp logsource: reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return logsource.Page{}, fmt.Errorf("gcp logsource: list entries returned %s: %s", resp.Status, string(body))
	}

	var decoded listEntriesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return logsource.Page{}, fmt.Errorf("gcp logsource: decoding response: %w", err)
	}

	s.pagesFetch++

	entries := make([]normalize.RawLogEntry, 0, len(decoded.Entries))
	for _, e := range decoded.Entries {
		raw := normalize.RawLogEntry{
			ResourceType: e.Resource.Type,
			ServiceName:  e.Resource.Labels["service_name"],
			Trace:        e.Trace,
			SpanID:       e.SpanID,
		}
		if e.HTTPRequest != nil {
			raw.HasHTTPRequest = true
			raw.RequestMethod = e.HTTPRequest.RequestMethod
			raw.RequestURL = e.HTTPRequest.RequestURL
		}
		entries = append(entries, raw)
	}

	return logsource.Page{Entries: entries, NextPageToken: decoded.NextPageToken}, nil
}
