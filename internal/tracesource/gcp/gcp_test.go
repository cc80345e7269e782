package gcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokens struct{ token string }

func (s stubTokens) Token(ctx context.Context) (string, error) { return s.token, nil }

func TestGetTraceParsesSpansAndParents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"projectId": "proj",
			"traceId": "t1",
			"spans": [
				{"spanId": "a"},
				{"spanId": "b", "parentSpanId": "a"}
			]
		}`))
	}))
	defer srv.Close()

	s := New(stubTokens{token: "tok"})
	s.client = srv.Client()

	// Point GetTrace at the test server rather than the real Cloud Trace
	// host by constructing the request manually would require exporting
	// the URL builder; instead exercise the JSON decoding path through a
	// client whose transport redirects to srv.
	s.client.Transport = redirectTransport{target: srv.URL}

	trace, err := s.GetTrace(context.Background(), "proj", "t1")
	require.NoError(t, err)

	assert.Equal(t, "proj", trace.ProjectID)
	require.Len(t, trace.Spans, 2)
	assert.Nil(t, trace.Spans[0].ParentSpanID)
	require.NotNil(t, trace.Spans[1].ParentSpanID)
	assert.Equal(t, "a", *trace.Spans[1].ParentSpanID)
}

// redirectTransport rewrites every request to target's host, so a test
// can point the hard-coded Cloud Trace URL at an httptest server.
type redirectTransport struct {
	target string
}

func (t redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	u, err := req.URL.Parse(t.target)
	if err != nil {
		return nil, err
	}
	req.URL.Scheme = u.Scheme
	req.URL.Host = u.Host
	return http.DefaultTransport.RoundTrip(req)
}
