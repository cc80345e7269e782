package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kemicofa/rtc/internal/pathnorm"
)

func validEntry() RawLogEntry {
	return RawLogEntry{
		ResourceType:   "cloud_run_revision",
		ServiceName:    "users-service",
		RequestMethod:  "get",
		RequestURL:     "https://test.com/users/12345",
		HasHTTPRequest: true,
		Trace:          "projects/my-project/traces/abc123",
		SpanID:         "span-1",
	}
}

func TestNormalizeHappyPath(t *testing.T) {
	entry, err := Normalize(validEntry(), pathnorm.DefaultFamilies())
	require.NoError(t, err)

	assert.Equal(t, "users-service", entry.ServiceName)
	assert.Equal(t, "GET /users/{users_id}", entry.Operation.Label())
	require.NotNil(t, entry.TraceID)
	assert.Equal(t, "abc123", *entry.TraceID)
	require.NotNil(t, entry.SpanID)
	assert.Equal(t, "span-1", *entry.SpanID)
}

func TestNormalizeRejectsMissingResource(t *testing.T) {
	e := validEntry()
	e.ResourceType = ""
	_, err := Normalize(e, pathnorm.DefaultFamilies())
	assert.ErrorIs(t, err, ErrMissingResource)
}

func TestNormalizeRejectsUnsupportedResourceType(t *testing.T) {
	e := validEntry()
	e.ResourceType = "gce_instance"
	_, err := Normalize(e, pathnorm.DefaultFamilies())
	assert.ErrorIs(t, err, ErrUnsupportedResource)
}

func TestNormalizeRejectsMissingServiceName(t *testing.T) {
	e := validEntry()
	e.ServiceName = "  "
	_, err := Normalize(e, pathnorm.DefaultFamilies())
	assert.ErrorIs(t, err, ErrMissingServiceName)
}

func TestNormalizeRejectsMissingHTTPRequest(t *testing.T) {
	e := validEntry()
	e.HasHTTPRequest = false
	_, err := Normalize(e, pathnorm.DefaultFamilies())
	assert.ErrorIs(t, err, ErrMissingHTTPRequest)
}

func TestNormalizeRejectsMalformedURL(t *testing.T) {
	e := validEntry()
	e.RequestURL = "not-a-url"
	_, err := Normalize(e, pathnorm.DefaultFamilies())
	assert.ErrorIs(t, err, ErrMalformedURL)
}

func TestNormalizeWithoutTraceOrSpan(t *testing.T) {
	e := validEntry()
	e.Trace = ""
	e.SpanID = ""
	entry, err := Normalize(e, pathnorm.DefaultFamilies())
	require.NoError(t, err)
	assert.Nil(t, entry.TraceID)
	assert.Nil(t, entry.SpanID)
}
