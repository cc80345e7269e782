package gcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTokens struct{ token string }

func (s stubTokens) Token(ctx context.Context) (string, error) { return s.token, nil }

func TestNewComposesFilterClauses(t *testing.T) {
	s := New(Config{ProjectID: "proj", CustomLogFilter: `labels.env="prod"`}, stubTokens{token: "tok"})
	assert.Contains(t, s.filter, baseLogFilter)
	assert.Contains(t, s.filter, `labels.env="prod"`)
	assert.Contains(t, s.filter, "timestamp>=")
}

func TestNewDefaultsPageSize(t *testing.T) {
	s := New(Config{ProjectID: "proj"}, stubTokens{token: "tok"})
	assert.EqualValues(t, 100, s.cfg.PageSize)
}

func TestFetchPageStopsAtMaxPages(t *testing.T) {
	s := New(Config{ProjectID: "proj", MaxPages: 1}, stubTokens{token: "tok"})
	s.pagesFetch = 1

	_, err := s.FetchPage(context.Background(), "")
	require.ErrorIs(t, err, ErrMaxPagesReached)
}
