package pathnorm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeReplacesIds(t *testing.T) {
	out, err := Normalize("https://test.com/users/12345/books/12345", DefaultFamilies())
	require.NoError(t, err)
	require.Equal(t, "/users/{users_id}/books/{books_id}", out)
}

func TestNormalizeReplacesConsecutiveIds(t *testing.T) {
	out, err := Normalize("https://test.com/users/12345/12345/books/12345/12345", DefaultFamilies())
	require.NoError(t, err)
	require.Equal(t, "/users/{users_id}/{{users_id}_id}/books/{books_id}/{{books_id}_id}", out)
}

func TestNormalizeReplacesUUIDs(t *testing.T) {
	out, err := Normalize("https://test.com/users/91366bf0-4c97-4832-af68-452c51ca38eb/books/12345", DefaultFamilies())
	require.NoError(t, err)
	require.Equal(t, "/users/{users_uuid}/books/{books_id}", out)
}

func TestNormalizeWithCustomFamily(t *testing.T) {
	families, err := WithCustomFamily(DefaultFamilies(), []string{`prefix-\d+`})
	require.NoError(t, err)

	out, err := Normalize(
		"https://test.com/users/91366bf0-4c97-4832-af68-452c51ca38eb/books/12345/car/prefix-12345",
		families,
	)
	require.NoError(t, err)
	require.Equal(t, "/users/{users_uuid}/books/{books_id}/car/{car_custom_id}", out)
}

func TestNormalizePreservesSegmentCount(t *testing.T) {
	out, err := Normalize("https://test.com/a/1/b/2/c", DefaultFamilies())
	require.NoError(t, err)
	require.Equal(t, 5, len(splitNonEmpty(out)))
}

func TestNormalizeRejectsRelativeURL(t *testing.T) {
	_, err := Normalize("/users/1", DefaultFamilies())
	require.Error(t, err)
}

func splitNonEmpty(path string) []string {
	var out []string
	for _, s := range split(path, '/') {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func split(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
