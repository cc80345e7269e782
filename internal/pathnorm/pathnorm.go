// Package pathnorm implements URL path templating: replacing id-shaped
// path segments with named placeholders so that distinct requests against
// the same route collapse onto one Operation.
package pathnorm

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Family is a named group of regular expressions tried together when
// normalizing a path segment. Families are tried in declared order; within
// a family, regexes are tried in declared order. The first regex anywhere
// that matches a segment wins and stops further families from being
// considered for that segment.
type Family struct {
	Kind    string
	Regexes []*regexp.Regexp
}

// DefaultFamilies returns the built-in id/uuid families, in the order they
// must be tried: numeric ids before UUIDs.
func DefaultFamilies() []Family {
	return []Family{
		{Kind: "id", Regexes: []*regexp.Regexp{regexp.MustCompile(`^\d+$`)}},
		{
			Kind: "uuid",
			Regexes: []*regexp.Regexp{regexp.MustCompile(
				`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`,
			)},
		},
	}
}

// WithCustomFamily appends a custom_id family built from the given regex
// patterns, as configured via http.request_paths.custom_normalize_patterns.
func WithCustomFamily(families []Family, patterns []string) ([]Family, error) {
	if len(patterns) == 0 {
		return families, nil
	}
	custom := Family{Kind: "custom_id"}
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling custom_normalize_patterns %q: %w", pattern, err)
		}
		custom.Regexes = append(custom.Regexes, re)
	}
	return append(families, custom), nil
}

// Normalize splits rawURL's path on "/" and replaces each segment matched
// by a family with a placeholder. A placeholder references the previously
// emitted segment when there is one ("{prev_kind}"), so that a repeated id
// immediately following another placeholder nests ("{{users_id}_id}").
// Segment count is preserved.
func Normalize(rawURL string, families []Family) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing request URL: %w", err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("request URL %q is not absolute", rawURL)
	}

	trimmed := strings.Trim(u.Path, "/")
	var segments []string
	if trimmed != "" {
		segments = strings.Split(trimmed, "/")
	}

	normalized := make([]string, 0, len(segments))
	for _, segment := range segments {
		kind, matched := matchFamilies(segment, families)
		if !matched {
			normalized = append(normalized, segment)
			continue
		}
		if len(normalized) > 0 {
			normalized = append(normalized, fmt.Sprintf("{%s_%s}", normalized[len(normalized)-1], kind))
		} else {
			normalized = append(normalized, fmt.Sprintf("{%s}", kind))
		}
	}

	return "/" + strings.Join(normalized, "/"), nil
}

func matchFamilies(segment string, families []Family) (kind string, matched bool) {
	for _, family := range families {
		for _, re := range family.Regexes {
			if re.MatchString(segment) {
				return family.Kind, true
			}
		}
	}
	return "", false
}
