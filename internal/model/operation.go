package model

import "strings"

// Operation is an externally addressable endpoint of a service. Http is the
// only variant today; new variants must implement the same
// Kind/identityKey/Label contract without altering the identity key of existing Http operations.
type Operation interface {
	// Kind names the operation variant, e.g. "http".
	Kind() string
	// identityKey is the lower-cased, trimmed string folded into the
	// ServiceOperationId hash: kind_method_path for Http.
	identityKey() string
	// Label is the human-readable display form, e.g. "GET /users/{id}".
	Label() string
}

// HTTPOperation is the Http{method, path} variant described by the data
// model: method is an upper-cased HTTP verb, path is a normalized template.
type HTTPOperation struct {
	Method string
	Path   string
}

func NewHTTPOperation(method, path string) HTTPOperation {
	return HTTPOperation{
		Method: strings.ToUpper(strings.TrimSpace(method)),
		Path:   path,
	}
}

func (o HTTPOperation) Kind() string { return "http" }

func (o HTTPOperation) identityKey() string {
	return strings.TrimSpace(
		"http_" + strings.ToLower(strings.TrimSpace(o.Method)) + "_" + strings.ToLower(strings.TrimSpace(o.Path)),
	)
}

func (o HTTPOperation) Label() string {
	return strings.ToUpper(strings.TrimSpace(o.Method)) + " " + strings.ToLower(strings.TrimSpace(o.Path))
}
