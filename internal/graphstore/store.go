// Package graphstore defines the capability the Graph Writer consumes:
// idempotent application of a service-node-graph snapshot to a property
// graph database.
package graphstore

import (
	"context"

	"github.com/kemicofa/rtc/internal/model"
)

// Store is implemented by every graph database backend.
type Store interface {
	Upsert(ctx context.Context, graph *model.ServiceNodeGraph) error
}
