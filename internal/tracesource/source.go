// Package tracesource defines the capability every trace-fetch backend
// implements: resolving one trace reference into its span tree.
package tracesource

import (
	"context"

	"github.com/kemicofa/rtc/internal/model"
)

// Source is implemented by every trace engine backend.
type Source interface {
	GetTrace(ctx context.Context, projectID, traceID string) (model.Trace, error)
}
