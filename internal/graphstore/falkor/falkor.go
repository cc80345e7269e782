// Package falkor implements the GraphStore capability against FalkorDB.
// FalkorDB speaks the Redis protocol as a graph-query module, so the
// idiomatic client is go-redis with raw GRAPH.QUERY commands rather than
// a dedicated driver.
package falkor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kemicofa/rtc/internal/metrics"
	"github.com/kemicofa/rtc/internal/model"
	"github.com/kemicofa/rtc/internal/telemetry"
)

// Options configures one Store, mirroring spec.md §6.2's
// graph_engine.falkor options.
type Options struct {
	DatabaseURL string
	GraphName   string
	MaxPool     int
}

// Store upserts service-node-graph snapshots into a FalkorDB graph.
type Store struct {
	client  *redis.Client
	graph   string
	log     *slog.Logger
	metrics *metrics.Metrics
	tracer  *telemetry.Provider
}

func New(opts Options, log *slog.Logger, m *metrics.Metrics, tracer *telemetry.Provider) (*Store, error) {
	if opts.MaxPool <= 0 {
		opts.MaxPool = 1
	}

	redisOpts, err := redis.ParseURL(opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("falkor graphstore: parsing database_url: %w", err)
	}
	redisOpts.PoolSize = opts.MaxPool

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("falkor graphstore: ping failed: %w", err)
	}

	return &Store{client: client, graph: opts.GraphName, log: log, metrics: m, tracer: tracer}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

const (
	upsertServiceCypher = `MERGE (s:Service {name: $name}) RETURN s`

	upsertOperationCypher = `
		MERGE (o:Operation {id: $id})
		ON CREATE SET o.label = $label
		RETURN o`

	upsertExposesCypher = `
		MATCH (s:Service {name: $name}), (o:Operation {id: $id})
		MERGE (s)-[r:EXPOSES]-(o)
		RETURN r`

	upsertInvokesCypher = `
		MATCH (s:Service {name: $name}), (o:Operation {id: $id})
		MERGE (s)-[r:INVOKES]->(o)
		RETURN r`
)

// invocation is one caller/target-operation pair, collected from the
// snapshot's invokes maps and written only once every Service and
// Operation vertex is in place.
type invocation struct {
	from model.ServiceName
	to   model.ServiceOperationID
}

// Upsert applies one snapshot idempotently: per spec.md §4.5, all Service
// and Operation vertices (and their EXPOSES edges) are written before any
// INVOKES edge, because an edge's target may belong to a service the
// snapshot also introduces. A write failure abandons the rest of this
// snapshot; the next snapshot is a superset and will retry the same
// upserts.
func (s *Store) Upsert(ctx context.Context, graph *model.ServiceNodeGraph) error {
	ctx, span := s.tracer.StartSpan(ctx, "graph_writer.snapshot")
	defer span.End()

	var invocations []invocation

	for name, node := range graph.Services {
		if err := s.query(ctx, upsertServiceCypher, map[string]any{"name": name}); err != nil {
			s.log.Warn("failed to upsert service vertex", "service", name, "err", err)
			s.failUpsert(ctx, err)
			return nil
		}

		for id, op := range node.Operations {
			if err := s.query(ctx, upsertOperationCypher, map[string]any{"id": id, "label": op.Label()}); err != nil {
				s.log.Warn("failed to upsert operation vertex", "operation_id", id, "err", err)
				s.failUpsert(ctx, err)
				return nil
			}
			if err := s.query(ctx, upsertExposesCypher, map[string]any{"name": name, "id": id}); err != nil {
				s.log.Warn("failed to upsert EXPOSES edge", "service", name, "operation_id", id, "err", err)
				s.failUpsert(ctx, err)
				return nil
			}
		}

		for _, ids := range node.Invokes {
			for id := range ids {
				invocations = append(invocations, invocation{from: name, to: id})
			}
		}
	}

	for _, inv := range invocations {
		if err := s.query(ctx, upsertInvokesCypher, map[string]any{"name": inv.from, "id": inv.to}); err != nil {
			s.log.Warn("failed to upsert INVOKES edge", "from", inv.from, "to", inv.to, "err", err)
			s.failUpsert(ctx, err)
			return nil
		}
	}

	s.metrics.UpsertsTotal.WithLabelValues("ok").Inc()
	s.metrics.GraphServicesObserved.Set(float64(len(graph.Services)))
	return nil
}

func (s *Store) failUpsert(ctx context.Context, err error) {
	s.metrics.UpsertsTotal.WithLabelValues("error").Inc()
	telemetry.SetError(ctx, err)
}

// query issues one parameterized Cypher statement via FalkorDB's
// GRAPH.QUERY command. Parameters are always passed as bound values,
// never interpolated into the query string.
func (s *Store) query(ctx context.Context, cypher string, params map[string]any) error {
	return s.client.Do(ctx, "GRAPH.QUERY", s.graph, paramsPrefix(params)+cypher).Err()
}

// paramsPrefix renders params as FalkorDB's CYPHER parameter-binding
// prefix (CYPHER k1=v1 k2=v2 ...), the form GRAPH.QUERY expects ahead of
// the query body for bound parameters. Keys are sorted for a
// deterministic query string; values are escaped as Cypher literals
// (cypherLiteral), not Go's %q, since Cypher's quoting rules for
// strings are not the same as Go's.
func paramsPrefix(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("CYPHER ")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s ", k, cypherLiteral(params[k]))
	}
	return b.String()
}

// cypherLiteral renders v as a Cypher literal suitable for binding
// through CYPHER k=v. Every value this store passes in is a service
// name, operation id, or operation label (all plain strings); anything
// else is stringified and quoted defensively rather than emitted bare.
func cypherLiteral(v any) string {
	switch val := v.(type) {
	case string:
		return cypherString(val)
	case bool, int, int32, int64, float32, float64:
		return fmt.Sprint(val)
	default:
		return cypherString(fmt.Sprint(val))
	}
}

// cypherString renders s as a double-quoted Cypher string literal,
// escaping backslashes and double quotes per Cypher's string-literal
// grammar (distinct from Go's %q escaping).
func cypherString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
