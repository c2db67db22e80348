package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"dbstatic/internal/logging"
	"dbstatic/internal/metrics"
)

// MetricsTracer implements pgx.QueryTracer to record query latency and errors.
type MetricsTracer struct{}

var _ pgx.QueryTracer = (*MetricsTracer)(nil)

type queryContextKey struct{}

type queryContext struct {
	startTime time.Time
	queryName string
}

func (t *MetricsTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryContext{
		startTime: time.Now(),
		queryName: queryName(data.SQL),
	})
}

func (t *MetricsTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}

	elapsed := time.Since(qctx.startTime)
	metrics.DBQueryDuration.WithLabelValues(qctx.queryName).Observe(elapsed.Seconds())

	if data.Err != nil {
		metrics.DBErrorsTotal.WithLabelValues(qctx.queryName).Inc()
	}

	logging.FromContext(ctx).Debug("query",
		zap.String("query", qctx.queryName),
		zap.Duration("latency", elapsed),
		zap.String("tag", data.CommandTag.String()),
		zap.Error(data.Err))
}

// queryName reduces SQL to its leading verb to keep label cardinality low.
func queryName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToUpper(fields[0])
}
