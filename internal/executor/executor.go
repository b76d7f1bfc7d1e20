// Package executor issues compiled requests against the downstream table
// service and assembles paged results, including the aggregation
// total-probe described in spec.md §4.5.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"gateway/internal/dialect"
	"gateway/internal/domain"
)

// Controller implements spec.md §4.5.
type Controller struct {
	downstream domain.Downstream
	logger     *slog.Logger
}

// New builds a Controller.
func New(downstream domain.Downstream, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{downstream: downstream, logger: logger}
}

// Execute sends req, and for an aggregated plan with a group_by clause,
// issues the additional total-probe request spec.md §4.5 requires.
func (c *Controller) Execute(ctx context.Context, req domain.DownstreamRequest, plan domain.QueryPlan) (domain.Page, error) {
	start := time.Now()

	rows, total, err := c.downstream.Fetch(ctx, req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorContext(ctx, "downstream fetch failed", "resource_id", plan.ResourceID, "duration_ms", duration.Milliseconds(), "error", err)
		return domain.Page{}, err
	}
	c.logger.DebugContext(ctx, "downstream fetch completed", "resource_id", plan.ResourceID, "rows", len(rows), "duration_ms", duration.Milliseconds())

	if plan.IsAggregated() {
		total, err = c.probeAggregatedTotal(ctx, req, plan)
		if err != nil {
			return domain.Page{}, err
		}
	}

	return domain.Page{Rows: rows, Total: total}, nil
}

// probeAggregatedTotal implements the total-probe pattern: aggregation
// rewrites the row set, so Content-Range's total reflects pre-aggregation
// rows. For a grouped plan, issue a second request counting distinct
// group-by tuples; an aggregate without group_by is a single row.
func (c *Controller) probeAggregatedTotal(ctx context.Context, req domain.DownstreamRequest, plan domain.QueryPlan) (*int64, error) {
	if !plan.Aggregation.HasGroupBy() {
		one := int64(1)
		return &one, nil
	}

	probeReq := buildGroupCountProbe(req, plan)
	rows, _, err := c.downstream.Fetch(ctx, probeReq)
	if err != nil {
		return nil, err
	}
	count := int64(len(rows))
	return &count, nil
}

// probeCountAlias is the result column of the probe's aggregate term. It
// is never read back — only len(rows) matters — so any name that cannot
// collide with a real profile column works.
const probeCountAlias = "__probe_count"

// buildGroupCountProbe reuses req's filters but replaces its select
// expression with the group-by columns plus a count() aggregate, so the
// downstream PostgREST-style service actually groups before counting:
// a bare `select=col1,col2` with no aggregate expression does not imply
// GROUP BY, and would return one row per underlying row instead of one
// per distinct group-by tuple.
func buildGroupCountProbe(req domain.DownstreamRequest, plan domain.QueryPlan) domain.DownstreamRequest {
	groupBy := plan.Aggregation.GroupBy
	terms := make([]string, 0, len(groupBy)+1)
	for _, col := range groupBy {
		terms = append(terms, selectIdentifier(col))
	}
	terms = append(terms, fmt.Sprintf("%s:%s.count()", probeCountAlias, selectIdentifier(groupBy[0])))

	query := cloneValues(req.Query)
	query.Del("order")
	query.Set("select", strings.Join(terms, ","))

	return domain.DownstreamRequest{
		Table: req.Table,
		Query: query,
		// No Range header: the probe needs every distinct tuple, not one page.
	}
}

// selectIdentifier mirrors compiler.selectIdentifier: route a column
// name embedded inside a select= expression through dialect quoting
// when it contains non-word characters.
func selectIdentifier(column string) string {
	if dialect.IsSimpleIdentifier(column) {
		return column
	}
	return dialect.QuoteIdentifier(column)
}

func cloneValues(v url.Values) url.Values {
	clone := make(url.Values, len(v))
	for k, vals := range v {
		clone[k] = append([]string(nil), vals...)
	}
	return clone
}
