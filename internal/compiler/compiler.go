// Package compiler lowers a validated domain.QueryPlan to the downstream
// table service's PostgREST-style wire syntax.
package compiler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gateway/internal/dialect"
	"gateway/internal/domain"
)

// Compile implements spec.md §4.4: filter/order/select/aggregate lowering
// plus a Range header pair for pagination, against ref's concrete table.
func Compile(plan domain.QueryPlan, ref domain.ResourceRef) (domain.DownstreamRequest, error) {
	query := url.Values{}

	for _, f := range plan.Filters {
		key, value, err := compileFilter(f)
		if err != nil {
			return domain.DownstreamRequest{}, err
		}
		query.Add(key, value)
	}

	if len(plan.Sorts) > 0 {
		terms := make([]string, 0, len(plan.Sorts))
		for _, s := range plan.Sorts {
			terms = append(terms, selectIdentifier(s.Column)+"."+string(s.Direction))
		}
		query.Set("order", strings.Join(terms, ","))
	}

	selectExpr := compileSelect(plan)
	if selectExpr != "" {
		query.Set("select", selectExpr)
	}

	offset := (plan.Page - 1) * plan.PageSize
	rangeHeader := fmt.Sprintf("%d-%d", offset, offset+plan.PageSize-1)

	return domain.DownstreamRequest{
		Table:       ref.TableName,
		Query:       query,
		RangeHeader: rangeHeader,
	}, nil
}

// compileFilter lowers one domain.Filter to a PostgREST-style
// `column=op.value` query parameter.
func compileFilter(f domain.Filter) (key, value string, err error) {
	column := f.Column
	if !dialect.IsSimpleIdentifier(column) {
		column = dialect.QuoteIdentifier(column)
	}

	switch f.Op {
	case domain.OpExact:
		return column, "eq." + formatScalar(f.Value), nil
	case domain.OpDiffers:
		return column, "neq." + formatScalar(f.Value), nil
	case domain.OpContains:
		return column, "ilike.*" + formatScalar(f.Value) + "*", nil
	case domain.OpIn:
		parts := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			parts = append(parts, formatScalar(v))
		}
		return column, "in.(" + strings.Join(parts, ",") + ")", nil
	case domain.OpLess:
		return column, "lte." + formatScalar(f.Value), nil
	case domain.OpGreater:
		return column, "gte." + formatScalar(f.Value), nil
	case domain.OpStrictlyLess:
		return column, "lt." + formatScalar(f.Value), nil
	case domain.OpStrictlyGreater:
		return column, "gt." + formatScalar(f.Value), nil
	default:
		return "", "", fmt.Errorf("compile: unhandled filter op %q", f.Op)
	}
}

// compileSelect builds the select= expression: explicit projection when
// given, the aggregation's group-by + aliased aggregate expressions when
// the plan is aggregated, or empty (meaning "all columns") otherwise.
func compileSelect(plan domain.QueryPlan) string {
	if plan.IsAggregated() {
		terms := make([]string, 0, len(plan.Aggregation.GroupBy)+len(plan.Aggregation.Aggregates))
		for _, col := range plan.Aggregation.GroupBy {
			terms = append(terms, selectIdentifier(col))
		}
		for _, agg := range plan.Aggregation.Aggregates {
			terms = append(terms, fmt.Sprintf("%s:%s.%s()", agg.ResultColumn, selectIdentifier(agg.Column), agg.Fn))
		}
		return strings.Join(terms, ",")
	}
	if len(plan.Projection) > 0 {
		terms := make([]string, 0, len(plan.Projection))
		for _, col := range plan.Projection {
			terms = append(terms, selectIdentifier(col))
		}
		return strings.Join(terms, ",")
	}
	return ""
}

// selectIdentifier routes a column name embedded inside a select=
// expression through dialect quoting when it contains non-word
// characters, per spec.md §9's escaping requirement.
func selectIdentifier(column string) string {
	if dialect.IsSimpleIdentifier(column) {
		return column
	}
	return dialect.QuoteIdentifier(column)
}

func formatScalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
