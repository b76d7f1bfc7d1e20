package queryplan

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"gateway/internal/domain"
)

// PageConfig carries the page-size defaults and cap the parser enforces,
// sourced from the gateway's configuration.
type PageConfig struct {
	Default int
	Max     int
}

const (
	keyPage       = "page"
	keyPageSize   = "page_size"
	keyColumns    = "columns"
	suffixSep     = "__"
)

// Parse implements spec.md §4.3: turns a flat multimap of query-string
// parameters into a normalized domain.QueryPlan, validated against
// profile's columns and semantic types.
func Parse(values url.Values, resourceID string, profile domain.Profile, cfg PageConfig) (domain.QueryPlan, error) {
	plan := domain.QueryPlan{ResourceID: resourceID}

	page, err := parsePositiveInt(values.Get(keyPage), 1)
	if err != nil {
		return domain.QueryPlan{}, domain.ErrInvalidValue(keyPage, "", values.Get(keyPage), "must be a positive integer")
	}
	plan.Page = page

	pageSize := cfg.Default
	if raw := values.Get(keyPageSize); raw != "" {
		pageSize, err = parsePositiveInt(raw, cfg.Default)
		if err != nil {
			return domain.QueryPlan{}, domain.ErrInvalidValue(keyPageSize, "", raw, "must be a positive integer")
		}
	}
	if pageSize > cfg.Max {
		pageSize = cfg.Max
	}
	plan.PageSize = pageSize

	var groupBy []string
	var aggregates []domain.Aggregate
	var hasSort bool

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == keyPage || key == keyPageSize || key == keyColumns {
			continue
		}

		idx := strings.LastIndex(key, suffixSep)
		if idx < 0 {
			continue // reserved extension surface: unknown keys without "__" are ignored
		}
		column, suffix := key[:idx], key[idx+len(suffixSep):]

		op, ok := operatorTable[suffix]
		if !ok {
			return domain.QueryPlan{}, domain.ErrInvalidParameter(column, suffix, "unknown operator")
		}
		if !profile.HasColumn(column) {
			return domain.QueryPlan{}, domain.ErrInvalidParameter(column, suffix, "unknown column")
		}
		semType, _ := profile.SemanticTypeOf(column)
		if !op.allowedType(semType) {
			return domain.QueryPlan{}, domain.ErrInvalidParameter(column, suffix, "operator not legal for semantic type "+string(semType))
		}

		raw := values.Get(key)

		switch op.kind {
		case kindSort:
			hasSort = true
			dir := domain.SortDirection(raw)
			if dir != domain.SortAsc && dir != domain.SortDesc {
				return domain.QueryPlan{}, domain.ErrInvalidValue(column, suffix, raw, `must be "asc" or "desc"`)
			}
			plan.Sorts = append(plan.Sorts, domain.Sort{Column: column, Direction: dir})

		case kindFilter:
			if op.multiValue {
				parts := strings.Split(raw, ",")
				vals := make([]any, 0, len(parts))
				for _, part := range parts {
					v, err := parseScalar(strings.TrimSpace(part), semType)
					if err != nil {
						return domain.QueryPlan{}, domain.ErrInvalidValue(column, suffix, part, err.Error())
					}
					vals = append(vals, v)
				}
				plan.Filters = append(plan.Filters, domain.Filter{Column: column, Op: op.filterOp, Values: vals})
			} else {
				v, err := parseScalar(raw, semType)
				if err != nil {
					return domain.QueryPlan{}, domain.ErrInvalidValue(column, suffix, raw, err.Error())
				}
				plan.Filters = append(plan.Filters, domain.Filter{Column: column, Op: op.filterOp, Value: v})
			}

		case kindGroupBy:
			groupBy = append(groupBy, column)

		case kindAggregate:
			aggregates = append(aggregates, domain.Aggregate{
				Column:       column,
				Fn:           op.aggFunc,
				ResultColumn: column + suffixSep + suffix,
			})
		}
	}

	if len(groupBy) > 0 || len(aggregates) > 0 {
		if hasSort {
			return domain.QueryPlan{}, domain.ErrInvalidParameter("", "sort", "sort is not permitted alongside aggregation")
		}
		plan.Aggregation = &domain.Aggregation{GroupBy: groupBy, Aggregates: aggregates}
	}

	if raw := values.Get(keyColumns); raw != "" {
		cols := strings.Split(raw, ",")
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		if err := validateProjection(cols, plan, profile); err != nil {
			return domain.QueryPlan{}, err
		}
		plan.Projection = cols
	}

	return plan, nil
}

// validateProjection enforces spec.md §4.3: an explicit columns= argument
// must be a subset of the profile (or, for an aggregated plan, of the
// plan's effective projection).
func validateProjection(cols []string, plan domain.QueryPlan, profile domain.Profile) error {
	if plan.IsAggregated() {
		allowed := map[string]bool{}
		for _, c := range plan.EffectiveProjection() {
			allowed[c] = true
		}
		for _, c := range cols {
			if !allowed[c] {
				return domain.ErrInvalidParameter(c, "columns", "not part of the aggregation's projection")
			}
		}
		return nil
	}
	for _, c := range cols {
		if !profile.HasColumn(c) {
			return domain.ErrInvalidParameter(c, "columns", "unknown column")
		}
	}
	return nil
}

func parsePositiveInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

// parseScalar parses raw into semType's Go representation. Every element
// of an "in" list is parsed individually through this same path.
func parseScalar(raw string, semType domain.SemanticType) (any, error) {
	switch semType {
	case domain.TypeString:
		return raw, nil
	case domain.TypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errNotAnInt
		}
		return n, nil
	case domain.TypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errNotAFloat
		}
		return f, nil
	case domain.TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errNotABool
		}
		return b, nil
	case domain.TypeDate:
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, errNotADate
		}
		return t, nil
	case domain.TypeDatetime:
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errNotADatetime
		}
		return t, nil
	case domain.TypeJSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, errNotJSON
		}
		return v, nil
	default:
		return raw, nil
	}
}
