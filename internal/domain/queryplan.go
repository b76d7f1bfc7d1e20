package domain

// FilterOp is the comparison a filter clause applies.
type FilterOp string

const (
	OpExact            FilterOp = "exact"
	OpDiffers          FilterOp = "differs"
	OpContains         FilterOp = "contains"
	OpIn               FilterOp = "in"
	OpLess             FilterOp = "less"
	OpGreater          FilterOp = "greater"
	OpStrictlyLess     FilterOp = "strictly_less"
	OpStrictlyGreater  FilterOp = "strictly_greater"
)

// Filter is one `<column>__<suffix>=<value>` clause, parsed and
// type-checked against the column's semantic type.
type Filter struct {
	Column string
	Op     FilterOp
	// Value holds the parsed scalar for single-value ops. Values holds the
	// parsed elements for OpIn. Exactly one of the two is populated.
	Value  any
	Values []any
}

// SortDirection is the direction of one sort clause.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sort is one `<column>__sort=asc|desc` clause.
type Sort struct {
	Column    string
	Direction SortDirection
}

// AggFunc is an aggregate function applied to a column.
type AggFunc string

const (
	AggCount AggFunc = "count"
	AggSum   AggFunc = "sum"
	AggAvg   AggFunc = "avg"
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
)

// Aggregate is one `<column>__<fn>` clause. ResultColumn is the
// `<column>__<fn>` key the compiler emits as an aliased aggregate expression.
type Aggregate struct {
	Column       string
	Fn           AggFunc
	ResultColumn string
}

// Aggregation is a plan's grouping + aggregate-function set. A plan either
// has no Aggregation, or has a non-empty GroupBy or at least one Aggregate.
type Aggregation struct {
	GroupBy    []string
	Aggregates []Aggregate
}

// HasGroupBy reports whether this aggregation groups (as opposed to being
// a single-row aggregate over the whole filtered set).
func (a *Aggregation) HasGroupBy() bool {
	return a != nil && len(a.GroupBy) > 0
}

// QueryPlan is the normalized, validated internal representation of one
// client query. It is owned and immutable once built by the parser.
type QueryPlan struct {
	ResourceID string
	Filters    []Filter
	Sorts      []Sort
	Projection []string // nil means "no explicit projection" (all columns)
	Aggregation *Aggregation
	Page       int
	PageSize   int
}

// IsAggregated reports whether this plan carries an aggregation clause.
func (p QueryPlan) IsAggregated() bool {
	return p.Aggregation != nil
}

// EffectiveProjection returns the columns a response row will carry: for
// an aggregated plan, the union of group-by columns and aggregate result
// columns (in that order); otherwise the explicit projection, or nil for
// "all columns".
func (p QueryPlan) EffectiveProjection() []string {
	if !p.IsAggregated() {
		return p.Projection
	}
	cols := make([]string, 0, len(p.Aggregation.GroupBy)+len(p.Aggregation.Aggregates))
	cols = append(cols, p.Aggregation.GroupBy...)
	for _, agg := range p.Aggregation.Aggregates {
		cols = append(cols, agg.ResultColumn)
	}
	return cols
}
