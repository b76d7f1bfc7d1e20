// Package queryplan turns a flat multimap of query-string parameters into
// a normalized, validated domain.QueryPlan.
package queryplan

import "gateway/internal/domain"

// operatorKind tags what shape of clause a suffix produces.
type operatorKind int

const (
	kindSort operatorKind = iota
	kindFilter
	kindGroupBy
	kindAggregate
)

// operator is one entry of the static suffix table (spec.md §4.3): a
// tagged struct, not a runtime-reflected dispatch.
type operator struct {
	kind        operatorKind
	filterOp    domain.FilterOp
	aggFunc     domain.AggFunc
	allowedType func(domain.SemanticType) bool
	// multiValue marks suffixes whose value is a comma-separated list
	// (currently only "in").
	multiValue bool
}

func anyType(domain.SemanticType) bool { return true }

func numericType(t domain.SemanticType) bool {
	return t == domain.TypeInt || t == domain.TypeFloat
}

func orderedType(t domain.SemanticType) bool {
	switch t {
	case domain.TypeInt, domain.TypeFloat, domain.TypeDate, domain.TypeDatetime:
		return true
	default:
		return false
	}
}

func stringType(t domain.SemanticType) bool { return t == domain.TypeString }

// operatorTable maps a `__<suffix>` token to its operator definition.
// Only keys without a `__` separator are the reserved extension surface
// spec.md §4.3 calls for and are silently ignored; a key that does have
// the separator but names a suffix absent from this table is a
// malformed clause and is rejected as invalid_parameter.
var operatorTable = map[string]operator{
	"sort":     {kind: kindSort, allowedType: anyType},
	"exact":    {kind: kindFilter, filterOp: domain.OpExact, allowedType: anyType},
	"differs":  {kind: kindFilter, filterOp: domain.OpDiffers, allowedType: anyType},
	"contains": {kind: kindFilter, filterOp: domain.OpContains, allowedType: stringType},
	"in":       {kind: kindFilter, filterOp: domain.OpIn, allowedType: anyType, multiValue: true},
	"less":             {kind: kindFilter, filterOp: domain.OpLess, allowedType: orderedType},
	"greater":          {kind: kindFilter, filterOp: domain.OpGreater, allowedType: orderedType},
	"strictly_less":    {kind: kindFilter, filterOp: domain.OpStrictlyLess, allowedType: orderedType},
	"strictly_greater": {kind: kindFilter, filterOp: domain.OpStrictlyGreater, allowedType: orderedType},
	"groupby": {kind: kindGroupBy, allowedType: anyType},
	"count":   {kind: kindAggregate, aggFunc: domain.AggCount, allowedType: anyType},
	"sum":     {kind: kindAggregate, aggFunc: domain.AggSum, allowedType: numericType},
	"avg":     {kind: kindAggregate, aggFunc: domain.AggAvg, allowedType: numericType},
	"min":     {kind: kindAggregate, aggFunc: domain.AggMin, allowedType: anyType},
	"max":     {kind: kindAggregate, aggFunc: domain.AggMax, allowedType: anyType},
}

// orderedSuffixes fixes the iteration order of operatorTable for anything
// that needs to enumerate it deterministically (e.g. OpenAPI generation).
var orderedSuffixes = []string{
	"sort", "exact", "differs", "contains", "in",
	"less", "greater", "strictly_less", "strictly_greater",
	"groupby", "count", "sum", "avg", "min", "max",
}

// Suffix describes one operator suffix legal for a given semantic type,
// for consumers outside this package that need to enumerate the table
// (the OpenAPI generator, per spec.md §4.7).
type Suffix struct {
	Name       string
	TakesValue bool // false for groupby/aggregate, which are bare flags
	MultiValue bool // true only for "in"
	IsSort     bool
}

// SuffixesForType returns, in table order, every operator suffix legal
// against semType.
func SuffixesForType(semType domain.SemanticType) []Suffix {
	var out []Suffix
	for _, name := range orderedSuffixes {
		op := operatorTable[name]
		if !op.allowedType(semType) {
			continue
		}
		out = append(out, Suffix{
			Name:       name,
			TakesValue: op.kind == kindFilter || op.kind == kindSort,
			MultiValue: op.multiValue,
			IsSort:     op.kind == kindSort,
		})
	}
	return out
}
