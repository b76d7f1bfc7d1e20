package compiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/domain"
)

func testRef() domain.ResourceRef {
	return domain.ResourceRef{ResourceID: "r1", TableName: "widgets_42"}
}

func TestCompile_ExactFilter(t *testing.T) {
	plan := domain.QueryPlan{
		Filters:  []domain.Filter{{Column: "decompte", Op: domain.OpExact, Value: int64(13)}},
		Page:     1,
		PageSize: 20,
	}
	req, err := Compile(plan, testRef())
	require.NoError(t, err)
	assert.Equal(t, "widgets_42", req.Table)
	assert.Equal(t, "eq.13", req.Query.Get("decompte"))
	assert.Equal(t, "0-19", req.RangeHeader)
}

func TestCompile_GreaterOrEqualFilter(t *testing.T) {
	plan := domain.QueryPlan{
		Filters:  []domain.Filter{{Column: "score", Op: domain.OpGreater, Value: 0.9}},
		Page:     1,
		PageSize: 20,
	}
	req, err := Compile(plan, testRef())
	require.NoError(t, err)
	assert.Equal(t, "gte.0.9", req.Query.Get("score"))
}

func TestCompile_ContainsUsesCaseInsensitiveLike(t *testing.T) {
	plan := domain.QueryPlan{
		Filters:  []domain.Filter{{Column: "liste", Op: domain.OpContains, Value: "abc"}},
		Page:     1,
		PageSize: 20,
	}
	req, err := Compile(plan, testRef())
	require.NoError(t, err)
	assert.Equal(t, "ilike.*abc*", req.Query.Get("liste"))
}

func TestCompile_InFilterEncodesCommaList(t *testing.T) {
	plan := domain.QueryPlan{
		Filters:  []domain.Filter{{Column: "decompte", Op: domain.OpIn, Values: []any{int64(1), int64(2), int64(3)}}},
		Page:     1,
		PageSize: 20,
	}
	req, err := Compile(plan, testRef())
	require.NoError(t, err)
	assert.Equal(t, "in.(1,2,3)", req.Query.Get("decompte"))
}

func TestCompile_DateFilterFormatsDateOnly(t *testing.T) {
	d := time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC)
	plan := domain.QueryPlan{
		Filters:  []domain.Filter{{Column: "birth", Op: domain.OpLess, Value: d}},
		Page:     1,
		PageSize: 20,
	}
	req, err := Compile(plan, testRef())
	require.NoError(t, err)
	assert.Equal(t, "lte.1996-01-01", req.Query.Get("birth"))
}

func TestCompile_SortEmitsOrderTerm(t *testing.T) {
	plan := domain.QueryPlan{
		Sorts:    []domain.Sort{{Column: "score", Direction: domain.SortDesc}},
		Page:     1,
		PageSize: 20,
	}
	req, err := Compile(plan, testRef())
	require.NoError(t, err)
	assert.Equal(t, "score.desc", req.Query.Get("order"))
}

func TestCompile_MultiSortPreservesOrder(t *testing.T) {
	plan := domain.QueryPlan{
		Sorts: []domain.Sort{
			{Column: "score", Direction: domain.SortDesc},
			{Column: "id", Direction: domain.SortAsc},
		},
		Page:     1,
		PageSize: 20,
	}
	req, err := Compile(plan, testRef())
	require.NoError(t, err)
	assert.Equal(t, "score.desc,id.asc", req.Query.Get("order"))
}

func TestCompile_NoSelectWhenNoProjection(t *testing.T) {
	plan := domain.QueryPlan{Page: 1, PageSize: 20}
	req, err := Compile(plan, testRef())
	require.NoError(t, err)
	assert.Empty(t, req.Query.Get("select"))
}

func TestCompile_ExplicitProjection(t *testing.T) {
	plan := domain.QueryPlan{Projection: []string{"id", "score"}, Page: 1, PageSize: 20}
	req, err := Compile(plan, testRef())
	require.NoError(t, err)
	assert.Equal(t, "id,score", req.Query.Get("select"))
}

func TestCompile_AggregationSelectExpression(t *testing.T) {
	plan := domain.QueryPlan{
		Aggregation: &domain.Aggregation{
			GroupBy: []string{"decompte"},
			Aggregates: []domain.Aggregate{
				{Column: "score", Fn: domain.AggAvg, ResultColumn: "score__avg"},
			},
		},
		Page:     1,
		PageSize: 20,
	}
	req, err := Compile(plan, testRef())
	require.NoError(t, err)
	assert.Equal(t, "decompte,score__avg:score.avg()", req.Query.Get("select"))
}

func TestCompile_QuotesExoticColumnNameInSelect(t *testing.T) {
	plan := domain.QueryPlan{Projection: []string{"my col"}, Page: 1, PageSize: 20}
	req, err := Compile(plan, testRef())
	require.NoError(t, err)
	assert.Equal(t, `"my col"`, req.Query.Get("select"))
}

func TestCompile_PageWindowTranslatesToRangeHeader(t *testing.T) {
	plan := domain.QueryPlan{Page: 2, PageSize: 30}
	req, err := Compile(plan, testRef())
	require.NoError(t, err)
	assert.Equal(t, "30-59", req.RangeHeader)
}
