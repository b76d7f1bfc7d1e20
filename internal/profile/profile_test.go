package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/domain"
)

type fakeDownstream struct {
	fetchFn func(ctx context.Context, req domain.DownstreamRequest) ([]map[string]any, *int64, error)
}

func (f *fakeDownstream) Fetch(ctx context.Context, req domain.DownstreamRequest) ([]map[string]any, *int64, error) {
	return f.fetchFn(ctx, req)
}

func (f *fakeDownstream) Ping(ctx context.Context) error { return nil }

func TestStore_Profile_OK(t *testing.T) {
	ds := &fakeDownstream{fetchFn: func(ctx context.Context, req domain.DownstreamRequest) ([]map[string]any, *int64, error) {
		assert.Equal(t, "profiles", req.Table)
		assert.Equal(t, "eq.ds-1", req.Query.Get("dataset_id"))
		return []map[string]any{
			{"column_name": "id", "semantic_type": "string"},
			{"column_name": "score", "semantic_type": "float"},
		}, nil, nil
	}}
	s := New(ds)

	p, err := s.Profile(context.Background(), "ds-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "score"}, p.ColumnNames())
	st, ok := p.SemanticTypeOf("score")
	require.True(t, ok)
	assert.Equal(t, domain.TypeFloat, st)
}

func TestStore_Profile_NotFound(t *testing.T) {
	ds := &fakeDownstream{fetchFn: func(ctx context.Context, req domain.DownstreamRequest) ([]map[string]any, *int64, error) {
		return nil, nil, nil
	}}
	s := New(ds)

	_, err := s.Profile(context.Background(), "ds-missing")
	require.Error(t, err)
	var notFound *domain.ProfileNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestStore_Profile_SkipsMalformedRows(t *testing.T) {
	ds := &fakeDownstream{fetchFn: func(ctx context.Context, req domain.DownstreamRequest) ([]map[string]any, *int64, error) {
		return []map[string]any{
			{"column_name": "", "semantic_type": "string"},
			{"column_name": "id", "semantic_type": "string"},
		}, nil, nil
	}}
	s := New(ds)

	p, err := s.Profile(context.Background(), "ds-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, p.ColumnNames())
}
