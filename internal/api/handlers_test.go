package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/domain"
	"gateway/internal/executor"
	"gateway/internal/linkbuilder"
	"gateway/internal/queryplan"
)

type fakeDirectory struct {
	resolveFn func(ctx context.Context, resourceID string) (domain.ResourceRef, error)
}

func (f *fakeDirectory) Resolve(ctx context.Context, resourceID string) (domain.ResourceRef, error) {
	return f.resolveFn(ctx, resourceID)
}

type fakeProfiles struct {
	profileFn func(ctx context.Context, datasetID string) (domain.Profile, error)
}

func (f *fakeProfiles) Profile(ctx context.Context, datasetID string) (domain.Profile, error) {
	return f.profileFn(ctx, datasetID)
}

type fakeDownstream struct {
	fetchFn func(ctx context.Context, req domain.DownstreamRequest) ([]map[string]any, *int64, error)
	pingFn  func(ctx context.Context) error
}

func (f *fakeDownstream) Fetch(ctx context.Context, req domain.DownstreamRequest) ([]map[string]any, *int64, error) {
	return f.fetchFn(ctx, req)
}

func (f *fakeDownstream) Ping(ctx context.Context) error {
	if f.pingFn == nil {
		return nil
	}
	return f.pingFn(ctx)
}

type fakeExceptions struct {
	listFn func(ctx context.Context) ([]string, error)
}

func (f *fakeExceptions) ListAggregationExceptions(ctx context.Context) ([]string, error) {
	return f.listFn(ctx)
}

func testProfile() domain.Profile {
	return domain.Profile{
		ResourceID: "dataset-1",
		Columns: []domain.Column{
			{Name: "id", SemanticType: domain.TypeString},
			{Name: "score", SemanticType: domain.TypeFloat},
			{Name: "decompte", SemanticType: domain.TypeInt},
		},
	}
}

func newTestServer(t *testing.T, dir domain.ResourceDirectory, profiles domain.ProfileStore, ds domain.Downstream, exc aggregationExceptionsLister) *httptest.Server {
	t.Helper()
	exec := executor.New(ds, nil)
	links := linkbuilder.New("https://api.example.com")
	cfg := queryplan.PageConfig{Default: 20, Max: 50}
	h := New(dir, exc, profiles, ds, exec, links, cfg, nil)
	srv := httptest.NewServer(Router(h, true, []string{"*"}, RateLimit{RequestsPerSecond: 1000, Burst: 1000}))
	t.Cleanup(srv.Close)
	return srv
}

func okDirectory() *fakeDirectory {
	return &fakeDirectory{resolveFn: func(ctx context.Context, resourceID string) (domain.ResourceRef, error) {
		return domain.ResourceRef{
			ResourceID:         resourceID,
			TableName:          "widgets",
			Status:             domain.ResourceStatusOK,
			DatasetID:          "dataset-1",
			AggregationAllowed: false,
		}, nil
	}}
}

func okProfiles() *fakeProfiles {
	return &fakeProfiles{profileFn: func(ctx context.Context, datasetID string) (domain.Profile, error) {
		return testProfile(), nil
	}}
}

func TestHandler_Resource_OK(t *testing.T) {
	ds := &fakeDownstream{}
	srv := newTestServer(t, okDirectory(), okProfiles(), ds, &fakeExceptions{})

	resp, err := http.Get(srv.URL + "/api/resources/r1/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "r1", body["resource_id"])
}

func TestHandler_Resource_NotFound(t *testing.T) {
	dir := &fakeDirectory{resolveFn: func(ctx context.Context, resourceID string) (domain.ResourceRef, error) {
		return domain.ResourceRef{}, domain.ErrResourceNotFound(resourceID)
	}}
	srv := newTestServer(t, dir, okProfiles(), &fakeDownstream{}, &fakeExceptions{})

	resp, err := http.Get(srv.URL + "/api/resources/missing/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_Resource_DeletedReturnsGoneWithDatasetID(t *testing.T) {
	dir := &fakeDirectory{resolveFn: func(ctx context.Context, resourceID string) (domain.ResourceRef, error) {
		return domain.ResourceRef{}, domain.ErrResourceGone(resourceID, "dataset-dead")
	}}
	srv := newTestServer(t, dir, okProfiles(), &fakeDownstream{}, &fakeExceptions{})

	resp, err := http.Get(srv.URL + "/api/resources/deleted/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "dataset-dead", body.Errors[0].DatasetID)
}

func TestHandler_Data_ReturnsPageEnvelope(t *testing.T) {
	ds := &fakeDownstream{fetchFn: func(ctx context.Context, req domain.DownstreamRequest) ([]map[string]any, *int64, error) {
		total := int64(2)
		return []map[string]any{{"id": "a", "score": 0.95}}, &total, nil
	}}
	srv := newTestServer(t, okDirectory(), okProfiles(), ds, &fakeExceptions{})

	resp, err := http.Get(srv.URL + "/api/resources/r1/data/?score__greater=0.9")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	data, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, data, 1)
	links := body["links"].(map[string]any)
	assert.Contains(t, links, "profile")
	assert.Contains(t, links, "swagger")
}

func TestHandler_Data_AggregationNotAllowedReturns403(t *testing.T) {
	ds := &fakeDownstream{fetchFn: func(ctx context.Context, req domain.DownstreamRequest) ([]map[string]any, *int64, error) {
		t.Fatalf("downstream should not be called when aggregation is rejected")
		return nil, nil, nil
	}}
	srv := newTestServer(t, okDirectory(), okProfiles(), ds, &fakeExceptions{})

	resp, err := http.Get(srv.URL + "/api/resources/r1/data/?decompte__groupby&score__avg")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandler_Data_InvalidParameterReturns400(t *testing.T) {
	srv := newTestServer(t, okDirectory(), okProfiles(), &fakeDownstream{}, &fakeExceptions{})

	resp, err := http.Get(srv.URL + "/api/resources/r1/data/?score__contains=x")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_DataJSON_ReturnsFlatArrayWithNoEnvelope(t *testing.T) {
	ds := &fakeDownstream{fetchFn: func(ctx context.Context, req domain.DownstreamRequest) ([]map[string]any, *int64, error) {
		return []map[string]any{{"id": "a"}, {"id": "b"}}, nil, nil
	}}
	srv := newTestServer(t, okDirectory(), okProfiles(), ds, &fakeExceptions{})

	resp, err := http.Get(srv.URL + "/api/resources/r1/data/json/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	assert.Len(t, rows, 2)
}

func TestHandler_DataCSV_StreamsRowsAcrossPages(t *testing.T) {
	calls := 0
	ds := &fakeDownstream{fetchFn: func(ctx context.Context, req domain.DownstreamRequest) ([]map[string]any, *int64, error) {
		calls++
		if calls == 1 {
			return []map[string]any{{"id": "a"}, {"id": "b"}}, nil, nil
		}
		return []map[string]any{}, nil, nil
	}}
	srv := newTestServer(t, okDirectory(), okProfiles(), ds, &fakeExceptions{})

	resp, err := http.Get(srv.URL + "/api/resources/r1/data/csv/?page_size=2&columns=id")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "id")
	assert.Contains(t, string(body), "a")
	assert.Contains(t, string(body), "b")
}

func TestHandler_Swagger_ReturnsOpenAPIDocument(t *testing.T) {
	srv := newTestServer(t, okDirectory(), okProfiles(), &fakeDownstream{}, &fakeExceptions{})

	resp, err := http.Get(srv.URL + "/api/resources/r1/swagger/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "3.0.3", body["openapi"])
}

func TestHandler_AggregationExceptions_ListsIDs(t *testing.T) {
	exc := &fakeExceptions{listFn: func(ctx context.Context) ([]string, error) {
		return []string{"r1", "r2"}, nil
	}}
	srv := newTestServer(t, okDirectory(), okProfiles(), &fakeDownstream{}, exc)

	resp, err := http.Get(srv.URL + "/api/aggregation-exceptions/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	ids := body["resource_ids"].([]any)
	assert.Len(t, ids, 2)
}

func TestHandler_Health_Healthy(t *testing.T) {
	srv := newTestServer(t, okDirectory(), okProfiles(), &fakeDownstream{}, &fakeExceptions{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_Health_UnhealthyWhenDownstreamUnreachable(t *testing.T) {
	ds := &fakeDownstream{pingFn: func(ctx context.Context) error {
		return assertErr{}
	}}
	srv := newTestServer(t, okDirectory(), okProfiles(), ds, &fakeExceptions{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

type assertErr struct{}

func (assertErr) Error() string { return "downstream unreachable" }
