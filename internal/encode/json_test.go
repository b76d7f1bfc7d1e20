package encode

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/domain"
)

func TestJSON_WritesEnvelopeWithLinksAndMeta(t *testing.T) {
	total := int64(42)
	next := "https://api.example.com/api/resources/r1/data/?page=2"
	page := domain.Page{
		Rows:  []map[string]any{{"id": "1"}, {"id": "2"}},
		Total: &total,
	}
	links := domain.ResourceLinks{
		Profile: "https://api.example.com/api/resources/r1/profile/",
		Swagger: "https://api.example.com/api/resources/r1/swagger/",
		Next:    &next,
	}

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, page, links, 1, 2))

	var decoded JSONPage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded.Data, 2)
	assert.Equal(t, links.Profile, decoded.Links.Profile)
	assert.Equal(t, links.Swagger, decoded.Links.Swagger)
	require.NotNil(t, decoded.Links.Next)
	assert.Equal(t, next, *decoded.Links.Next)
	assert.Nil(t, decoded.Links.Prev)
	assert.Equal(t, 1, decoded.Meta.Page)
	assert.Equal(t, 2, decoded.Meta.PageSize)
	require.NotNil(t, decoded.Meta.Total)
	assert.Equal(t, int64(42), *decoded.Meta.Total)
}

func TestJSON_NilTotalEncodesAsNull(t *testing.T) {
	page := domain.Page{Rows: []map[string]any{}}
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, page, domain.ResourceLinks{}, 1, 20))

	var decoded JSONPage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Nil(t, decoded.Meta.Total)
}

func TestFlatJSON_EncodesRowsAsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FlatJSON(&buf, []map[string]any{{"a": 1}}))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, 1)
}

func TestFlatJSON_NilRowsBecomesEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FlatJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}
