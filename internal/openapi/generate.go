// Package openapi builds a per-resource OpenAPI document describing a
// resource's /data/, /profile/, and /data/csv/ surface, the swagger.json
// every resource serves per spec.md §4.7.
package openapi

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"gateway/internal/domain"
	"gateway/internal/queryplan"
)

// Generate builds the OpenAPI 3 document for resourceID, describing its
// inferred columns and the query suffixes legal against each.
func Generate(resourceID string, profile domain.Profile, links domain.ResourceLinks) *openapi3.T {
	schema := columnSchema(profile)

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   fmt.Sprintf("Resource %s", resourceID),
			Version: "1.0.0",
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"Row":      openapi3.NewSchemaRef("", schema),
				"Page":     openapi3.NewSchemaRef("", pageSchema()),
				"AggError": openapi3.NewSchemaRef("", errorSchema()),
			},
		},
	}

	doc.Paths.Set(fmt.Sprintf("/api/resources/%s/data/", resourceID), dataPathItem(profile))
	doc.Paths.Set(fmt.Sprintf("/api/resources/%s/data/csv/", resourceID), csvPathItem())
	doc.Paths.Set(fmt.Sprintf("/api/resources/%s/data/json/", resourceID), jsonPathItem())
	doc.Paths.Set(fmt.Sprintf("/api/resources/%s/profile/", resourceID), profilePathItem())

	return doc
}

func dataPathItem(profile domain.Profile) *openapi3.PathItem {
	op := openapi3.NewOperation()
	op.OperationID = "getResourceData"
	op.Summary = "Fetch a page of translated, filtered, sorted, or aggregated rows"
	op.Parameters = append(op.Parameters, paginationParams()...)
	op.Parameters = append(op.Parameters, columnParams(profile)...)
	op.Responses = openapi3.NewResponses()
	op.Responses.Set("200", jsonRefResponse("A page of rows", "#/components/schemas/Page"))
	op.Responses.Set("400", jsonRefResponse("Invalid filter, sort, or column name", "#/components/schemas/AggError"))
	op.Responses.Set("403", jsonRefResponse("Aggregation not permitted for this resource", "#/components/schemas/AggError"))

	item := &openapi3.PathItem{}
	item.Get = op
	return item
}

func csvPathItem() *openapi3.PathItem {
	op := openapi3.NewOperation()
	op.OperationID = "getResourceDataCSV"
	op.Summary = "Stream every matching row as CSV, paging internally"
	op.Responses = openapi3.NewResponses()
	resp := openapi3.NewResponse().WithDescription("CSV stream")
	resp.Content = openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/csv"})
	op.Responses.Set("200", &openapi3.ResponseRef{Value: resp})

	item := &openapi3.PathItem{}
	item.Get = op
	return item
}

func jsonPathItem() *openapi3.PathItem {
	op := openapi3.NewOperation()
	op.OperationID = "getResourceDataJSON"
	op.Summary = "Fetch every matching row as a flat JSON array, for small result sets"
	op.Responses = openapi3.NewResponses()
	schema := openapi3.NewArraySchema()
	schema.Items = openapi3.NewSchemaRef("#/components/schemas/Row", nil)
	resp := openapi3.NewResponse().WithDescription("Flat row array")
	resp.Content = openapi3.NewContentWithSchema(schema, []string{"application/json"})
	op.Responses.Set("200", &openapi3.ResponseRef{Value: resp})

	item := &openapi3.PathItem{}
	item.Get = op
	return item
}

func profilePathItem() *openapi3.PathItem {
	op := openapi3.NewOperation()
	op.OperationID = "getResourceProfile"
	op.Summary = "Fetch the inferred column names and semantic types backing this resource"
	op.Responses = openapi3.NewResponses()
	column := openapi3.NewObjectSchema()
	column.Properties = openapi3.Schemas{
		"Name":         openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		"SemanticType": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
	}
	columns := openapi3.NewArraySchema()
	columns.Items = openapi3.NewSchemaRef("", column)
	body := openapi3.NewObjectSchema()
	body.Properties = openapi3.Schemas{
		"resource_id": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		"columns":     openapi3.NewSchemaRef("", columns),
	}
	resp := openapi3.NewResponse().WithDescription("Column profile")
	resp.Content = openapi3.NewContentWithSchema(body, []string{"application/json"})
	op.Responses.Set("200", &openapi3.ResponseRef{Value: resp})
	op.Responses.Set("404", jsonRefResponse("No profile exists for this resource's dataset", "#/components/schemas/AggError"))

	item := &openapi3.PathItem{}
	item.Get = op
	return item
}

func paginationParams() openapi3.Parameters {
	page := openapi3.NewQueryParameter("page").WithSchema(openapi3.NewIntegerSchema())
	page.Description = "1-indexed page number"
	pageSize := openapi3.NewQueryParameter("page_size").WithSchema(openapi3.NewIntegerSchema())
	pageSize.Description = "Rows per page, clamped to the gateway's configured maximum"
	columns := openapi3.NewQueryParameter("columns").WithSchema(openapi3.NewStringSchema())
	columns.Description = "Comma-separated projection of columns to return"
	return openapi3.Parameters{
		{Value: page},
		{Value: pageSize},
		{Value: columns},
	}
}

// columnParams documents one parameter per <column>__<operator>
// combination legal for that column's semantic type, per spec.md §4.7.
func columnParams(profile domain.Profile) openapi3.Parameters {
	var params openapi3.Parameters
	for _, col := range profile.Columns {
		for _, suffix := range queryplan.SuffixesForType(col.SemanticType) {
			name := col.Name + "__" + suffix.Name
			p := openapi3.NewQueryParameter(name).WithSchema(valueSchemaFor(col, suffix))
			p.Description = fmt.Sprintf("%s on %q (%s)", suffix.Name, col.Name, col.SemanticType)
			if !suffix.TakesValue {
				p.AllowEmptyValue = true
			}
			params = append(params, &openapi3.ParameterRef{Value: p})
		}
	}
	return params
}

// valueSchemaFor returns the schema for a <column>__<suffix> parameter's
// value: "asc"/"desc" for sort, a comma-separated list of the column's
// type for "in", the column's own type for every other filter, and an
// empty-valued boolean flag for groupby/aggregate suffixes.
func valueSchemaFor(col domain.Column, suffix queryplan.Suffix) *openapi3.Schema {
	if !suffix.TakesValue {
		return openapi3.NewBoolSchema()
	}
	if suffix.IsSort {
		schema := openapi3.NewStringSchema()
		schema.Enum = []any{"asc", "desc"}
		return schema
	}
	if suffix.MultiValue {
		return openapi3.NewStringSchema() // comma-separated list, e.g. "1,2,3"
	}
	return jsonSchemaFor(col.SemanticType)
}

func columnSchema(profile domain.Profile) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	schema.Properties = make(openapi3.Schemas, len(profile.Columns))
	for _, col := range profile.Columns {
		schema.Properties[col.Name] = openapi3.NewSchemaRef("", jsonSchemaFor(col.SemanticType))
	}
	return schema
}

func jsonSchemaFor(t domain.SemanticType) *openapi3.Schema {
	switch t {
	case domain.TypeInt:
		return openapi3.NewIntegerSchema()
	case domain.TypeFloat:
		return openapi3.NewFloat64Schema()
	case domain.TypeBool:
		return openapi3.NewBoolSchema()
	case domain.TypeDate:
		return openapi3.NewStringSchema().WithFormat("date")
	case domain.TypeDatetime:
		return openapi3.NewDateTimeSchema()
	case domain.TypeJSON:
		return openapi3.NewObjectSchema()
	default:
		return openapi3.NewStringSchema()
	}
}

func pageSchema() *openapi3.Schema {
	data := openapi3.NewArraySchema()
	data.Items = openapi3.NewSchemaRef("#/components/schemas/Row", nil)

	links := openapi3.NewObjectSchema()
	links.Properties = openapi3.Schemas{
		"profile": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		"swagger": openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
		"next":    openapi3.NewSchemaRef("", openapi3.NewStringSchema().WithNullable()),
		"prev":    openapi3.NewSchemaRef("", openapi3.NewStringSchema().WithNullable()),
	}

	meta := openapi3.NewObjectSchema()
	meta.Properties = openapi3.Schemas{
		"page":      openapi3.NewSchemaRef("", openapi3.NewIntegerSchema()),
		"page_size": openapi3.NewSchemaRef("", openapi3.NewIntegerSchema()),
		"total":     openapi3.NewSchemaRef("", openapi3.NewIntegerSchema().WithNullable()),
	}

	page := openapi3.NewObjectSchema()
	page.Properties = openapi3.Schemas{
		"data":  openapi3.NewSchemaRef("", data),
		"links": openapi3.NewSchemaRef("", links),
		"meta":  openapi3.NewSchemaRef("", meta),
	}
	return page
}

func errorSchema() *openapi3.Schema {
	detail := openapi3.NewObjectSchema()
	detail.Properties = openapi3.Schemas{}
	for _, field := range []string{"code", "message", "resource_id", "dataset_id", "column", "operator", "value"} {
		detail.Properties[field] = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	}
	detail.Required = []string{"code", "message"}

	errs := openapi3.NewArraySchema()
	errs.Items = openapi3.NewSchemaRef("", detail)

	schema := openapi3.NewObjectSchema()
	schema.Properties = openapi3.Schemas{
		"errors": openapi3.NewSchemaRef("", errs),
	}
	schema.Required = []string{"errors"}
	return schema
}

func jsonRefResponse(description, schemaRef string) *openapi3.ResponseRef {
	resp := openapi3.NewResponse().WithDescription(description)
	resp.Content = openapi3.NewContentWithSchemaRef(openapi3.NewSchemaRef(schemaRef, nil), []string{"application/json"})
	return &openapi3.ResponseRef{Value: resp}
}
