// Package encode implements the response shaping layer: a JSON page
// envelope and a streaming CSV encoder, per spec.md §4.6.
package encode

import (
	"encoding/json"
	"io"

	"gateway/internal/domain"
)

// JSONPage is the wire shape of a paginated data response.
type JSONPage struct {
	Data  []map[string]any `json:"data"`
	Links JSONLinks        `json:"links"`
	Meta  JSONMeta         `json:"meta"`
}

// JSONLinks mirrors domain.ResourceLinks for the wire format.
type JSONLinks struct {
	Profile string  `json:"profile"`
	Swagger string  `json:"swagger"`
	Next    *string `json:"next"`
	Prev    *string `json:"prev"`
}

// JSONMeta carries the pagination metadata every page response reports.
type JSONMeta struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Total    *int64 `json:"total"`
}

// JSON writes page to w as the spec.md §4.6 envelope.
func JSON(w io.Writer, page domain.Page, links domain.ResourceLinks, queryPage, pageSize int) error {
	body := JSONPage{
		Data: page.Rows,
		Links: JSONLinks{
			Profile: links.Profile,
			Swagger: links.Swagger,
			Next:    links.Next,
			Prev:    links.Prev,
		},
		Meta: JSONMeta{Page: queryPage, PageSize: pageSize, Total: page.Total},
	}
	return json.NewEncoder(w).Encode(body)
}

// FlatJSON writes rows directly as a JSON array, with no pagination
// envelope, for the /data/json/ "small consumers" endpoint.
func FlatJSON(w io.Writer, rows []map[string]any) error {
	if rows == nil {
		rows = []map[string]any{}
	}
	return json.NewEncoder(w).Encode(rows)
}
