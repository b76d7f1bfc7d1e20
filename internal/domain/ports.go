package domain

import (
	"context"
	"net/url"
)

// ResourceDirectory resolves opaque resource_ids to concrete table
// references. Implemented by internal/directory.Directory.
type ResourceDirectory interface {
	Resolve(ctx context.Context, resourceID string) (ResourceRef, error)
}

// ProfileStore fetches the column-inference profile for a dataset.
// Implemented by internal/profile.Store.
type ProfileStore interface {
	Profile(ctx context.Context, datasetID string) (Profile, error)
}

// DownstreamRequest is a compiled, dialect-specific request ready to send
// to the downstream table service: a table name, a set of PostgREST-style
// query parameters, and an optional Range header value.
type DownstreamRequest struct {
	Table       string
	Query       url.Values
	RangeHeader string // e.g. "0-19"; empty means no windowing requested
}

// Downstream issues compiled requests against the downstream table
// service and reports the total row count it advertises via
// Content-Range (nil when absent, unknown, or malformed).
// Implemented by internal/downstream.Client.
type Downstream interface {
	Fetch(ctx context.Context, req DownstreamRequest) (rows []map[string]any, total *int64, err error)
	Ping(ctx context.Context) error
}
