// Package directory resolves opaque resource ids to concrete table
// references by querying the downstream service's directory tables.
package directory

import (
	"context"
	"net/url"
	"time"

	"gateway/internal/domain"
)

// Directory implements domain.ResourceDirectory against the downstream
// service's resources/tables_index/exceptions tables.
type Directory struct {
	downstream       domain.Downstream
	allowAggregation map[string]bool
}

// New builds a Directory. allowAggregation overlays the per-resource
// exceptions lookup with the config-level ALLOW_AGGREGATION list.
func New(downstream domain.Downstream, allowAggregation map[string]bool) *Directory {
	return &Directory{downstream: downstream, allowAggregation: allowAggregation}
}

var _ domain.ResourceDirectory = (*Directory)(nil)

// Resolve implements spec.md §4.1: two point-lookups against resources and
// tables_index, plus a third against exceptions to derive
// aggregation_allowed. A deleted resources row preempts the tables_index
// lookup and is surfaced as ResourceGoneError.
func (d *Directory) Resolve(ctx context.Context, resourceID string) (domain.ResourceRef, error) {
	resourceRows, _, err := d.downstream.Fetch(ctx, domain.DownstreamRequest{
		Table: "resources",
		Query: url.Values{
			"resource_id": {"eq." + resourceID},
			"limit":       {"1"},
		},
	})
	if err != nil {
		return domain.ResourceRef{}, err
	}
	if len(resourceRows) == 0 {
		return domain.ResourceRef{}, domain.ErrResourceNotFound(resourceID)
	}
	row := resourceRows[0]

	datasetID, _ := row["dataset_id"].(string)
	status, _ := row["status"].(string)
	if status == string(domain.ResourceStatusDeleted) {
		return domain.ResourceRef{}, domain.ErrResourceGone(resourceID, datasetID)
	}

	indexRows, _, err := d.downstream.Fetch(ctx, domain.DownstreamRequest{
		Table: "tables_index",
		Query: url.Values{
			"resource_id": {"eq." + resourceID},
			"limit":       {"1"},
		},
	})
	if err != nil {
		return domain.ResourceRef{}, err
	}
	if len(indexRows) == 0 {
		return domain.ResourceRef{}, domain.ErrResourceNotFound(resourceID)
	}
	tableName, _ := indexRows[0]["table_name"].(string)
	if tableName == "" {
		return domain.ResourceRef{}, domain.ErrResourceNotFound(resourceID)
	}

	aggregationAllowed := d.allowAggregation[resourceID]
	if !aggregationAllowed {
		exceptionRows, err := d.lookupException(ctx, resourceID)
		if err != nil {
			return domain.ResourceRef{}, err
		}
		aggregationAllowed = len(exceptionRows) > 0
	}

	return domain.ResourceRef{
		ResourceID:         resourceID,
		TableName:          tableName,
		Status:             domain.ResourceStatusOK,
		DatasetID:          datasetID,
		AggregationAllowed: aggregationAllowed,
		CreatedAt:          parseCreatedAt(row["created_at"]),
		URL:                stringField(row["url"]),
		Metadata:           row,
	}, nil
}

func (d *Directory) lookupException(ctx context.Context, resourceID string) ([]map[string]any, error) {
	rows, _, err := d.downstream.Fetch(ctx, domain.DownstreamRequest{
		Table: "exceptions",
		Query: url.Values{
			"resource_id": {"eq." + resourceID},
			"limit":       {"1"},
		},
	})
	if err != nil {
		// The exceptions lookup is an overlay, not a gate: a downstream
		// hiccup here should not block resolution of an otherwise-known
		// resource. Treat as "no exception granted" rather than propagate.
		return nil, nil
	}
	return rows, nil
}

// ListAggregationExceptions returns every resource_id currently granted
// aggregation access via the exceptions directory table, for the
// /api/aggregation-exceptions/ listing endpoint.
func (d *Directory) ListAggregationExceptions(ctx context.Context) ([]string, error) {
	rows, _, err := d.downstream.Fetch(ctx, domain.DownstreamRequest{
		Table: "exceptions",
		Query: url.Values{"select": {"resource_id"}},
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id := stringField(row["resource_id"]); id != "" {
			ids = append(ids, id)
		}
	}
	for id := range d.allowAggregation {
		if !contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func contains(ids []string, target string) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

func stringField(v any) string {
	s, _ := v.(string)
	return s
}

func parseCreatedAt(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
