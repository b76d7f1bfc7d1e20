// Package profile fetches the per-resource column-inference document used
// for type-aware validation and Swagger generation.
package profile

import (
	"context"
	"net/url"

	"gateway/internal/domain"
)

// Store implements domain.ProfileStore against the downstream service's
// profiles table, keyed by dataset_id rather than resource_id (see
// SPEC_FULL.md §4.2).
type Store struct {
	downstream domain.Downstream
}

// New builds a Store.
func New(downstream domain.Downstream) *Store {
	return &Store{downstream: downstream}
}

var _ domain.ProfileStore = (*Store)(nil)

// Profile implements spec.md §4.2: returns the ordered columns and
// provenance metadata for a dataset, or ProfileNotFoundError when the
// dataset has no stored profile rows.
func (s *Store) Profile(ctx context.Context, datasetID string) (domain.Profile, error) {
	rows, _, err := s.downstream.Fetch(ctx, domain.DownstreamRequest{
		Table: "profiles",
		Query: url.Values{
			"dataset_id": {"eq." + datasetID},
			"order":      {"position.asc"},
		},
	})
	if err != nil {
		return domain.Profile{}, err
	}
	if len(rows) == 0 {
		return domain.Profile{}, domain.ErrProfileNotFound(datasetID)
	}

	columns := make([]domain.Column, 0, len(rows))
	metadata := map[string]any{}
	for _, row := range rows {
		name, _ := row["column_name"].(string)
		semType, _ := row["semantic_type"].(string)
		if name == "" || semType == "" {
			continue
		}
		columns = append(columns, domain.Column{
			Name:         name,
			SemanticType: domain.SemanticType(semType),
		})
		if meta, ok := row["metadata"].(map[string]any); ok {
			metadata[name] = meta
		}
	}
	if len(columns) == 0 {
		return domain.Profile{}, domain.ErrProfileNotFound(datasetID)
	}

	return domain.Profile{
		ResourceID: datasetID,
		Columns:    columns,
		Metadata:   metadata,
	}, nil
}
