package domain

import "time"

// ResourceStatus is the lifecycle state of a directory entry.
type ResourceStatus string

const (
	ResourceStatusOK      ResourceStatus = "ok"
	ResourceStatusDeleted ResourceStatus = "deleted"
)

// ResourceRef is the resolved form of an opaque resource_id: which table
// backs it, whether it is still served, and whether aggregation queries
// are permitted against it.
type ResourceRef struct {
	ResourceID          string
	TableName           string
	Status              ResourceStatus
	DatasetID           string
	AggregationAllowed  bool
	CreatedAt           time.Time
	URL                 string
	Metadata            map[string]any
}

// SemanticType governs which operator suffixes are legal on a column.
type SemanticType string

const (
	TypeString   SemanticType = "string"
	TypeInt      SemanticType = "int"
	TypeFloat    SemanticType = "float"
	TypeBool     SemanticType = "bool"
	TypeDate     SemanticType = "date"
	TypeDatetime SemanticType = "datetime"
	TypeJSON     SemanticType = "json"
)

// Column is one entry of a resource's inference profile.
type Column struct {
	Name         string
	SemanticType SemanticType
}

// Profile is the ordered header + per-column semantic type for a resource,
// plus whatever provenance metadata the ingestion pipeline attached.
type Profile struct {
	ResourceID string
	Columns    []Column
	Metadata   map[string]any
}

// ColumnNames returns the profile's column names in declared order.
func (p Profile) ColumnNames() []string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.Name
	}
	return names
}

// SemanticTypeOf returns the semantic type of a named column and whether
// that column exists in the profile.
func (p Profile) SemanticTypeOf(name string) (SemanticType, bool) {
	for _, c := range p.Columns {
		if c.Name == name {
			return c.SemanticType, true
		}
	}
	return "", false
}

// HasColumn reports whether name is a profile column.
func (p Profile) HasColumn(name string) bool {
	_, ok := p.SemanticTypeOf(name)
	return ok
}

// ResourceLinks are the HATEOAS-style absolute URLs every JSON page and
// resource document carries.
type ResourceLinks struct {
	Self    string
	Profile string
	Swagger string
	Next    *string
	Prev    *string
}

// Page is one fetched window of rows plus its total, as returned by the
// executor to the encoders.
type Page struct {
	Rows  []map[string]any
	Total *int64
}
