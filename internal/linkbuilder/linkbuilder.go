// Package linkbuilder constructs the absolute next/prev/profile/swagger
// links every JSON page and resource document carries, per spec.md §4.5.
package linkbuilder

import (
	"fmt"
	"net/url"
)

// Builder constructs absolute URLs from a configured scheme+host.
type Builder struct {
	baseURL string // e.g. "https://api.example.com"
}

// New builds a Builder against baseURL (scheme://host, no trailing slash).
func New(baseURL string) *Builder {
	return &Builder{baseURL: baseURL}
}

// ResourcePath returns the absolute URL for one of a resource's
// well-known sub-paths (e.g. "profile", "swagger", "data").
func (b *Builder) ResourcePath(resourceID, subpath string) string {
	if subpath == "" {
		return fmt.Sprintf("%s/api/resources/%s/", b.baseURL, resourceID)
	}
	return fmt.Sprintf("%s/api/resources/%s/%s/", b.baseURL, resourceID, subpath)
}

// Page returns the absolute URL for a data query with page replaced by
// pageNum, preserving every other original query parameter.
func (b *Builder) Page(resourceID string, original url.Values, pageNum int) string {
	query := cloneValues(original)
	query.Set("page", fmt.Sprintf("%d", pageNum))
	return fmt.Sprintf("%s/api/resources/%s/data/?%s", b.baseURL, resourceID, query.Encode())
}

// NextPrev implements spec.md §4.5's link policy: next iff
// (page*page_size) < total (or total is unknown and the page came back
// full); prev iff page > 1.
func (b *Builder) NextPrev(resourceID string, original url.Values, page, pageSize, rowsReturned int, total *int64) (next, prev *string) {
	if page > 1 {
		p := b.Page(resourceID, original, page-1)
		prev = &p
	}

	hasMore := false
	if total != nil {
		hasMore = int64(page*pageSize) < *total
	} else {
		hasMore = rowsReturned >= pageSize
	}
	if hasMore {
		n := b.Page(resourceID, original, page+1)
		next = &n
	}
	return next, prev
}

func cloneValues(v url.Values) url.Values {
	clone := make(url.Values, len(v))
	for k, vals := range v {
		clone[k] = append([]string(nil), vals...)
	}
	return clone
}
