// Package query defines the immutable query parameters for contact listings
// and their canonical cache-key encoding.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Defaults applied during normalization. An absent field and an explicitly
// supplied default value must produce the same cache key.
const (
	DefaultPage      = 1
	DefaultPageSize  = 25
	DefaultSortField = "last_name"
)

// SortDirection is the server-side sort order.
type SortDirection string

const (
	// SortAsc sorts ascending (the default).
	SortAsc SortDirection = "asc"

	// SortDesc sorts descending.
	SortDesc SortDirection = "desc"
)

// Params describes one logical request against the contacts collection.
// The zero value is valid and normalizes to the first page of the default
// listing. Params is a value type; treat instances as immutable.
type Params struct {
	// Search is the free-text filter (empty = no filter).
	Search string

	// SortField is the field to sort by (empty = DefaultSortField).
	SortField string

	// SortDir is the sort direction (empty = SortAsc).
	SortDir SortDirection

	// Page is the 1-based page number (0 = DefaultPage).
	Page int

	// PageSize is the number of records per page (0 = DefaultPageSize).
	PageSize int

	// Group restricts results to a contact group (0 = all groups).
	Group int
}

// Normalize returns a copy with all defaults applied.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.SortField == "" {
		p.SortField = DefaultSortField
	}
	if p.SortDir != SortDesc {
		p.SortDir = SortAsc
	}
	return p
}

// WithPage returns a copy pointing at the given page.
func (p Params) WithPage(page int) Params {
	p.Page = page
	return p
}

// Key generates a deterministic cache key string.
// Format: contacts:field1=val1:field2=val2:...
//
// Fields are sorted by name and values are query-escaped, so the ':' and '='
// separators cannot occur inside a value and semantically distinct queries
// cannot collide. Defaults are applied first, so an absent field and its
// explicit default encode identically.
//
// The page field always comes last so that every page of the same query
// shares a common prefix (see ScopePrefix).
//
// Example:
//
//	contacts:dir=asc:group=0:limit=25:search=smith:sort=last_name:page=3
func (p Params) Key() string {
	p = p.Normalize()

	fields := map[string]string{
		"search": url.QueryEscape(p.Search),
		"sort":   url.QueryEscape(p.SortField),
		"dir":    string(p.SortDir),
		"limit":  fmt.Sprintf("%d", p.PageSize),
		"group":  fmt.Sprintf("%d", p.Group),
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(fields)+2)
	parts = append(parts, "contacts")
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, fields[name]))
	}
	parts = append(parts, fmt.Sprintf("page=%d", p.Page))

	return strings.Join(parts, ":")
}

// ScopePrefix returns the key prefix shared by every page of this query:
// the full key minus the page number. All keys of one search/sort/filter
// combination differ only in the trailing page field, so prefix matching
// against ScopePrefix selects exactly that query's pages. Used for scoped
// invalidation on refresh.
func (p Params) ScopePrefix() string {
	key := p.Key()
	return key[:strings.LastIndex(key, "=")+1]
}
