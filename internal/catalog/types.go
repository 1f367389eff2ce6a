// Package catalog builds the tModLoader class catalog from the Doxygen
// "annotated" index page and keeps a time-limited snapshot of it.
package catalog

import "time"

// ClassRecord is one class, struct, interface or namespace row from the index.
// Records are never modified after parsing.
type ClassRecord struct {
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Catalog is an ordered snapshot of class records and the time it was fetched.
// A Catalog is shared between callers and must be treated as read-only.
type Catalog struct {
	Classes   []ClassRecord `json:"classes"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Len returns the number of records in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Classes)
}
