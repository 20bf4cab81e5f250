// Package pagination windows ordered collections into numbered pages.
// It is used by every list endpoint; SQL stores use Offset and Limit to
// push the window into the query while in-memory callers use Slice.
package pagination

import (
	"encoding/json"
	"math"
)

const (
	DefaultPageNumber = 1
	DefaultPageSize   = 10
	MaxPageSize       = 50

	// MaxPageNumber keeps Offset within an int for any page size.
	MaxPageNumber = math.MaxInt / MaxPageSize

	// HeaderName carries the page metadata on list responses.
	HeaderName = "X-Pagination"
)

// Params is the 1-based page request of a list operation.
type Params struct {
	PageNumber int `query:"page_number" json:"page_number"`
	PageSize   int `query:"page_size" json:"page_size"`
}

// Normalize replaces missing or out-of-range values with defaults and
// caps the page size and page number.  A capped page number still lies
// past the end of any real collection, so it yields an empty page.
func (p Params) Normalize() Params {
	if p.PageNumber < 1 {
		p.PageNumber = DefaultPageNumber
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if p.PageNumber > MaxPageNumber {
		p.PageNumber = MaxPageNumber
	}
	return p
}

// Offset is the number of items skipped before the page starts.
func (p Params) Offset() int {
	p = p.Normalize()
	return (p.PageNumber - 1) * p.PageSize
}

// Limit is the maximum number of items on the page.
func (p Params) Limit() int {
	return p.Normalize().PageSize
}

// Page is one window of an ordered collection together with the
// metadata needed to navigate the rest of it.
type Page[T any] struct {
	Items           []T  `json:"items"`
	TotalCount      int  `json:"total_count"`
	PageNumber      int  `json:"page_number"`
	PageSize        int  `json:"page_size"`
	TotalPages      int  `json:"total_pages"`
	HasPreviousPage bool `json:"has_previous_page"`
	HasNextPage     bool `json:"has_next_page"`
}

// New builds a page from items that were already windowed by the
// source.  total is the number of matching items before windowing.
func New[T any](items []T, total int, params Params) Page[T] {
	params = params.Normalize()
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + params.PageSize - 1) / params.PageSize
	}
	return Page[T]{
		Items:           items,
		TotalCount:      total,
		PageNumber:      params.PageNumber,
		PageSize:        params.PageSize,
		TotalPages:      totalPages,
		HasPreviousPage: params.PageNumber > 1,
		HasNextPage:     params.PageNumber < totalPages,
	}
}

// Slice windows an in-memory slice.  A page past the end yields no
// items but correct metadata.
func Slice[T any](all []T, params Params) Page[T] {
	params = params.Normalize()
	start := params.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + params.Limit()
	if end > len(all) {
		end = len(all)
	}
	window := make([]T, end-start)
	copy(window, all[start:end])
	return New(window, len(all), params)
}

// metadata is the X-Pagination header document.
type metadata struct {
	TotalCount      int  `json:"TotalCount"`
	PageSize        int  `json:"PageSize"`
	PageNumber      int  `json:"PageNumber"`
	TotalPages      int  `json:"TotalPages"`
	HasNextPage     bool `json:"HasNextPage"`
	HasPreviousPage bool `json:"HasPreviousPage"`
}

// Header renders the page metadata as the JSON value of the
// X-Pagination response header.
func (p Page[T]) Header() string {
	b, _ := json.Marshal(metadata{
		TotalCount:      p.TotalCount,
		PageSize:        p.PageSize,
		PageNumber:      p.PageNumber,
		TotalPages:      p.TotalPages,
		HasNextPage:     p.HasNextPage,
		HasPreviousPage: p.HasPreviousPage,
	})
	return string(b)
}
