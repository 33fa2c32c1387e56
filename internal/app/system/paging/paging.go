// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultPageSize is the number of rows returned when the client does not
// ask for a specific page size.
const DefaultPageSize = 20

// MaxPageSize caps client-requested page sizes.
const MaxPageSize = 100

// Page holds a parsed, clamped page request.
type Page struct {
	Number int // 1-based page number
	Size   int
}

// Parse extracts "page" and "page_size" query parameters. Missing or invalid
// values fall back to page 1 and DefaultPageSize; oversized requests are
// clamped to MaxPageSize.
func Parse(r *http.Request) Page {
	p := Page{Number: 1, Size: DefaultPageSize}

	if s := query.Get(r, "page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 1 {
			p.Number = n
		}
	}
	if s := query.Get(r, "page_size"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 1 {
			p.Size = n
			if p.Size > MaxPageSize {
				p.Size = MaxPageSize
			}
		}
	}
	return p
}

// Skip returns the number of documents to skip for this page.
func (p Page) Skip() int64 { return int64(p.Number-1) * int64(p.Size) }

// Limit returns the page size as int64 for Find().SetLimit().
func (p Page) Limit() int64 { return int64(p.Size) }

// ApplyToFind configures FindOptions with skip, limit, and a stable sort.
// The _id tiebreak keeps pages consistent when the sort field has duplicates.
func (p Page) ApplyToFind(find *options.FindOptions, sortField string, order int) *options.FindOptions {
	return find.
		SetSort(bson.D{
			{Key: sortField, Value: order},
			{Key: "_id", Value: order},
		}).
		SetSkip(p.Skip()).
		SetLimit(p.Limit())
}

// Meta is the pagination envelope returned alongside list results.
type Meta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// BuildMeta computes the pagination envelope for a list response.
func BuildMeta(p Page, total int64) Meta {
	pages := total / int64(p.Size)
	if total%int64(p.Size) != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return Meta{
		Page:       p.Number,
		PageSize:   p.Size,
		Total:      total,
		TotalPages: pages,
	}
}
