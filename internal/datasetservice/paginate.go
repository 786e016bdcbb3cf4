package datasetservice

import "github.com/starford/tabula/internal/models"

// DefaultPageSize is used when a caller passes a non-positive limit.
const DefaultPageSize = 1000

// Pagination describes the position of a Page.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is a slice of rows plus its pagination block.
type Page struct {
	Data       []*models.Record `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// Paginate returns rows [(page-1)*limit, page*limit) clipped to the input.
// Pages past the end, and non-positive pages, are empty rather than errors.
func Paginate(rows []*models.Record, page, limit int) Page {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	total := len(rows)
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	p := Page{
		Data: []*models.Record{},
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}
	// Bounds are checked before multiplying so huge pages cannot overflow.
	if page <= 0 || page-1 > total/limit {
		return p
	}
	start := (page - 1) * limit
	if start >= total {
		return p
	}
	end := start + min(limit, total-start)
	p.Data = rows[start:end]
	return p
}
