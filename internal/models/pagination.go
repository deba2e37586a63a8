package models

// Pagination is the list metadata returned alongside a page of results.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Page is one slice of a filtered listing.
type Page[T any] struct {
	Data    []T
	Total   int
	Page    int
	PerPage int
}

func (p Page[T]) Pagination() Pagination {
	pages := 0
	if p.PerPage > 0 {
		pages = (p.Total + p.PerPage - 1) / p.PerPage
	}
	return Pagination{Page: p.Page, PerPage: p.PerPage, Total: p.Total, TotalPages: pages}
}
