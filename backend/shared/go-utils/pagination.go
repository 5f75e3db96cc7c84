package utils

import (
	"net/http"
	"strconv"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) Limit() int  { return p.PageSize }
func (p Pagination) Offset() int { return (p.Page - 1) * p.PageSize }

// ParsePagination reads ?page= and ?page_size=. Missing values fall back to
// the defaults; page_size is capped at MaxPageSize.
func ParsePagination(r *http.Request) (Pagination, error) {
	p := Pagination{Page: DefaultPage, PageSize: DefaultPageSize}
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, ValidationFailed("page must be a positive integer", err)
		}
		p.Page = n
	}
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, ValidationFailed("page_size must be a positive integer", err)
		}
		if n > MaxPageSize {
			n = MaxPageSize
		}
		p.PageSize = n
	}
	return p, nil
}
