package dto

import (
	"net/url"
	"strconv"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// ErrorResponse is the body of every failed request. Details maps request
// fields to what is wrong with them.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	TotalPages int         `json:"total_pages"`
}

type PaginationParams struct {
	Page    int
	PerPage int
}

// ParsePagination reads page and per_page from a query string, falling back
// to the first page of DefaultPerPage items and capping at MaxPerPage.
func ParsePagination(q url.Values) PaginationParams {
	p := PaginationParams{Page: 1, PerPage: DefaultPerPage}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil && n > 0 {
		p.PerPage = min(n, MaxPerPage)
	}
	return p
}

func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// NewPage wraps one page of results.
func NewPage(data interface{}, total int64, p PaginationParams) PaginatedResponse {
	pages := int(total) / p.PerPage
	if int(total)%p.PerPage != 0 {
		pages++
	}
	return PaginatedResponse{Data: data, Total: total, Page: p.Page, PerPage: p.PerPage, TotalPages: pages}
}
