package handler

import (
	"net/http"
	"strconv"
)

type PaginationParams struct {
	Page  int
	Limit int
}

// ParsePagination reads page/limit; bounds are applied by the service.
func ParsePagination(r *http.Request) PaginationParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if page < 0 {
		page = 0
	}
	if limit < 0 {
		limit = 0
	}

	return PaginationParams{
		Page:  page,
		Limit: limit,
	}
}
