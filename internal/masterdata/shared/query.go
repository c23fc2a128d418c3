package shared

import (
	"net/http"
	"strconv"
)

// FiltersFromQuery builds ListFilters out of the request query string.
func FiltersFromQuery(r *http.Request) ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}.Normalize()
}
